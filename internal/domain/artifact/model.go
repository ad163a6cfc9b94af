package artifact

import (
	"context"
	"errors"
)

// Kind is the requested file flavour, taken from the "type" parameter.
type Kind string

const (
	KindXML  Kind = "xml"
	KindGzip Kind = "gz"
	KindM3U  Kind = "m3u"
	KindTXT  Kind = "txt"
)

// IsPlaylist reports whether k selects a live playlist.
func (k Kind) IsPlaylist() bool {
	return k == KindM3U || k == KindTXT
}

// Location groups artifacts by the job that produces them.
type Location int

const (
	// LocationData holds the XMLTV exports.
	LocationData Location = iota
	// LocationLive holds the merged playlists.
	LocationLive
	// LocationLiveFile holds one playlist per configured source URL.
	LocationLiveFile
)

// ErrNotExist is returned by a Store for a missing artifact.
var ErrNotExist = errors.New("artifact does not exist")

// Store reads generated files.
type Store interface {
	Read(ctx context.Context, loc Location, name string) ([]byte, error)
}

// Config toggles the XMLTV export.
type Config struct {
	GenXML bool
}

// Artifact is a file ready to be written to the client.
type Artifact struct {
	Name        string
	ContentType string
	// Attachment marks files served as a download.
	Attachment bool
	Body       []byte
}
