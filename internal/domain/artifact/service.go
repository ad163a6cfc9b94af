package artifact

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	regexp "github.com/grafana/regexp"

	apperrors "github.com/yanqian/epg-server/pkg/errors"
)

const (
	// NotGeneratedMessage is returned when no XMLTV export is available.
	NotGeneratedMessage = "404 Not Found. <br>未生成 xmltv 文件"
	// MissingPlaylistMessage is returned when a playlist file is absent.
	MissingPlaylistMessage = "文件不存在"
)

// Service serves the XMLTV exports and live playlists.
type Service interface {
	XMLTV(ctx context.Context, kind Kind) (Artifact, error)
	Playlist(ctx context.Context, kind Kind, sourceURL, baseURL string) (Artifact, error)
}

type service struct {
	cfg    Config
	store  Store
	logger *slog.Logger
}

// NewService constructs the artifact service.
func NewService(cfg Config, store Store, logger *slog.Logger) Service {
	return &service{cfg: cfg, store: store, logger: logger.With("component", "artifact.service")}
}

func (s *service) XMLTV(ctx context.Context, kind Kind) (Artifact, error) {
	if !s.cfg.GenXML {
		return Artifact{}, apperrors.Wrap(apperrors.CodeNotGenerated, NotGeneratedMessage, nil)
	}
	art := Artifact{Name: "t.xml", ContentType: "application/xml", Attachment: true}
	if kind == KindGzip {
		art.Name, art.ContentType = "t.xml.gz", "application/gzip"
	}
	body, err := s.store.Read(ctx, LocationData, art.Name)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			s.logger.Warn("xmltv read failed", "name", art.Name, "error", err)
		}
		return Artifact{}, apperrors.Wrap(apperrors.CodeNotFound, NotGeneratedMessage, err)
	}
	art.Body = body
	return art, nil
}

func (s *service) Playlist(ctx context.Context, kind Kind, sourceURL, baseURL string) (Artifact, error) {
	if !kind.IsPlaylist() {
		return Artifact{}, apperrors.Wrap(apperrors.CodeNotFound, MissingPlaylistMessage, nil)
	}
	loc, name := LocationLive, "tv."+string(kind)
	if sourceURL != "" {
		loc, name = LocationLiveFile, SourceFileName(sourceURL, kind)
	}
	body, err := s.store.Read(ctx, loc, name)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			s.logger.Warn("playlist read failed", "name", name, "error", err)
		}
		return Artifact{}, apperrors.Wrap(apperrors.CodeNotFound, MissingPlaylistMessage, err)
	}
	if kind == KindM3U {
		body = RewriteM3U(body, baseURL)
	}
	return Artifact{Name: name, ContentType: "text/plain; charset=utf-8", Body: body}, nil
}

// SourceFileName is the name the generator stores a per-source playlist
// under: the md5 of the form-encoded source URL plus the playlist kind.
func SourceFileName(sourceURL string, kind Kind) string {
	sum := md5.Sum([]byte(formEncode(sourceURL)))
	return hex.EncodeToString(sum[:]) + "." + string(kind)
}

// formEncode matches application/x-www-form-urlencoded as produced by the
// playlist generator, which also escapes "~".
func formEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}

var tvgURLPattern = regexp.MustCompile(`(#EXTM3U x-tvg-url=")(.*?)(")`)

// RewriteM3U points the header guide URL at this server's gzip export and
// makes local logo paths absolute.
func RewriteM3U(body []byte, baseURL string) []byte {
	base := strings.TrimRight(baseURL, "/")
	if loc := tvgURLPattern.FindSubmatchIndex(body); loc != nil {
		var out bytes.Buffer
		out.Grow(len(body) + len(base))
		out.Write(body[:loc[4]])
		out.WriteString(base + "/t.xml.gz")
		out.Write(body[loc[5]:])
		body = out.Bytes()
	}
	return bytes.ReplaceAll(body, []byte(`tvg-logo="/data/icon/`), []byte(`tvg-logo="`+base+`/data/icon/`))
}
