package chname

import (
	"log/slog"
	"strings"

	regexp "github.com/grafana/regexp"
	"github.com/liuzl/gocc"

	"github.com/yanqian/epg-server/internal/domain/epg"
)

// Converter rewrites traditional Chinese text as simplified.
type Converter interface {
	Convert(in string) (string, error)
}

var (
	qualityTags = regexp.MustCompile(`\[.*?\]|[0-9.]+M|[0-9]{3,4}[pP]|[0-9.]+FPS`)
	noiseWords  = regexp.MustCompile(`超清|高清$|蓝光|频道$|标清|FHD|HD$|HEVC|HDR|-|\s+`)
	cctvNumber  = regexp.MustCompile(`CCTV[0-9+]{1,2}[48]?K?`)
)

// Normalizer turns a player supplied channel name into the stored form.
type Normalizer struct {
	converter Converter
	logger    *slog.Logger
}

// NewNormalizer returns a normalizer. With t2s set it also loads the
// OpenCC dictionaries; when they cannot be loaded names are left in their
// original script.
func NewNormalizer(t2s bool, logger *slog.Logger) *Normalizer {
	n := &Normalizer{logger: logger.With("component", "chname.normalizer")}
	if !t2s {
		return n
	}
	converter, err := gocc.New("t2s")
	if err != nil {
		n.logger.Warn("opencc t2s unavailable, skipping conversion", "error", err)
		return n
	}
	n.converter = converter
	return n
}

// WithConverter replaces the script converter.
func (n *Normalizer) WithConverter(c Converter) *Normalizer {
	n.converter = c
	return n
}

// Normalize implements epg.ChannelNormalizer.
func (n *Normalizer) Normalize(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}
	if n.converter != nil {
		if simplified, err := n.converter.Convert(name); err == nil {
			name = simplified
		} else {
			n.logger.Debug("t2s conversion failed", "name", name, "error", err)
		}
	}
	return Clean(name)
}

// Clean uppercases the name and strips quality suffixes and separators.
// CCTV numbered channels collapse to their bare number, e.g. "CCTV-1 综合"
// becomes "CCTV1".
func Clean(name string) string {
	tid := strings.ToUpper(name)
	tid = strings.TrimSpace(qualityTags.ReplaceAllString(tid, ""))
	tid = strings.TrimSpace(noiseWords.ReplaceAllString(tid, ""))

	if strings.Contains(tid, "CCTV") && !strings.Contains(tid, "CCTV4K") {
		if m := cctvNumber.FindString(tid); m != "" {
			tid = strings.ReplaceAll(m, "4K", "")
		}
		return tid
	}
	return strings.ReplaceAll(tid, "BTV", "北京")
}

var _ epg.ChannelNormalizer = (*Normalizer)(nil)
