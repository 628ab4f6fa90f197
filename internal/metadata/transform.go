package metadata

import (
	"math"
	"strings"

	"github.com/D3nams/vidnet-sub001/internal/domain"
	"github.com/D3nams/vidnet-sub001/internal/extractor"
	"github.com/D3nams/vidnet-sub001/internal/platform"
)

const (
	directLinkTitle     = "Direct Video Link"
	directLinkExtension = ".mp4"
)

// qualityThresholds maps minimum heights to labels, highest first
var qualityThresholds = []struct {
	minHeight int
	label     string
}{
	{2160, domain.Quality4K},
	{1440, domain.Quality1440p},
	{1080, domain.Quality1080p},
	{720, domain.Quality720p},
	{480, domain.Quality480p},
	{360, domain.Quality360p},
	{240, domain.Quality240p},
}

// MaxDuration caps reported durations, in seconds
const MaxDuration = 366 * 24 * 60 * 60

// QualityLabel maps a vertical resolution to its quality label
func QualityLabel(height int) string {
	for _, t := range qualityThresholds {
		if height >= t.minHeight {
			return t.label
		}
	}
	return domain.Quality144p
}

// ToQualityList turns provider formats into a rank-sorted quality ladder with
// one entry per label. Audio-only formats and formats without a positive
// height are skipped. When nothing usable remains the fallback ladder is returned.
func ToQualityList(formats []extractor.RawFormat) []domain.VideoQuality {
	byLabel := make(map[string]int)
	var qualities []domain.VideoQuality

	for _, f := range formats {
		if !hasCodec(f.VCodec) || f.Height == nil || *f.Height <= 0 {
			continue
		}
		q := domain.VideoQuality{
			Quality:  QualityLabel(*f.Height),
			Format:   f.Ext,
			FileSize: f.FileSize,
			FPS:      f.FPS,
		}
		if q.Format == "" {
			q.Format = "mp4"
		}

		i, seen := byLabel[q.Quality]
		if !seen {
			byLabel[q.Quality] = len(qualities)
			qualities = append(qualities, q)
			continue
		}
		if largerFile(q.FileSize, qualities[i].FileSize) {
			qualities[i] = q
		}
	}

	if len(qualities) == 0 {
		return domain.FallbackQualities()
	}
	domain.SortQualities(qualities)
	return qualities
}

// largerFile reports whether candidate should replace current. A nil size
// never wins.
func largerFile(candidate, current *int64) bool {
	if candidate == nil {
		return false
	}
	return current == nil || *candidate > *current
}

// HasAudio reports whether any format or the result itself declares an
// audio codec
func HasAudio(raw *extractor.RawResult) bool {
	if raw == nil {
		return false
	}
	for _, f := range raw.Formats {
		if hasCodec(f.ACodec) {
			return true
		}
	}
	return hasCodec(raw.ACodec)
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}

// FromRaw builds client-facing metadata from a provider result
func FromRaw(raw *extractor.RawResult, platformName, originalURL string) *domain.VideoMetadata {
	m := &domain.VideoMetadata{
		Title:       domain.DefaultTitle,
		Thumbnail:   domain.PlaceholderThumbnail,
		Platform:    platformName,
		OriginalURL: originalURL,
	}
	if raw == nil {
		m.AvailableQualities = domain.FallbackQualities()
		return m
	}

	if title := strings.TrimSpace(raw.Title); title != "" {
		m.Title = title
	}
	if raw.Thumbnail != "" {
		m.Thumbnail = raw.Thumbnail
	}
	if raw.Duration != nil && *raw.Duration > 0 && !math.IsInf(*raw.Duration, 0) {
		m.Duration = int(math.Min(*raw.Duration, MaxDuration))
	}
	m.AvailableQualities = ToQualityList(raw.Formats)
	m.AudioAvailable = HasAudio(raw)
	return m
}

// FromDirectLink synthesizes metadata for a URL that points at a video file
func FromDirectLink(url string) *domain.VideoMetadata {
	ext, ok := platform.VideoExtension(url)
	if !ok {
		ext = directLinkExtension
	}

	title := platform.FileName(url)
	if i := strings.LastIndex(title, "."); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = directLinkTitle
	}

	return &domain.VideoMetadata{
		Title:     title,
		Thumbnail: domain.PlaceholderThumbnail,
		Duration:  0,
		Platform:  platform.Direct,
		AvailableQualities: []domain.VideoQuality{
			{Quality: domain.Quality720p, Format: strings.TrimPrefix(ext, ".")},
		},
		AudioAvailable: true,
		FileExtension:  &ext,
		OriginalURL:    url,
	}
}
