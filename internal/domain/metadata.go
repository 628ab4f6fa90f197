package domain

import "sort"

// PlaceholderThumbnail is served whenever a video has no thumbnail of its own
const PlaceholderThumbnail = "https://via.placeholder.com/320x180/000000/FFFFFF?text=Video"

// DefaultTitle is used when the provider returns no title
const DefaultTitle = "Unknown Title"

// VideoMetadata holds the client-facing metadata of a video
type VideoMetadata struct {
	Title              string         `json:"title"`
	Thumbnail          string         `json:"thumbnail"`
	Duration           int            `json:"duration"`
	Platform           string         `json:"platform"`
	AvailableQualities []VideoQuality `json:"available_qualities"`
	AudioAvailable     bool           `json:"audio_available"`
	FileExtension      *string        `json:"file_extension,omitempty"`
	OriginalURL        string         `json:"original_url"`
}

// VideoQuality is one rung of the quality ladder
type VideoQuality struct {
	Quality  string   `json:"quality"`
	Format   string   `json:"format"`
	FileSize *int64   `json:"file_size,omitempty"`
	FPS      *float64 `json:"fps,omitempty"`
}

// Quality labels
const (
	Quality4K    = "4K"
	Quality2160p = "2160p"
	Quality1440p = "1440p"
	Quality1080p = "1080p"
	Quality720p  = "720p"
	Quality480p  = "480p"
	Quality360p  = "360p"
	Quality240p  = "240p"
	Quality144p  = "144p"
)

// unrankedQuality sorts after every known label
const unrankedQuality = 999

var qualityRanks = map[string]int{
	Quality4K:    0,
	Quality2160p: 0,
	Quality1440p: 1,
	Quality1080p: 2,
	Quality720p:  3,
	Quality480p:  4,
	Quality360p:  5,
	Quality240p:  6,
	Quality144p:  7,
}

// QualityRank returns the sort rank of a label, lower is better
func QualityRank(label string) int {
	if rank, ok := qualityRanks[label]; ok {
		return rank
	}
	return unrankedQuality
}

// SortQualities orders qualities best first. Labels of equal rank keep their
// relative order.
func SortQualities(qualities []VideoQuality) {
	sort.SliceStable(qualities, func(i, j int) bool {
		return QualityRank(qualities[i].Quality) < QualityRank(qualities[j].Quality)
	})
}

// FallbackQualities is used when nothing usable came back from the provider
func FallbackQualities() []VideoQuality {
	return []VideoQuality{{Quality: Quality720p, Format: "mp4"}}
}

// Validate reports whether the metadata satisfies the invariants callers rely on
func (m *VideoMetadata) Validate() error {
	if m == nil {
		return NewInternalError("metadata is nil", nil)
	}
	if m.Platform == "" {
		return NewInternalError("metadata has no platform", nil)
	}
	if m.Thumbnail == "" {
		return NewInternalError("metadata has no thumbnail", nil)
	}
	if len(m.AvailableQualities) == 0 {
		return NewInternalError("metadata has no qualities", nil)
	}
	return nil
}
