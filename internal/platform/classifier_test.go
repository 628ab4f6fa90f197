package platform_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D3nams/vidnet-sub001/internal/platform"
)

// shapes lists every declared URL shape per platform.
var shapes = map[string][]string{
	platform.YouTube: {
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/abcDEF12345",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/playlist?list=PL1234567890",
		"https://www.youtube.com/live/liveStream01",
		"youtube.com/watch?v=dQw4w9WgXcQ",
	},
	platform.TikTok: {
		"https://www.tiktok.com/@alice/video/1234567890123456789",
		"https://vm.tiktok.com/ZMabc123",
		"https://vt.tiktok.com/ZSxyz789",
		"https://www.tiktok.com/t/ZTRabc",
		"https://m.tiktok.com/v/1234567890123456789",
		"https://www.tiktok.com/@alice.b/video/1234567890123456789?is_from_webapp=1",
	},
	platform.Instagram: {
		"https://www.instagram.com/p/CxYz123AbC/",
		"https://www.instagram.com/reel/CxYz123AbC/",
		"https://www.instagram.com/tv/CxYz123AbC/",
		"https://www.instagram.com/stories/some.user/3141592653589793238/",
	},
	platform.Facebook: {
		"https://www.facebook.com/watch/?v=1234567890",
		"https://www.facebook.com/watch?v=1234567890",
		"https://www.facebook.com/some.page/videos/1234567890",
		"https://www.facebook.com/video.php?v=1234567890",
		"https://fb.watch/abcDEF_12/",
		"https://m.facebook.com/watch/?v=1234567890",
	},
	platform.Twitter: {
		"https://twitter.com/jack/status/20",
		"https://x.com/jack/status/20",
		"https://twitter.com/i/web/status/20",
		"https://mobile.twitter.com/jack/status/20",
		"https://mobile.x.com/jack/status/20",
	},
	platform.Reddit: {
		"https://www.reddit.com/r/videos/comments/abc123/some_title/",
		"https://v.redd.it/abc123xyz",
		"https://old.reddit.com/r/videos/comments/abc123/",
		"https://m.reddit.com/r/videos/comments/abc123/",
	},
	platform.Vimeo: {
		"https://vimeo.com/76979871",
		"https://player.vimeo.com/video/76979871",
		"https://vimeo.com/ondemand/somefilm/76979871",
		"https://vimeo.com/channels/staffpicks/76979871",
	},
	platform.Direct: {
		"https://example.com/clip.mp4",
		"https://cdn.example.com/media/movie.MKV",
		"https://example.com/a/b/video.webm?token=abc",
		"https://example.com/stream.m2ts",
		"example.com/files/old.rmvb",
	},
}

func TestClassify_AllDeclaredShapes(t *testing.T) {
	for want, urls := range shapes {
		for _, u := range urls {
			t.Run(want+"/"+u, func(t *testing.T) {
				got, ok := platform.Classify(u)
				require.True(t, ok)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestClassify_Unsupported(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"not a url",
		"https://example.com/",
		"https://example.com/page.html",
		"https://www.dailymotion.com/video/x7tgad0",
		"ftp://",
	}

	for _, u := range tests {
		t.Run(u, func(t *testing.T) {
			_, ok := platform.Classify(u)
			assert.False(t, ok)

			res := platform.Validate(u)
			assert.False(t, res.IsValid)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	got, ok := platform.Classify("HTTPS://WWW.YOUTUBE.COM/watch?v=dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, platform.YouTube, got)
}

func TestDirectRuleNeverShadowsPlatforms(t *testing.T) {
	defs := platform.Definitions()
	require.NotEmpty(t, defs)
	assert.Equal(t, platform.Direct, defs[len(defs)-1].Name, "direct must be the last table entry")

	for name, urls := range shapes {
		if name == platform.Direct {
			continue
		}
		for _, u := range urls {
			withExt := strings.TrimSuffix(u, "/") + "/clip.mp4"
			if strings.Contains(u, "?") {
				withExt = u + "&file=clip.mp4"
			}
			got, ok := platform.Classify(withExt)
			require.True(t, ok, withExt)
			assert.Equal(t, name, got, withExt)
		}
	}
}

func TestExtract_ScenarioYouTubeShortLink(t *testing.T) {
	got, ok := platform.Classify("https://youtu.be/dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, platform.YouTube, got)

	canonical, ok := platform.Normalize("https://youtu.be/dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", canonical)
}

func TestExtract_GroupRoles(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform string
		id       string
		meta     map[string]string
	}{
		{
			name:     "tiktok username and id",
			url:      "https://www.tiktok.com/@alice/video/1234567890123456789",
			platform: platform.TikTok,
			id:       "1234567890123456789",
			meta:     map[string]string{"username": "alice"},
		},
		{
			name:     "tiktok short link",
			url:      "https://vm.tiktok.com/ZMabc123",
			platform: platform.TikTok,
			id:       "ZMabc123",
			meta:     map[string]string{},
		},
		{
			name:     "twitter username and status",
			url:      "https://x.com/jack/status/20",
			platform: platform.Twitter,
			id:       "20",
			meta:     map[string]string{"username": "jack"},
		},
		{
			name:     "twitter web status has no username",
			url:      "https://twitter.com/i/web/status/20",
			platform: platform.Twitter,
			id:       "20",
			meta:     map[string]string{},
		},
		{
			name:     "reddit subreddit and post",
			url:      "https://www.reddit.com/r/videos/comments/abc123/title/",
			platform: platform.Reddit,
			id:       "abc123",
			meta:     map[string]string{"subreddit": "videos"},
		},
		{
			name:     "vimeo player",
			url:      "https://player.vimeo.com/video/76979871",
			platform: platform.Vimeo,
			id:       "76979871",
			meta:     map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := platform.Extract(tt.url)
			require.True(t, ok)
			assert.Equal(t, tt.platform, info.Name)
			require.NotNil(t, info.ContentID)
			assert.Equal(t, tt.id, *info.ContentID)
			assert.Equal(t, tt.meta, info.Metadata)
		})
	}
}

func TestExtract_CanonicalURLs(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/shorts/abcDEF12345", "https://www.youtube.com/watch?v=abcDEF12345"},
		{"https://www.instagram.com/reel/CxYz123AbC/?igsh=1", "https://www.instagram.com/p/CxYz123AbC/"},
		{"https://www.facebook.com/some.page/videos/1234567890", "https://www.facebook.com/watch/?v=1234567890"},
		{"https://x.com/jack/status/20", "https://twitter.com/i/web/status/20"},
		{"https://vimeo.com/channels/staffpicks/76979871", "https://vimeo.com/76979871"},
		// no template
		{"https://www.tiktok.com/@alice/video/1234567890123456789", "https://www.tiktok.com/@alice/video/1234567890123456789"},
		{"https://v.redd.it/abc123xyz", "https://v.redd.it/abc123xyz"},
		{"example.com/clip.mp4", "https://example.com/clip.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := platform.Normalize(tt.url)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Stable(t *testing.T) {
	for name, urls := range shapes {
		for _, u := range urls {
			if name == platform.Facebook && strings.Contains(u, "fb.watch") {
				// fb.watch ids are not numeric, so the canonical watch URL
				// does not re-match.
				continue
			}
			once, ok := platform.Normalize(u)
			require.True(t, ok, u)
			twice, ok := platform.Normalize(once)
			require.True(t, ok, once)
			assert.Equal(t, once, twice, u)
		}
	}
}

func TestExtract_DirectLinkHasNoContentID(t *testing.T) {
	info, ok := platform.Extract("https://example.com/clip.mkv")
	require.True(t, ok)
	assert.Equal(t, platform.Direct, info.Name)
	assert.Nil(t, info.ContentID)
	assert.Equal(t, "https://example.com/clip.mkv", info.CanonicalURL)
	assert.Equal(t, "https://example.com/clip.mkv", info.OriginalURL)
}

func TestVideoExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://example.com/clip.mkv", ".mkv", true},
		{"https://example.com/CLIP.MP4?sig=1", ".mp4", true},
		{"https://example.com/stream.m2ts", ".m2ts", true},
		{"https://example.com/movie.mpeg", ".mpeg", true},
		{"https://youtu.be/dQw4w9WgXcQ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := platform.VideoExtension(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformHelpers(t *testing.T) {
	assert.Equal(t, []string{
		platform.YouTube, platform.TikTok, platform.Instagram, platform.Facebook,
		platform.Twitter, platform.Reddit, platform.Vimeo, platform.Direct,
	}, platform.Platforms())

	assert.True(t, platform.IsSupported("YouTube"))
	assert.False(t, platform.IsSupported("dailymotion"))

	assert.Contains(t, platform.Domains("twitter"), "x.com")
	assert.Empty(t, platform.Domains("direct"))
	assert.Nil(t, platform.Domains("dailymotion"))

	assert.True(t, platform.IsDirectLink("https://example.com/clip.mp4"))
	assert.False(t, platform.IsDirectLink("https://vimeo.com/76979871"))

	assert.Equal(t, "clip.mkv", platform.FileName("https://example.com/media/clip.mkv?x=1"))
}
