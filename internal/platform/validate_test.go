package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D3nams/vidnet-sub001/internal/platform"
)

func TestValidate_TikTokWithoutScheme(t *testing.T) {
	res := platform.Validate("www.tiktok.com/@alice/video/1234567890123456789")

	assert.True(t, res.IsValid)
	assert.Equal(t, platform.TikTok, res.Platform)
	require.NotNil(t, res.ContentID)
	assert.Equal(t, "1234567890123456789", *res.ContentID)
	assert.Equal(t, "alice", res.Metadata["username"])
	assert.Equal(t, []string{platform.WarnMsgSchemeAdded}, res.Warnings)
	assert.Empty(t, res.Error)
	assert.Equal(t, "www.tiktok.com/@alice/video/1234567890123456789", res.OriginalURL)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"empty", "", platform.ErrMsgEmptyURL},
		{"whitespace", " \t ", platform.ErrMsgEmptyURL},
		{"missing domain", "https://", platform.ErrMsgMissingDomain},
		{"missing domain with path", "https:///watch?v=abc", platform.ErrMsgMissingDomain},
		{"unsupported", "https://example.com/watch", platform.ErrMsgUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := platform.Validate(tt.url)
			assert.False(t, res.IsValid)
			assert.Equal(t, tt.want, res.Error)
			assert.Empty(t, res.Platform)
			assert.NotNil(t, res.Metadata)
			assert.NotNil(t, res.Warnings)
		})
	}
}

func TestValidate_FullyPopulated(t *testing.T) {
	res := platform.Validate("https://vimeo.com/76979871")

	assert.True(t, res.IsValid)
	assert.Equal(t, platform.Vimeo, res.Platform)
	assert.Equal(t, "https://vimeo.com/76979871", res.CanonicalURL)
	assert.Empty(t, res.Warnings)
	assert.NotNil(t, res.Warnings)
	assert.NotNil(t, res.Metadata)
}
