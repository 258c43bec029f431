package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCamRound(t *testing.T) {
	def := 5 * time.Minute

	assert.Equal(t, def, Cam{}.Round(def))
	assert.Equal(t, 30*time.Second, Cam{MaxSeconds: 30}.Round(def))
}

func TestKindAdFree(t *testing.T) {
	assert.True(t, KindHLS.AdFree())
	assert.True(t, KindVideo.AdFree())
	assert.True(t, KindImage.AdFree())
	assert.False(t, KindYouTube.AdFree())
	assert.False(t, KindIframe.AdFree())
}

func TestYouTubeIDFromURL(t *testing.T) {
	tests := map[string]string{
		"https://youtu.be/abc":                        "abc",
		"https://www.youtube.com/watch?v=def&t=1":     "def",
		"https://www.youtube.com/embed/ghi":           "ghi",
		"https://youtube.com/live/jkl":                "jkl",
		"https://www.youtube-nocookie.com/embed/mno":  "mno",
		"https://example.com/watch?v=nope":            "",
		"::not a url":                                 "",
	}

	for raw, want := range tests {
		assert.Equal(t, want, youTubeIDFromURL(raw), raw)
	}
}

func TestCamLoadInfo(t *testing.T) {
	c := Cam{ID: "a", Kind: KindHLS, Title: "Harbour", URL: "https://example.com/a.m3u8", MaxSeconds: 20}

	info := c.LoadInfo()
	assert.Equal(t, "a", info.ID)
	assert.Equal(t, "hls", info.Kind)
	assert.Equal(t, "Harbour", info.Title)
	assert.Equal(t, "https://example.com/a.m3u8", info.URL)
	assert.Equal(t, 20, info.MaxSeconds)
}
