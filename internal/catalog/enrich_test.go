package catalog

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/sharetube/camwall/pkg/ytvideodata"
	"github.com/stretchr/testify/assert"
)

type fakeVideos struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeVideos) Get(_ context.Context, id string) (*ytvideodata.VideoData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if id == "missing" {
		return nil, ytvideodata.ErrVideoNotFound
	}

	return &ytvideodata.VideoData{Title: "title " + id, AuthorName: "author " + id}, nil
}

func TestEnrich(t *testing.T) {
	cams := []Cam{
		{ID: "a", Kind: KindYouTube, YouTubeID: "one"},
		{ID: "b", Kind: KindYouTube, YouTubeID: "two", Title: "Kept"},
		{ID: "c", Kind: KindYouTube, YouTubeID: "missing"},
		{ID: "d", Kind: KindHLS, URL: "u"},
		{ID: "e", Kind: KindYouTube, YouTubeID: "three", Title: "T", Source: "S"},
	}
	videos := &fakeVideos{}

	out := Enrich(context.Background(), cams, videos, slog.Default())

	assert.Equal(t, "title one", out[0].Title)
	assert.Equal(t, "author one", out[0].Source)
	assert.Equal(t, "Kept", out[1].Title)
	assert.Equal(t, "author two", out[1].Source)
	assert.Empty(t, out[2].Title)
	assert.Empty(t, out[3].Title)
	assert.Equal(t, "T", out[4].Title)
	assert.ElementsMatch(t, []string{"one", "two", "missing"}, videos.calls)
	assert.Empty(t, cams[0].Title)
}
