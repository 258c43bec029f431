package catalog

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(cams []Cam) []string {
	out := make([]string, 0, len(cams))
	for _, c := range cams {
		out = append(out, c.ID)
	}

	return out
}

func yt(id string) Cam {
	return Cam{ID: id, Kind: KindYouTube, YouTubeID: "yt-" + id}
}

func hls(id string) Cam {
	return Cam{ID: id, Kind: KindHLS, URL: "https://example.com/" + id + ".m3u8"}
}

func TestValidDropsUnaddressable(t *testing.T) {
	raw := []Cam{
		yt("a"),
		{ID: "b", Kind: KindYouTube},
		{ID: "c", Kind: KindHLS},
		{ID: "d", Kind: "flash", URL: "https://example.com/d"},
		{ID: "", Kind: KindImage, URL: "https://example.com/e.jpg"},
		{ID: "f", Kind: KindIframe, URL: "https://example.com/f", Disabled: true},
		{ID: " g ", Kind: "HLS", URL: " https://example.com/g.m3u8 "},
		{ID: "a", Kind: KindImage, URL: "https://example.com/dup.jpg"},
		{ID: "h", Kind: KindYouTube, URL: "https://www.youtube.com/watch?v=abc123"},
		{ID: "i", Kind: KindVideo, URL: "https://example.com/i.mp4", MaxSeconds: -1},
	}

	valid, rejected := Valid(raw)
	assert.Equal(t, []string{"a", "g", "h"}, ids(valid))
	assert.Equal(t, KindHLS, valid[1].Kind)
	assert.Equal(t, "abc123", valid[2].YouTubeID)

	rejectedIdx := make([]int, 0, len(rejected))
	for _, r := range rejected {
		rejectedIdx = append(rejectedIdx, r.Index)
		assert.NotEmpty(t, r.Errors)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 9}, rejectedIdx)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		raw      []Cam
		opts     FilterOptions
		want     []string
		degraded bool
	}{
		{
			name: "no filters",
			raw:  []Cam{yt("a"), hls("b"), yt("c")},
			want: []string{"a", "b", "c"},
		},
		{
			name: "bans",
			raw:  []Cam{yt("a"), hls("b"), yt("c")},
			opts: FilterOptions{Banned: []string{"b"}},
			want: []string{"a", "c"},
		},
		{
			name: "ad-free restricts kinds",
			raw:  []Cam{yt("a"), hls("b"), yt("c")},
			opts: FilterOptions{AdFree: true},
			want: []string{"b"},
		},
		{
			name:     "ad-free ignored when nothing qualifies",
			raw:      []Cam{yt("a"), yt("c")},
			opts:     FilterOptions{AdFree: true},
			want:     []string{"a", "c"},
			degraded: true,
		},
		{
			name: "ad-free applied after bans",
			raw:  []Cam{yt("a"), hls("b"), hls("c")},
			opts: FilterOptions{AdFree: true, Banned: []string{"b"}},
			want: []string{"c"},
		},
		{
			name:     "everything banned falls back to valid set",
			raw:      []Cam{yt("a"), hls("b")},
			opts:     FilterOptions{Banned: []string{"a", "b"}},
			want:     []string{"a", "b"},
			degraded: true,
		},
		{
			name: "nothing valid",
			raw:  []Cam{{ID: "a", Kind: KindYouTube}},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rot := Filter(tt.raw, tt.opts)
			assert.Equal(t, tt.want, ids(rot.Cams))
			assert.Equal(t, tt.degraded, rot.Degraded)
		})
	}
}

func TestFilterIsDeterministic(t *testing.T) {
	raw := []Cam{yt("a"), hls("b"), yt("c"), hls("d")}
	opts := FilterOptions{Banned: []string{"c"}, AdFree: true}

	assert.Equal(t, Filter(raw, opts), Filter(raw, opts))
}

func TestFilterNeverEmptyWithOneValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	kinds := append([]Kind{"bogus"}, Kinds...)

	for n := range 500 {
		size := 1 + rng.IntN(8)
		raw := make([]Cam, 0, size+1)
		var banned []string
		for i := range size {
			c := Cam{ID: fmt.Sprintf("c%d", rng.IntN(6)), Kind: kinds[rng.IntN(len(kinds))]}
			switch rng.IntN(3) {
			case 0:
				c.URL = fmt.Sprintf("https://example.com/%d", i)
			case 1:
				c.YouTubeID = fmt.Sprintf("v%d", i)
			}
			c.Disabled = rng.IntN(5) == 0
			if rng.IntN(2) == 0 {
				banned = append(banned, c.ID)
			}
			raw = append(raw, c)
		}
		raw = append(raw, hls(fmt.Sprintf("valid%d", n)))

		rot := Filter(raw, FilterOptions{Banned: banned, AdFree: rng.IntN(2) == 0})
		require.NotEmpty(t, rot.Cams, "catalog %d: %+v", n, raw)
	}
}

func TestRotationIndexOf(t *testing.T) {
	rot := Filter([]Cam{yt("a"), hls("b")}, FilterOptions{})

	assert.Equal(t, 1, rot.IndexOf("b"))
	assert.Equal(t, -1, rot.IndexOf("z"))
	assert.Equal(t, 2, rot.Len())
}
