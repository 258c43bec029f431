package catalog

import (
	"context"
	"log/slog"

	"github.com/sharetube/camwall/pkg/ytvideodata"
	"golang.org/x/sync/errgroup"
)

const enrichConcurrency = 4

type iVideoData interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

// Enrich fills missing titles and sources of youtube cams from video metadata.
// Lookup failures leave the cam as it was.
func Enrich(ctx context.Context, cams []Cam, videos iVideoData, logger *slog.Logger) []Cam {
	out := make([]Cam, len(cams))
	copy(out, cams)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range out {
		c := out[i].Normalize()
		if c.Kind != KindYouTube || c.YouTubeID == "" || (c.Title != "" && c.Source != "") {
			continue
		}

		g.Go(func() error {
			data, err := videos.Get(ctx, c.YouTubeID)
			if err != nil {
				logger.Debug("failed to enrich cam", "id", c.ID, "error", err)
				return nil
			}

			if out[i].Title == "" {
				out[i].Title = data.Title
			}
			if out[i].Source == "" {
				out[i].Source = data.AuthorName
			}

			return nil
		})
	}
	_ = g.Wait()

	return out
}
