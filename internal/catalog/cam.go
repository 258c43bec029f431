// Package catalog loads cam descriptors and derives the playable rotation from them.
package catalog

import (
	"net/url"
	"strings"
	"time"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/pkg/validator"
)

type Kind string

const (
	KindYouTube Kind = "youtube"
	KindHLS     Kind = "hls"
	KindVideo   Kind = "video"
	KindImage   Kind = "image"
	KindIframe  Kind = "iframe"
)

var Kinds = []Kind{KindYouTube, KindHLS, KindVideo, KindImage, KindIframe}

// AdFree reports whether the kind plays without third-party ads.
func (k Kind) AdFree() bool {
	switch k {
	case KindHLS, KindVideo, KindImage:
		return true
	}

	return false
}

type Cam struct {
	ID         string `yaml:"id" json:"id" validate:"required"`
	Kind       Kind   `yaml:"kind" json:"kind" validate:"required,oneof=youtube hls video image iframe"`
	Title      string `yaml:"title" json:"title"`
	Place      string `yaml:"place" json:"place"`
	Source     string `yaml:"source" json:"source"`
	OriginURL  string `yaml:"originUrl" json:"originUrl"`
	YouTubeID  string `yaml:"youtubeId" json:"youtubeId" validate:"required_if=Kind youtube"`
	URL        string `yaml:"url" json:"url" validate:"required_unless=Kind youtube"`
	MaxSeconds int    `yaml:"maxSeconds" json:"maxSeconds" validate:"gte=0"`
	Disabled   bool   `yaml:"disabled" json:"disabled"`
}

var camValidator = validator.NewValidator()

// Normalize trims fields and derives a missing youtube id from a youtube url.
func (c Cam) Normalize() Cam {
	c.ID = strings.TrimSpace(c.ID)
	c.Kind = Kind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
	c.Title = strings.TrimSpace(c.Title)
	c.Place = strings.TrimSpace(c.Place)
	c.Source = strings.TrimSpace(c.Source)
	c.OriginURL = strings.TrimSpace(c.OriginURL)
	c.YouTubeID = strings.TrimSpace(c.YouTubeID)
	c.URL = strings.TrimSpace(c.URL)

	if c.Kind == KindYouTube && c.YouTubeID == "" && c.URL != "" {
		c.YouTubeID = youTubeIDFromURL(c.URL)
	}

	return c
}

// Validate returns the reasons the descriptor is not addressable, nil if it is.
func (c Cam) Validate() []validator.ValidationError {
	errs, ok := camValidator.Validate(c)
	if ok {
		return nil
	}

	return errs
}

// Round returns the round length for this cam, def unless maxSeconds overrides it.
func (c Cam) Round(def time.Duration) time.Duration {
	if c.MaxSeconds > 0 {
		return time.Duration(c.MaxSeconds) * time.Second
	}

	return def
}

func (c Cam) Info() protocol.CamInfo {
	return protocol.CamInfo{
		ID:        c.ID,
		Title:     c.Title,
		Place:     c.Place,
		Source:    c.Source,
		OriginURL: c.OriginURL,
		Kind:      string(c.Kind),
	}
}

func (c Cam) LoadInfo() protocol.LoadCam {
	return protocol.LoadCam{
		CamInfo:    c.Info(),
		YouTubeID:  c.YouTubeID,
		URL:        c.URL,
		MaxSeconds: c.MaxSeconds,
	}
}

func youTubeIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}

		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "embed" || parts[0] == "live") {
			return parts[1]
		}
	}

	return ""
}
