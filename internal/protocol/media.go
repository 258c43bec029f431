package protocol

import (
	"encoding/json"
	"fmt"
)

type FailureReason string

const (
	ReasonInvalidCam      FailureReason = "invalid_cam"
	ReasonYTTimeout       FailureReason = "yt_timeout"
	ReasonHLSStartTimeout FailureReason = "hls_start_timeout"
	ReasonHLSFatal        FailureReason = "hls_fatal"
	ReasonHLSUnsupported  FailureReason = "hls_unsupported"
	ReasonVidError        FailureReason = "vid_error"
	ReasonUnsupportedKind FailureReason = "unsupported_kind"
)

var FailureReasons = []FailureReason{
	ReasonInvalidCam, ReasonYTTimeout, ReasonHLSStartTimeout, ReasonHLSFatal,
	ReasonHLSUnsupported, ReasonVidError, ReasonUnsupportedKind,
}

func ParseFailureReason(s string) (FailureReason, error) {
	for _, r := range FailureReasons {
		if string(r) == s {
			return r, nil
		}
	}

	return "", fmt.Errorf("%w: unknown failure reason %q", ErrMalformed, s)
}

// LoadCam is the full descriptor sent to the renderer, payload included.
type LoadCam struct {
	CamInfo
	YouTubeID  string `json:"youtubeId,omitempty"`
	URL        string `json:"url,omitempty"`
	MaxSeconds int    `json:"maxSeconds,omitempty"`
}

// Load asks the renderer to show a cam. Seq identifies this load in media reports.
type Load struct {
	Type string  `json:"type"`
	Seq  uint64  `json:"seq"`
	Cam  LoadCam `json:"cam"`
	Fit  string  `json:"fit"`
}

type MediaEvent string

const (
	MediaReady MediaEvent = "ready"
	MediaError MediaEvent = "error"
)

type MediaReport struct {
	Event  MediaEvent    `json:"event"`
	Seq    uint64        `json:"seq"`
	ID     string        `json:"id"`
	Reason FailureReason `json:"reason,omitempty"`
}

// Validate checks the event and, for errors, that the reason is known.
func (r MediaReport) Validate() error {
	switch r.Event {
	case MediaReady:
		return nil
	case MediaError:
		if _, err := ParseFailureReason(string(r.Reason)); err != nil {
			return err
		}
		return nil
	}

	return fmt.Errorf("%w: unknown media event %q", ErrMalformed, r.Event)
}

func EncodeLoad(l Load) ([]byte, error) {
	l.Type = TypeLoad
	return json.Marshal(l)
}
