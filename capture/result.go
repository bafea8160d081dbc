package capture

import (
	"errors"

	"github.com/rs/zerolog"
)

// ErrVideoNotRenamed marks a visit whose screenshot exists but whose video could not be moved
var ErrVideoNotRenamed = errors.New("video file not renamed")

// Outcome is what happened to a single URL
type Outcome int

const (
	OutcomeCaptured     Outcome = iota // screenshot and video written
	OutcomeVideoMissing                // screenshot written, video not renamed
	OutcomeSkipped                     // URL does not start with "http"
	OutcomeTimedOut                    // navigation exceeded the timeout
	OutcomeFailed                      // page, navigation or screenshot error
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCaptured:
		return "captured"
	case OutcomeVideoMissing:
		return "video-missing"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes the visit of one URL
type Result struct {
	URL        string
	Domain     string
	Outcome    Outcome
	Screenshot string // empty unless written
	Video      string // empty unless renamed
	Err        error
}

// Summary counts outcomes over a run
type Summary struct {
	Captured     int
	VideoMissing int
	Skipped      int
	TimedOut     int
	Failed       int
}

// Add counts r
func (s *Summary) Add(r Result) {
	switch r.Outcome {
	case OutcomeCaptured:
		s.Captured++
	case OutcomeVideoMissing:
		s.VideoMissing++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeTimedOut:
		s.TimedOut++
	case OutcomeFailed:
		s.Failed++
	}
}

// Total is the number of URLs counted
func (s Summary) Total() int {
	return s.Captured + s.VideoMissing + s.Skipped + s.TimedOut + s.Failed
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("captured", s.Captured).
		Int("video_missing", s.VideoMissing).
		Int("skipped", s.Skipped).
		Int("timed_out", s.TimedOut).
		Int("failed", s.Failed)
}
