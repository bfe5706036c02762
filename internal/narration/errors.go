package narration

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrSynthesisFailed wraps every remote synthesis failure.
	ErrSynthesisFailed = stderrors.New("synthesis failed")
	// ErrPlaybackFailed is returned when the audio backend refuses to play.
	ErrPlaybackFailed = stderrors.New("playback failed")
	// ErrSpeechUnavailable means the local speaker cannot be used.
	ErrSpeechUnavailable = stderrors.New("speech unavailable")
)

// Status classifies a synthesis failure.
type Status int

const (
	StatusOther Status = iota
	StatusRateLimited
	StatusUnavailable
	StatusNetwork
)

func (s Status) String() string {
	switch s {
	case StatusRateLimited:
		return "rate_limited"
	case StatusUnavailable:
		return "unavailable"
	case StatusNetwork:
		return "network"
	default:
		return "other"
	}
}

// SynthesisError carries the backend's classification of a failure.
// errors.Is(err, ErrSynthesisFailed) holds for every SynthesisError.
type SynthesisError struct {
	Status Status
	Code   int
	Err    error
}

func (e *SynthesisError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("synthesis failed (%s, http %d): %v", e.Status, e.Code, e.Err)
	}
	return fmt.Sprintf("synthesis failed (%s): %v", e.Status, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesisFailed }

// Warning is a non-fatal narration problem surfaced to the front end.
type Warning struct {
	Request   Request
	Err       error
	Retryable bool
}

func (w Warning) Error() string { return w.Err.Error() }
