// Package player implements adaptive source selection and the playback
// controller that binds the chosen variant to a single media element.
//
// The media element and the adaptive-stream pipeline are collaborators behind
// interfaces: MPV is the production media element and the hls package provides
// the pipeline.
package player

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAutoplayBlocked is returned by MediaElement.Play when the platform refuses to start playback.
	ErrAutoplayBlocked = errors.New("autoplay blocked")

	// ErrNoSources means the variant list is empty.
	ErrNoSources = errors.New("no source available")

	// ErrSelectionMiss means no variant matches the requested tier and language.
	ErrSelectionMiss = errors.New("no variant matches selection")

	// ErrDetached is returned by every operation after the player was closed.
	ErrDetached = errors.New("player detached")
)

// MediaEvent is a state change reported by the media element.
type MediaEvent int

const (
	MediaPlaying MediaEvent = iota
	MediaPaused
	MediaEnded
	// MediaError carries a decode failure of the current source.
	MediaError
)

// MediaElement is the single output surface a player drives.
type MediaElement interface {
	SetSource(url string, headers map[string]string) error
	ClearSource() error
	// Play requests playback and returns once it started or was refused.
	Play(ctx context.Context) error
	Pause() error
	CurrentTime() (float64, error)
	Seek(seconds float64) error
	// SupportsAdaptive reports whether manifest-based streams play without a pipeline.
	SupportsAdaptive() bool
	Subscribe(fn func(ev MediaEvent, err error)) (unsubscribe func())
}

// FaultKind classifies pipeline and media failures.
type FaultKind int

const (
	FaultNetwork FaultKind = iota
	FaultDecode
	FaultOther
)

func (k FaultKind) String() string {
	switch k {
	case FaultNetwork:
		return "network"
	case FaultDecode:
		return "decode"
	default:
		return "other"
	}
}

// Fault is an error signalled by a pipeline or the media element.
type Fault struct {
	Kind  FaultKind
	Fatal bool
	Err   error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s error", f.Kind)
	}
	return fmt.Sprintf("%s error: %s", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// PipelineEventType enumerates pipeline callbacks.
type PipelineEventType int

const (
	ManifestParsed PipelineEventType = iota
	PipelineFault
)

// PipelineEvent is delivered to the handler registered with Pipeline.On.
type PipelineEvent struct {
	Type PipelineEventType
	// URL is what the media element should open, set on ManifestParsed.
	URL   string
	Fault *Fault
}

// Pipeline demuxes an adaptive stream into a media element.
type Pipeline interface {
	// Load points the pipeline at a manifest. Headers go on every manifest and segment request.
	Load(url string, headers map[string]string) error
	// Attach hands the pipeline the media element it feeds. The pipeline never
	// sets its source; the owner does that with the URL from ManifestParsed.
	Attach(media MediaElement) error
	On(fn func(PipelineEvent))
	// Reload fetches the current manifest again after a network fault.
	Reload() error
	// RecoverDecoder prepares a fresh decode of the current stream and
	// returns the URL the media element should re-open.
	RecoverDecoder() (string, error)
	// Destroy releases every resource. No event is delivered afterwards.
	Destroy() error
}

// PipelineFactory creates a fresh pipeline for one binding.
type PipelineFactory func() (Pipeline, error)
