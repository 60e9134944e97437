package mux

import (
	"errors"
	"fmt"
)

// ErrExternalEncoderFailed mirrors karaoke.ErrExternalEncoderFailed; the
// two packages keep separate sentinels to avoid an import cycle (karaoke
// will, in a full build, wrap this at the façade boundary that calls into
// mux).
var ErrExternalEncoderFailed = errors.New("mux: external subprocess failed")

// ExternalEncoderError carries a failed subprocess's stderr and the
// lifecycle state it ended in.
type ExternalEncoderError struct {
	Stderr   string
	ExitCode int
	State    State
}

func (e *ExternalEncoderError) Error() string {
	return fmt.Sprintf("mux: subprocess ended in state %s (exit %d): %s", e.State, e.ExitCode, e.Stderr)
}

func (e *ExternalEncoderError) Unwrap() error { return ErrExternalEncoderFailed }
