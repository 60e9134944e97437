package mp4

import (
	"errors"
	"fmt"
)

// Format-level sentinel errors returned by the box tree parser (C1).
var (
	ErrMalformedBox     = errors.New("mp4: malformed box")
	ErrTruncatedBox     = errors.New("mp4: truncated box")
	ErrUnknownContainer = errors.New("mp4: unknown container box")
)

func errTooShort(t BoxType, have, want int) error {
	return fmt.Errorf("%w: %s payload too short (have %d, want at least %d)", ErrMalformedBox, t, have, want)
}
