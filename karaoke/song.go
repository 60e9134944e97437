package karaoke

import "sort"

// Role is a closed enum of stem roles, with an escape hatch for values the
// schema doesn't yet know about (future stem-separation models may emit
// new roles before this package is updated to recognise them).
type Role string

const (
	RoleMixdown Role = "mixdown"
	RoleDrums   Role = "drums"
	RoleBass    Role = "bass"
	RoleOther   Role = "other"
	RoleVocals  Role = "vocals"
	RoleMusic   Role = "music"
)

// OtherRole wraps an unrecognised role string so it still round-trips.
func OtherRole(s string) Role { return Role(s) }

func (r Role) known() bool {
	switch r {
	case RoleMixdown, RoleDrums, RoleBass, RoleOther, RoleVocals, RoleMusic:
		return true
	}
	return false
}

// Profile is the stem-count profile, closed with the same escape hatch.
type Profile string

const (
	ProfileStems2 Profile = "STEMS-2"
	ProfileStems4 Profile = "STEMS-4"
)

func OtherProfile(s string) Profile { return Profile(s) }

// Reference names the timing anchor used when computing offset_sec.
type Reference string

const (
	ReferenceAlignedToVocals  Reference = "aligned_to_vocals"
	ReferenceAlignedToMixdown Reference = "aligned_to_mixdown"
)

// Source is one stem's placement in the container: its track index, its
// stable identifier, and its role.
type Source struct {
	TrackIndex uint32
	ID         string
	Role       Role
}

// Preset is a named mixing preset: a per-role gain in dB.
type Preset struct {
	ID     string
	Levels map[Role]float64
}

// Audio holds the stem/profile metadata stored in kaid.audio.
type Audio struct {
	Profile             Profile
	EncoderDelaySamples  uint32
	Sources              []Source
	Presets              []Preset
}

// Timing holds kaid.timing: which track the lyric times are anchored to,
// and a manual offset applied on top of that anchor.
type Timing struct {
	Reference Reference
	OffsetSec float32
}

// Singer is one performer: an id referenced by LyricLine.SingerID, a
// display name, and the index of the audio track that guides them.
type Singer struct {
	ID               string
	DisplayName      string
	GuideTrackIndex  uint32
}

// Word is one karaoke-highlighted word within a LyricLine, with times
// relative to the line's own start (matching kaid's word_timing encoding).
type Word struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// LyricLine is one karaoke cue: absolute start/end, singer, and the
// per-word highlight timeline.
type LyricLine struct {
	SingerID string
	StartSec float64
	EndSec   float64
	Text     string
	Disabled bool
	Words    []Word
}

// VocalPitch is the optional vpch payload: f32 MIDI-cent pitch values
// sampled at SampleRateHz (25 Hz in the reference encoder).
type VocalPitch struct {
	SampleRateHz uint16
	Values       []float32
}

// ITunesMetadata holds the standard iTunes single-value tags plus optional
// cover art.
type ITunesMetadata struct {
	Title    string
	Artist   string
	Album    string
	Year     string
	Genre    string
	CoverArt []byte
}

// Song is the unified in-memory representation produced by the loader
// façade (C8) and consumed/produced by the writer façade (C9).
type Song struct {
	Audio          Audio
	Timing         Timing
	Singers        []Singer
	Lines          []LyricLine
	VocalPitch     *VocalPitch
	Onsets         []float64
	ITunesMetadata ITunesMetadata
}

// Validate checks the LyricLine invariants from §3: start <= end, word
// times within the line, monotone starts per singer, no same-singer
// overlap. Lines for different singers may overlap freely (duets).
func (s *Song) Validate() error {
	for i, line := range s.Lines {
		if line.StartSec > line.EndSec {
			return &WordBoundsError{LineIndex: i, WordIndex: -1}
		}
		for w, word := range line.Words {
			if word.StartSec > word.EndSec || word.StartSec < 0 || line.StartSec+word.EndSec > line.EndSec {
				return &WordBoundsError{LineIndex: i, WordIndex: w}
			}
		}
	}

	bySinger := map[string][]int{}
	for i, line := range s.Lines {
		bySinger[line.SingerID] = append(bySinger[line.SingerID], i)
	}

	for singer, idxs := range bySinger {
		// idxs is in the order lines were given to us. Check monotonicity
		// against that order before sorting, or a shuffled-in-time input
		// would sort itself into a passing check.
		for k := 1; k < len(idxs); k++ {
			prev := s.Lines[idxs[k-1]]
			cur := s.Lines[idxs[k]]
			if cur.StartSec < prev.StartSec {
				return &NonMonotonicError{SingerID: singer, Index: idxs[k]}
			}
		}

		sorted := append([]int(nil), idxs...)
		sort.Slice(sorted, func(a, b int) bool { return s.Lines[sorted[a]].StartSec < s.Lines[sorted[b]].StartSec })
		for k := 1; k < len(sorted); k++ {
			prev := s.Lines[sorted[k-1]]
			cur := s.Lines[sorted[k]]
			if cur.StartSec < prev.EndSec {
				return &OverlapError{SingerID: singer, FirstIndex: sorted[k-1], SecondIndex: sorted[k]}
			}
		}
	}
	return nil
}
