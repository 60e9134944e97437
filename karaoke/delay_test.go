package karaoke_test

import (
	"math"
	"testing"

	"github.com/jorgealamilla/loukai/karaoke"
)

func TestEncoderDelaySymmetry(t *testing.T) {
	sampleRate := uint32(44100)
	delays := []uint32{0, 1, 1105, 4096}
	times := []float64{0, 0.5, 1.234, 10.0}

	for _, delay := range delays {
		for _, logical := range times {
			wire := karaoke.ToWire(logical, delay, sampleRate)
			back := karaoke.ToLogical(wire, delay, sampleRate)
			if math.Abs(back-logical) > 1.0/float64(sampleRate) {
				t.Errorf("delay=%d logical=%v: round trip gave %v (wire=%v)", delay, logical, back, wire)
			}
		}
	}
}

func TestApplyDelayShiftsLineTimesNotWordOffsets(t *testing.T) {
	lines := []karaoke.LyricLine{
		{StartSec: 1.0, EndSec: 2.0, Words: []karaoke.Word{{StartSec: 0.1, EndSec: 0.4}}},
	}
	shifted := karaoke.ApplyDelay(lines, 441, 44100) // 441/44100 = 0.01s

	if got, want := shifted[0].StartSec, 1.01; math.Abs(got-want) > 1e-9 {
		t.Errorf("start: got %v, want %v", got, want)
	}
	if got, want := shifted[0].EndSec, 2.01; math.Abs(got-want) > 1e-9 {
		t.Errorf("end: got %v, want %v", got, want)
	}
	if got, want := shifted[0].Words[0].StartSec, 0.1; got != want {
		t.Errorf("word start should stay line-relative: got %v, want %v", got, want)
	}
}
