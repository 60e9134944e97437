package karaoke_test

import (
	"testing"

	"github.com/jorgealamilla/loukai/karaoke"
)

func TestVpchRoundTrip(t *testing.T) {
	pitch := &karaoke.VocalPitch{SampleRateHz: karaoke.DefaultVocalPitchSampleRateHz, Values: []float32{0, 60.5, -12.25, 6900.0}}

	data := karaoke.EncodeVpch(pitch)
	got, err := karaoke.DecodeVpch(data, pitch.SampleRateHz)
	if err != nil {
		t.Fatalf("DecodeVpch: %v", err)
	}
	if len(got.Values) != len(pitch.Values) {
		t.Fatalf("got %d values, want %d", len(got.Values), len(pitch.Values))
	}
	for i, v := range pitch.Values {
		if got.Values[i] != v {
			t.Errorf("value %d: got %v, want %v", i, got.Values[i], v)
		}
	}
}

func TestDecodeVpchRejectsMisalignedLength(t *testing.T) {
	if _, err := karaoke.DecodeVpch([]byte{1, 2, 3}, 25); err == nil {
		t.Fatal("expected an error for a length not a multiple of 4")
	}
}

func TestKonsRoundTrip(t *testing.T) {
	onsets := []float64{0, 0.5, 1.333333, 120.0}
	data := karaoke.EncodeKons(onsets, 0, 0)
	got, err := karaoke.DecodeKons(data, 0, 0)
	if err != nil {
		t.Fatalf("DecodeKons: %v", err)
	}
	if len(got) != len(onsets) {
		t.Fatalf("got %d onsets, want %d", len(got), len(onsets))
	}
	for i, v := range onsets {
		if got[i] != v {
			t.Errorf("onset %d: got %v, want %v", i, got[i], v)
		}
	}
}

func TestKonsRoundTripAppliesEncoderDelay(t *testing.T) {
	onsets := []float64{0, 0.5, 1.333333, 120.0}
	const delaySamples, sampleRate = karaoke.AACPrimingSamples, 44100

	data := karaoke.EncodeKons(onsets, delaySamples, sampleRate)
	got, err := karaoke.DecodeKons(data, delaySamples, sampleRate)
	if err != nil {
		t.Fatalf("DecodeKons: %v", err)
	}
	if len(got) != len(onsets) {
		t.Fatalf("got %d onsets, want %d", len(got), len(onsets))
	}
	for i, v := range onsets {
		if d := got[i] - v; d < -1e-6 || d > 1e-6 {
			t.Errorf("onset %d: got %v, want %v", i, got[i], v)
		}
	}

	raw, err := karaoke.DecodeKons(data, 0, 0)
	if err != nil {
		t.Fatalf("DecodeKons (raw): %v", err)
	}
	wire := karaoke.ToWire(onsets[1], delaySamples, sampleRate)
	if d := raw[1] - wire; d < -1e-9 || d > 1e-9 {
		t.Errorf("wire-encoded onset = %v, want %v", raw[1], wire)
	}
}
