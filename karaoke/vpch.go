package karaoke

import (
	"encoding/binary"
	"fmt"
	"math"
)

// vpch.go / kons.go-equivalent binary codecs for C5's two sample-stream
// payloads: little-endian f32 pitch values (vpch) and little-endian f64
// onset timestamps (kons). Both are flat arrays with no header beyond the
// freeform atom's own mean/name/data wrapper (C4).

var le = binary.LittleEndian

// DefaultVocalPitchSampleRateHz is the fixed sample rate of the vpch
// stream; unlike encoder_delay_samples it is not carried in kaid itself.
const DefaultVocalPitchSampleRateHz = 25

// EncodeVpch serialises pitch to little-endian float32 bytes.
func EncodeVpch(pitch *VocalPitch) []byte {
	buf := make([]byte, len(pitch.Values)*4)
	for i, v := range pitch.Values {
		le.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVpch parses little-endian float32 pitch samples at sampleRateHz.
func DecodeVpch(data []byte, sampleRateHz uint16) (*VocalPitch, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("karaoke: vpch payload length %d is not a multiple of 4", len(data))
	}
	values := make([]float32, len(data)/4)
	for i := range values {
		values[i] = math.Float32frombits(le.Uint32(data[i*4:]))
	}
	return &VocalPitch{SampleRateHz: sampleRateHz, Values: values}, nil
}

// EncodeKons shifts onsets from logical to wire time the same way
// ApplyDelay shifts lyric lines (C7), then serialises them to
// little-endian float64 seconds.
func EncodeKons(onsets []float64, delaySamples, sampleRateHz uint32) []byte {
	buf := make([]byte, len(onsets)*8)
	for i, v := range onsets {
		le.PutUint64(buf[i*8:], math.Float64bits(ToWire(v, delaySamples, sampleRateHz)))
	}
	return buf
}

// DecodeKons parses little-endian float64 onset timestamps and shifts
// them from wire back to logical time (C7), mirroring RemoveDelay.
func DecodeKons(data []byte, delaySamples, sampleRateHz uint32) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("karaoke: kons payload length %d is not a multiple of 8", len(data))
	}
	onsets := make([]float64, len(data)/8)
	for i := range onsets {
		onsets[i] = ToLogical(math.Float64frombits(le.Uint64(data[i*8:])), delaySamples, sampleRateHz)
	}
	return onsets, nil
}
