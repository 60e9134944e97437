package karaoke

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"

	mp4 "github.com/jorgealamilla/loukai"
)

// validator.go implements C11: the post-save checks that a save actually
// produced a playable, internally consistent file before Save reports
// success.

const chunkSampleSize = 16

// signatureBytes is how many leading bytes of a sample Save compares
// against the pre-save file to confirm mdat itself was never touched,
// only the chunk offsets pointing into it (§4.11, §8 property 3).
const signatureBytes = 8

// Validate re-parses the file at path and checks it against expected, the
// Song that was just written, and original, the file's bytes immediately
// before that write. On any failure it returns an error wrapping
// ErrPostWriteValidationFailed.
func Validate(expected *Song, path string, original []byte) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: rereading saved file: %v", ErrPostWriteValidationFailed, err)
	}

	file, err := mp4.DecodeFile(data)
	if err != nil {
		return fmt.Errorf("%w: file no longer parses: %v", ErrPostWriteValidationFailed, err)
	}
	moovTB, ok := file.Moov()
	if !ok {
		return fmt.Errorf("%w: no moov box", ErrPostWriteValidationFailed)
	}
	moov := moovTB.Box

	ilst := findIlst(moov)
	if ilst == nil {
		return fmt.Errorf("%w: no ilst box", ErrPostWriteValidationFailed)
	}
	item, ok := mp4.GetFreeform(ilst, nsStems, nameKaid)
	if !ok {
		return fmt.Errorf("%w: kaid item missing after save", ErrPostWriteValidationFailed)
	}
	got, err := DecodeKaid(item.Value)
	if err != nil {
		return fmt.Errorf("%w: kaid does not decode: %v", ErrPostWriteValidationFailed, err)
	}
	if len(got.Lines) != len(expected.Lines) {
		return fmt.Errorf("%w: line count %d != expected %d", ErrPostWriteValidationFailed, len(got.Lines), len(expected.Lines))
	}
	if len(got.Lines) > 0 {
		if !closeEnough(got.Lines[0].StartSec, expected.Lines[0].StartSec) {
			return fmt.Errorf("%w: first line start %.3f != expected %.3f", ErrPostWriteValidationFailed, got.Lines[0].StartSec, expected.Lines[0].StartSec)
		}
		last := len(got.Lines) - 1
		if !closeEnough(got.Lines[last].EndSec, expected.Lines[last].EndSec) {
			return fmt.Errorf("%w: last line end %.3f != expected %.3f", ErrPostWriteValidationFailed, got.Lines[last].EndSec, expected.Lines[last].EndSec)
		}
	}

	stemItem := mp4.Stem(moov)
	if stemItem == nil {
		return fmt.Errorf("%w: stem box missing", ErrPostWriteValidationFailed)
	}
	count, err := StemCount(stemItem.Buffer)
	if err != nil {
		return fmt.Errorf("%w: stem box does not decode: %v", ErrPostWriteValidationFailed, err)
	}
	wantStems := 0
	for _, s := range expected.Audio.Sources {
		if s.Role != RoleMixdown {
			wantStems++
		}
	}
	if count != wantStems {
		return fmt.Errorf("%w: stem count %d != expected %d", ErrPostWriteValidationFailed, count, wantStems)
	}

	if err := validateChunkOffsets(data, moov, original); err != nil {
		return err
	}

	return nil
}

func closeEnough(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 0.001
}

// validateChunkOffsets checks that every audio track has at least one
// chunk offset entry, then samples up to chunkSampleSize random chunks
// spread across tracks and confirms both that the recorded offset
// addresses bytes still within the file, and that the bytes actually
// found there match the same sample's bytes in original — the real
// "mdat was never rewritten, only its chunk offsets moved" check from
// §4.11/§8 property 3, not just a bounds check.
func validateChunkOffsets(data []byte, moov *mp4.Box, original []byte) error {
	var allSamples []mp4.Sample
	for _, trak := range moov.ChildList(mp4.TypeTrak) {
		samples, err := mp4.ReadSamples(trak)
		if err != nil {
			continue
		}
		if len(samples) == 0 {
			return fmt.Errorf("%w: track has no chunk offsets", ErrPostWriteValidationFailed)
		}
		allSamples = append(allSamples, samples...)
	}
	if len(allSamples) == 0 {
		return nil
	}

	origFile, err := mp4.DecodeFile(original)
	if err != nil {
		return fmt.Errorf("%w: original file no longer parses: %v", ErrPostWriteValidationFailed, err)
	}
	origMoovTB, ok := origFile.Moov()
	if !ok {
		return fmt.Errorf("%w: original file has no moov box", ErrPostWriteValidationFailed)
	}
	var origSamples []mp4.Sample
	for _, trak := range origMoovTB.Box.ChildList(mp4.TypeTrak) {
		samples, err := mp4.ReadSamples(trak)
		if err != nil {
			continue
		}
		origSamples = append(origSamples, samples...)
	}
	if len(origSamples) != len(allSamples) {
		return fmt.Errorf("%w: sample count changed from %d to %d", ErrPostWriteValidationFailed, len(origSamples), len(allSamples))
	}

	n := chunkSampleSize
	if n > len(allSamples) {
		n = len(allSamples)
	}
	for i := 0; i < n; i++ {
		idx := rand.Intn(len(allSamples))
		s := allSamples[idx]
		orig := origSamples[idx]

		end := s.Offset + uint64(s.Size)
		if end > uint64(len(data)) {
			return fmt.Errorf("%w: %v", ErrChunkOffsetMismatch, fmt.Sprintf("sample at offset %d size %d exceeds file length %d", s.Offset, s.Size, len(data)))
		}

		sig := signatureBytes
		if sig > int(s.Size) {
			sig = int(s.Size)
		}
		if sig > int(orig.Size) {
			sig = int(orig.Size)
		}
		if sig == 0 {
			continue
		}
		want := original[orig.Offset : orig.Offset+uint64(sig)]
		got := data[s.Offset : s.Offset+uint64(sig)]
		if !bytes.Equal(want, got) {
			return fmt.Errorf("%w: sample %d at offset %d does not match original bytes at offset %d", ErrChunkOffsetMismatch, idx, s.Offset, orig.Offset)
		}
	}
	return nil
}
