package mp4

import "fmt"

// sampletable.go implements C13, the sample-table reader: it expands a
// trak's stsc/stsz/stco(or co64)/stts tables into a flat per-sample list.
// This is grounded on the teacher's original streaming track reader, but
// rebuilt against the whole-tree Box/Decode API actually implemented in
// box.go/codec.go rather than the mismatched iterator API the retrieved
// source carried.

// Sample describes one sample's placement in mdat and its decode time.
type Sample struct {
	Offset     uint64 // absolute byte offset into the file
	Size       uint32
	DTS        uint64 // decode timestamp, in the track's own timescale
	ChunkIndex uint32 // 1-based chunk number this sample belongs to
}

// ReadSamples expands trak's sample tables into one Sample per sample, in
// decode order. Used by the validator (C11) to pick random samples to
// re-derive.
func ReadSamples(trak *Box) ([]Sample, error) {
	stbl := findStbl(trak)
	if stbl == nil {
		return nil, fmt.Errorf("mp4: trak has no stbl")
	}

	stsz := stbl.Child(TypeStsz)
	if stsz == nil || stsz.Stsz == nil {
		return nil, fmt.Errorf("mp4: stbl has no stsz")
	}
	stsc := stbl.Child(TypeStsc)
	if stsc == nil || stsc.Stsc == nil {
		return nil, fmt.Errorf("mp4: stbl has no stsc")
	}

	offsets, err := chunkOffsets(stbl)
	if err != nil {
		return nil, err
	}

	sizes := stsz.Stsz.Entries
	chunkOfSample := expandStsc(stsc.Stsc.Entries, len(offsets), len(sizes))
	if len(chunkOfSample) < len(sizes) {
		return nil, fmt.Errorf("mp4: stsc/stsz mismatch: %d chunk assignments for %d samples", len(chunkOfSample), len(sizes))
	}

	durations := sampleDurations(stbl, len(sizes))

	samples := make([]Sample, len(sizes))
	var dts uint64
	runningOffset := make(map[uint32]uint64, len(offsets))
	for i, size := range sizes {
		chunk := chunkOfSample[i]
		if int(chunk-1) >= len(offsets) {
			return nil, fmt.Errorf("mp4: sample %d references chunk %d beyond %d chunk offsets", i, chunk, len(offsets))
		}
		base, ok := runningOffset[chunk]
		if !ok {
			base = offsets[chunk-1]
		}
		samples[i] = Sample{Offset: base, Size: size, DTS: dts, ChunkIndex: chunk}
		runningOffset[chunk] = base + uint64(size)
		dts += durations[i]
	}
	return samples, nil
}

func chunkOffsets(stbl *Box) ([]uint64, error) {
	if co64 := stbl.Child(TypeCo64); co64 != nil && co64.Co64 != nil {
		return co64.Co64.Entries, nil
	}
	if stco := stbl.Child(TypeStco); stco != nil && stco.Stco != nil {
		out := make([]uint64, len(stco.Stco.Entries))
		for i, v := range stco.Stco.Entries {
			out[i] = uint64(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("mp4: stbl has no stco/co64")
}

// expandStsc maps each sample index (0-based) to its 1-based chunk number,
// per the compact run-length encoding in ISO 14496-12 8.7.4: each entry
// says "from FirstChunk onward, every chunk holds SamplesPerChunk samples"
// until the next entry's FirstChunk.
func expandStsc(entries []STSCEntry, chunkCount, sampleCount int) []uint32 {
	out := make([]uint32, 0, sampleCount)
	for i := 0; i < len(entries) && len(out) < sampleCount; i++ {
		first := entries[i].FirstChunk
		var last uint32
		if i+1 < len(entries) {
			last = entries[i+1].FirstChunk - 1
		} else {
			last = uint32(chunkCount)
		}
		for chunk := first; chunk <= last && len(out) < sampleCount; chunk++ {
			for s := uint32(0); s < entries[i].SamplesPerChunk && len(out) < sampleCount; s++ {
				out = append(out, chunk)
			}
		}
	}
	return out
}

// sampleDurations expands stts into a per-sample duration slice, in the
// track's timescale. Falls back to all-zero durations (DTS stays at the
// track's start) if stts is absent, which only happens for malformed or
// partially-synthesised trees.
func sampleDurations(stbl *Box, sampleCount int) []uint64 {
	out := make([]uint64, sampleCount)
	stts := stbl.Child(TypeStts)
	if stts == nil || stts.Stts == nil {
		return out
	}
	i := 0
	for _, e := range stts.Stts.Entries {
		for c := uint32(0); c < e.Count && i < sampleCount; c++ {
			out[i] = uint64(e.Duration)
			i++
		}
	}
	return out
}
