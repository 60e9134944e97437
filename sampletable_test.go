package mp4

import "testing"

func buildTestStbl(sizes []uint32, chunkEntries []STSCEntry, offsets []uint32) *Box {
	stsz := &Box{Type: TypeStsz, HasFullBox: true, Stsz: &Stsz{Entries: sizes}}
	stsc := &Box{Type: TypeStsc, HasFullBox: true, Stsc: &Stsc{Entries: chunkEntries}}
	stco := &Box{Type: TypeStco, HasFullBox: true, Stco: &Stco{Entries: offsets}}
	stbl := &Box{Type: TypeStbl, Children: map[BoxType][]*Box{}}
	stbl.SetChild(TypeStsz, stsz)
	stbl.SetChild(TypeStsc, stsc)
	stbl.SetChild(TypeStco, stco)
	return stbl
}

func wrapStblInTrak(stbl *Box) *Box {
	minf := &Box{Type: TypeMinf, Children: map[BoxType][]*Box{}}
	minf.SetChild(TypeStbl, stbl)
	mdia := &Box{Type: TypeMdia, Children: map[BoxType][]*Box{}}
	mdia.SetChild(TypeMinf, minf)
	trak := &Box{Type: TypeTrak, Children: map[BoxType][]*Box{}}
	trak.SetChild(TypeMdia, mdia)
	return trak
}

func TestReadSamplesOneChunkPerSample(t *testing.T) {
	// 3 samples, one chunk each, at offsets 100/300/700, sizes 50/80/20.
	stbl := buildTestStbl(
		[]uint32{50, 80, 20},
		[]STSCEntry{{FirstChunk: 1, SamplesPerChunk: 1, SampleDescriptionId: 1}},
		[]uint32{100, 300, 700},
	)
	trak := wrapStblInTrak(stbl)

	samples, err := ReadSamples(trak)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	want := []Sample{
		{Offset: 100, Size: 50, ChunkIndex: 1},
		{Offset: 300, Size: 80, ChunkIndex: 2},
		{Offset: 700, Size: 20, ChunkIndex: 3},
	}
	for i, w := range want {
		if samples[i].Offset != w.Offset || samples[i].Size != w.Size || samples[i].ChunkIndex != w.ChunkIndex {
			t.Errorf("sample %d: got %+v, want %+v", i, samples[i], w)
		}
	}
}

func TestReadSamplesMultipleSamplesPerChunk(t *testing.T) {
	// 4 samples packed 2-per-chunk into 2 chunks at offsets 1000, 2000.
	stbl := buildTestStbl(
		[]uint32{10, 10, 20, 20},
		[]STSCEntry{{FirstChunk: 1, SamplesPerChunk: 2, SampleDescriptionId: 1}},
		[]uint32{1000, 2000},
	)
	trak := wrapStblInTrak(stbl)

	samples, err := ReadSamples(trak)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(samples))
	}
	// Chunk 1 holds samples 0,1 back-to-back from offset 1000.
	if samples[0].Offset != 1000 || samples[1].Offset != 1010 {
		t.Errorf("chunk 1 offsets: got %d, %d", samples[0].Offset, samples[1].Offset)
	}
	// Chunk 2 holds samples 2,3 back-to-back from offset 2000.
	if samples[2].Offset != 2000 || samples[3].Offset != 2020 {
		t.Errorf("chunk 2 offsets: got %d, %d", samples[2].Offset, samples[3].Offset)
	}
}
