package mp4

import "testing"

func buildTrakWithOffsets(entries []uint32) *Box {
	stco := &Box{Type: TypeStco, HasFullBox: true, Stco: &Stco{Entries: append([]uint32(nil), entries...)}}
	stbl := &Box{Type: TypeStbl, Children: map[BoxType][]*Box{}}
	stbl.SetChild(TypeStco, stco)
	minf := &Box{Type: TypeMinf, Children: map[BoxType][]*Box{}}
	minf.SetChild(TypeStbl, stbl)
	mdia := &Box{Type: TypeMdia, Children: map[BoxType][]*Box{}}
	mdia.SetChild(TypeMinf, minf)
	trak := &Box{Type: TypeTrak, Children: map[BoxType][]*Box{}}
	trak.SetChild(TypeMdia, mdia)
	return trak
}

func TestRewriteChunkOffsetsThreshold(t *testing.T) {
	tests := []struct {
		name      string
		entries   []uint32
		delta     int64
		threshold uint64
		want      []uint32
	}{
		{"all above threshold shift", []uint32{100, 200, 300}, 50, 0, []uint32{150, 250, 350}},
		{"below threshold untouched", []uint32{10, 500, 600}, 20, 100, []uint32{10, 520, 620}},
		{"negative delta shrink", []uint32{1000, 2000}, -300, 0, []uint32{700, 1700}},
		{"zero delta no-op", []uint32{42}, 0, 0, []uint32{42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trak := buildTrakWithOffsets(tt.entries)
			moov := &Box{Type: TypeMoov, Children: map[BoxType][]*Box{}}
			moov.AppendChild(TypeTrak, trak)

			if err := RewriteChunkOffsets(moov, tt.delta, tt.threshold); err != nil {
				t.Fatalf("RewriteChunkOffsets: %v", err)
			}

			stbl := findStbl(trak)
			got := stbl.Child(TypeStco).Stco.Entries
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRewriteChunkOffsetsUpgradesToCo64OnOverflow(t *testing.T) {
	trak := buildTrakWithOffsets([]uint32{0xFFFFFFF0})
	moov := &Box{Type: TypeMoov, Children: map[BoxType][]*Box{}}
	moov.AppendChild(TypeTrak, trak)

	if err := RewriteChunkOffsets(moov, 1000, 0); err != nil {
		t.Fatalf("RewriteChunkOffsets: %v", err)
	}

	stbl := findStbl(trak)
	if stbl.Child(TypeStco) != nil {
		t.Fatal("expected stco to be removed after co64 upgrade")
	}
	co64 := stbl.Child(TypeCo64)
	if co64 == nil || co64.Co64 == nil {
		t.Fatal("expected co64 box after upgrade")
	}
	want := uint64(0xFFFFFFF0) + 1000
	if co64.Co64.Entries[0] != want {
		t.Errorf("got %d, want %d", co64.Co64.Entries[0], want)
	}
	if !UsesCo64(moov) {
		t.Error("UsesCo64 should report true after upgrade")
	}
}
