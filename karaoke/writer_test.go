package karaoke_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	mp4 "github.com/jorgealamilla/loukai"
	"github.com/jorgealamilla/loukai/karaoke"
)

// buildMinimalStemFile assembles a tiny but structurally real .stem.m4a:
// ftyp + moov (one audio trak, two one-sample chunks) + mdat. The two
// chunks are filled with distinct marker bytes so a test can confirm the
// physical sample bytes land at the offsets stco claims after a save.
func buildMinimalStemFile(t *testing.T) (path string, markerA, markerB byte) {
	t.Helper()
	markerA, markerB = 0xAA, 0xBB
	const sampleSize = 32

	ftyp := &mp4.Box{Type: mp4.TypeFtyp, Ftyp: &mp4.Ftyp{
		Brand:            [4]byte{'M', '4', 'A', ' '},
		BrandVersion:     0,
		CompatibleBrands: [][4]byte{{'M', '4', 'A', ' '}, {'m', 'p', '4', '2'}},
	}}
	ftypBytes, err := mp4.EncodeToBytes(ftyp)
	if err != nil {
		t.Fatalf("encoding ftyp: %v", err)
	}

	moov := buildMoov([]uint32{0, 0}, sampleSize)
	moovLen := int(mp4.EncodingLength(moov))

	// mdat sits right after moov; compute the two chunks' absolute offsets
	// now that moov's length (stco's values don't affect its size) is known.
	mdatHeaderSize := 8
	offsetA := len(ftypBytes) + moovLen + mdatHeaderSize
	offsetB := offsetA + int(sampleSize)

	stbl := findStblForTest(moov)
	stbl.Child(mp4.TypeStco).Stco.Entries = []uint32{uint32(offsetA), uint32(offsetB)}

	moovBytes, err := mp4.EncodeToBytes(moov)
	if err != nil {
		t.Fatalf("encoding moov: %v", err)
	}
	if len(moovBytes) != moovLen {
		t.Fatalf("moov length changed after setting offsets: got %d, want %d", len(moovBytes), moovLen)
	}

	payload := make([]byte, sampleSize*2)
	for i := range payload[:sampleSize] {
		payload[i] = markerA
	}
	for i := sampleSize; i < len(payload); i++ {
		payload[i] = markerB
	}
	mdatBox := &mp4.Box{Type: mp4.TypeMdat, Mdat: &mp4.Mdat{Buffer: payload}}
	mdatBytes, err := mp4.EncodeToBytes(mdatBox)
	if err != nil {
		t.Fatalf("encoding mdat: %v", err)
	}

	var buf bytes.Buffer
	buf.Write(ftypBytes)
	buf.Write(moovBytes)
	buf.Write(mdatBytes)

	path = filepath.Join(t.TempDir(), "song.stem.m4a")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path, markerA, markerB
}

// buildMoov constructs a minimal moov with a single audio trak holding a
// two-sample, one-chunk-per-sample table (stsz/stsc/stco only; no stsd,
// since sample-table decoding never looks at it).
func buildMoov(offsets []uint32, sampleSize uint32) *mp4.Box {
	stsz := &mp4.Box{Type: mp4.TypeStsz, HasFullBox: true, Stsz: &mp4.Stsz{Entries: []uint32{sampleSize, sampleSize}}}
	stsc := &mp4.Box{Type: mp4.TypeStsc, HasFullBox: true, Stsc: &mp4.Stsc{
		Entries: []mp4.STSCEntry{{FirstChunk: 1, SamplesPerChunk: 1, SampleDescriptionId: 1}},
	}}
	stco := &mp4.Box{Type: mp4.TypeStco, HasFullBox: true, Stco: &mp4.Stco{Entries: offsets}}
	stbl := &mp4.Box{Type: mp4.TypeStbl, Children: map[mp4.BoxType][]*mp4.Box{}}
	stbl.SetChild(mp4.TypeStsz, stsz)
	stbl.SetChild(mp4.TypeStsc, stsc)
	stbl.SetChild(mp4.TypeStco, stco)

	minf := &mp4.Box{Type: mp4.TypeMinf, Children: map[mp4.BoxType][]*mp4.Box{}}
	minf.SetChild(mp4.TypeStbl, stbl)
	mdia := &mp4.Box{Type: mp4.TypeMdia, Children: map[mp4.BoxType][]*mp4.Box{}}
	mdia.SetChild(mp4.TypeMinf, minf)
	trak := &mp4.Box{Type: mp4.TypeTrak, Children: map[mp4.BoxType][]*mp4.Box{}}
	trak.SetChild(mp4.TypeMdia, mdia)

	moov := &mp4.Box{Type: mp4.TypeMoov, Children: map[mp4.BoxType][]*mp4.Box{}}
	moov.AppendChild(mp4.TypeTrak, trak)
	return moov
}

func findStblForTest(moov *mp4.Box) *mp4.Box {
	trak := moov.ChildList(mp4.TypeTrak)[0]
	return trak.Child(mp4.TypeMdia).Child(mp4.TypeMinf).Child(mp4.TypeStbl)
}

func testSong() *karaoke.Song {
	return &karaoke.Song{
		Audio: karaoke.Audio{
			Profile:             karaoke.ProfileStems2,
			EncoderDelaySamples: 0,
			Sources: []karaoke.Source{
				{TrackIndex: 0, ID: "mix", Role: karaoke.RoleMixdown},
				{TrackIndex: 1, ID: "vox", Role: karaoke.RoleVocals},
			},
		},
		Timing:  karaoke.Timing{Reference: karaoke.ReferenceAlignedToVocals},
		Singers: []karaoke.Singer{{ID: "s1", DisplayName: "Singer", GuideTrackIndex: 1}},
		Lines: []karaoke.LyricLine{
			{
				SingerID: "s1", StartSec: 1.0, EndSec: 2.0, Text: "hi there",
				Words: []karaoke.Word{{StartSec: 0, EndSec: 0.4, Text: "hi"}, {StartSec: 0.4, EndSec: 1.0, Text: "there"}},
			},
		},
		ITunesMetadata: karaoke.ITunesMetadata{Title: "Test Song", Artist: "Test Artist"},
	}
}

func TestSaveRewritesChunkOffsetsAndRoundTripsPayload(t *testing.T) {
	path, markerA, markerB := buildMinimalStemFile(t)
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	song := testSong()
	if err := karaoke.Save(song, path, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	patched, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(patched) <= len(original) {
		t.Fatalf("expected the file to grow after adding karaoke payload: got %d bytes, was %d", len(patched), len(original))
	}

	file, err := mp4.DecodeFile(patched)
	if err != nil {
		t.Fatalf("decoding patched file: %v", err)
	}
	moovTB, ok := file.Moov()
	if !ok {
		t.Fatal("patched file has no moov")
	}
	trak := moovTB.Box.ChildList(mp4.TypeTrak)[0]
	samples, err := mp4.ReadSamples(trak)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}

	for i, want := range []byte{markerA, markerB} {
		s := samples[i]
		if int(s.Offset)+int(s.Size) > len(patched) {
			t.Fatalf("sample %d offset/size out of bounds: offset=%d size=%d filelen=%d", i, s.Offset, s.Size, len(patched))
		}
		got := patched[s.Offset]
		if got != want {
			t.Errorf("sample %d: marker byte at rewritten offset %d is %#x, want %#x", i, s.Offset, got, want)
		}
	}

	loaded, err := karaoke.Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if len(loaded.Lines) != 1 || loaded.Lines[0].Text != "hi there" {
		t.Fatalf("unexpected lines after round trip: %+v", loaded.Lines)
	}
	if loaded.ITunesMetadata.Title != "Test Song" || loaded.ITunesMetadata.Artist != "Test Artist" {
		t.Errorf("unexpected metadata after round trip: %+v", loaded.ITunesMetadata)
	}

	if err := karaoke.Validate(song, path, original); err != nil {
		t.Errorf("Validate after Save: %v", err)
	}

	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Errorf("expected .bak sibling to be removed on success, stat err = %v", err)
	}
}
