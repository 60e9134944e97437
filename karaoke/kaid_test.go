package karaoke_test

import (
	"encoding/json"
	"testing"

	"github.com/jorgealamilla/loukai/karaoke"
)

func sampleSong() *karaoke.Song {
	return &karaoke.Song{
		Audio: karaoke.Audio{
			Profile:             karaoke.ProfileStems4,
			EncoderDelaySamples: karaoke.AACPrimingSamples,
			Sources: []karaoke.Source{
				{TrackIndex: 0, ID: "mix", Role: karaoke.RoleMixdown},
				{TrackIndex: 1, ID: "vox", Role: karaoke.RoleVocals},
			},
		},
		Timing:  karaoke.Timing{Reference: karaoke.ReferenceAlignedToVocals, OffsetSec: 0.25},
		Singers: []karaoke.Singer{{ID: "s1", DisplayName: "Alice", GuideTrackIndex: 1}},
		Lines: []karaoke.LyricLine{
			{
				SingerID: "s1", StartSec: 1.0, EndSec: 3.0, Text: "hello world",
				Words: []karaoke.Word{{StartSec: 0, EndSec: 0.5, Text: "hello"}, {StartSec: 0.5, EndSec: 2.0, Text: "world"}},
			},
		},
	}
}

func TestKaidRoundTrip(t *testing.T) {
	song := sampleSong()

	data, err := karaoke.EncodeKaid(song)
	if err != nil {
		t.Fatalf("EncodeKaid: %v", err)
	}

	got, err := karaoke.DecodeKaid(data)
	if err != nil {
		t.Fatalf("DecodeKaid: %v", err)
	}

	if got.Audio.Profile != song.Audio.Profile {
		t.Errorf("profile: got %v, want %v", got.Audio.Profile, song.Audio.Profile)
	}
	if len(got.Lines) != 1 || got.Lines[0].Text != "hello world" {
		t.Fatalf("unexpected lines: %+v", got.Lines)
	}
	if got.Lines[0].StartSec != 1.0 || got.Lines[0].EndSec != 3.0 {
		t.Errorf("line timing mismatch: %+v", got.Lines[0])
	}
	if len(got.Lines[0].Words) != 2 || got.Lines[0].Words[1].Text != "world" {
		t.Errorf("word reconstruction mismatch: %+v", got.Lines[0].Words)
	}
}

func TestKaidPreservesUnknownTopLevelKeys(t *testing.T) {
	base, err := karaoke.EncodeKaid(sampleSong())
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(base, &doc); err != nil {
		t.Fatal(err)
	}
	doc["future_field"] = json.RawMessage(`{"nested":true}`)
	withExtra, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	song, err := karaoke.DecodeKaid(withExtra)
	if err != nil {
		t.Fatalf("DecodeKaid with unknown key: %v", err)
	}

	reEncoded, err := karaoke.EncodeKaid(song)
	if err != nil {
		t.Fatal(err)
	}
	var roundTripped map[string]json.RawMessage
	if err := json.Unmarshal(reEncoded, &roundTripped); err != nil {
		t.Fatal(err)
	}
	if _, ok := roundTripped["future_field"]; !ok {
		t.Error("expected unknown top-level key 'future_field' to survive a round trip")
	}
}

func TestKaidStableKeyOrder(t *testing.T) {
	song := sampleSong()
	a, err := karaoke.EncodeKaid(song)
	if err != nil {
		t.Fatal(err)
	}
	b, err := karaoke.EncodeKaid(song)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("expected deterministic encoding across repeated saves, got:\n%s\nvs\n%s", a, b)
	}
}
