package vtt_test

import (
	"testing"

	"github.com/jorgealamilla/loukai/karaoke/vtt"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cues := []vtt.Cue{
		{
			SingerID: "Alice",
			StartSec: 1.0,
			EndSec:   4.0,
			Text:     "hello world",
			Words:    []vtt.Word{{TimeSec: 1.0, Text: "hello"}, {TimeSec: 2.5, Text: "world"}},
		},
		{
			SingerID: "Bob",
			StartSec: 5.0,
			EndSec:   6.0,
			Text:     "backup",
			Backup:   true,
			Words:    []vtt.Word{{TimeSec: 5.0, Text: "backup"}},
		},
	}

	data := vtt.Encode(cues)
	got, errs := vtt.Decode(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(got) != len(cues) {
		t.Fatalf("got %d cues, want %d", len(got), len(cues))
	}

	for i, want := range cues {
		c := got[i]
		if c.SingerID != want.SingerID || c.Text != want.Text || c.Backup != want.Backup {
			t.Errorf("cue %d: got %+v, want %+v", i, c, want)
		}
		if c.StartSec != want.StartSec || c.EndSec != want.EndSec {
			t.Errorf("cue %d timing: got [%v,%v], want [%v,%v]", i, c.StartSec, c.EndSec, want.StartSec, want.EndSec)
		}
		if len(c.Words) != len(want.Words) {
			t.Fatalf("cue %d: got %d words, want %d", i, len(c.Words), len(want.Words))
		}
		for j, w := range want.Words {
			if c.Words[j].Text != w.Text || c.Words[j].TimeSec != w.TimeSec {
				t.Errorf("cue %d word %d: got %+v, want %+v", i, j, c.Words[j], w)
			}
		}
	}
}

func TestDecodeSkipsMalformedCueButKeepsOthers(t *testing.T) {
	data := []byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n<v A><00:00:01.000>ok\n\nnot-a-timing-line\ngarbage\n\n00:00:03.000 --> 00:00:04.000\n<v B><00:00:03.000>fine\n")

	cues, errs := vtt.Decode(data)
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 parse error, got %d: %v", len(errs), errs)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 valid cues despite the malformed block, got %d", len(cues))
	}
}

func TestTimestampFormatRoundTrip(t *testing.T) {
	cues := []vtt.Cue{{StartSec: 3661.5, EndSec: 3662.0, Words: []vtt.Word{{TimeSec: 3661.5, Text: "x"}}}}
	data := vtt.Encode(cues)
	got, errs := vtt.Decode(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got[0].StartSec != 3661.5 {
		t.Errorf("got %v, want 3661.5 (01:01:01.500)", got[0].StartSec)
	}
}
