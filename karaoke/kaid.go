package karaoke

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// kaid.go implements C5's JSON schema: a deterministic encoder (stable key
// order, so repeated saves diff minimally) paired with a decoder that
// keeps any top-level key it doesn't recognise in Extra, so a newer
// producer's fields survive a round trip through this version.

const kaidVersion = "1.0"

// kaidDocument is the wire shape of a kaid payload. Field order here is
// also the emitted JSON key order (Go's encoding/json marshals struct
// fields in declaration order).
type kaidDocument struct {
	Version string          `json:"stems_karaoke_version"`
	Audio   audioDoc        `json:"audio"`
	Timing  timingDoc       `json:"timing"`
	Singers []singerDoc     `json:"singers"`
	Lines   []lineDoc       `json:"lines"`

	// Extra preserves top-level keys this version doesn't know about.
	Extra map[string]json.RawMessage `json:"-"`
}

type sourceDoc struct {
	Track uint32 `json:"track"`
	ID    string `json:"id"`
	Role  string `json:"role"`
}

type presetDoc struct {
	ID     string             `json:"id"`
	Levels map[string]float64 `json:"levels"`
}

type audioDoc struct {
	Profile             string      `json:"profile"`
	EncoderDelaySamples uint32      `json:"encoder_delay_samples"`
	Sources             []sourceDoc `json:"sources"`
	Presets             []presetDoc `json:"presets"`
}

type timingDoc struct {
	Reference string  `json:"reference"`
	OffsetSec float32 `json:"offset_sec"`
}

type singerDoc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GuideTrack  uint32 `json:"guide_track"`
}

type lineDoc struct {
	SingerID    string       `json:"singer_id"`
	Start       float64      `json:"start"`
	End         float64      `json:"end"`
	Text        string       `json:"text"`
	Disabled    bool         `json:"disabled,omitempty"`
	WordTiming  [][2]float64 `json:"word_timing"`
}

// EncodeKaid renders song as canonical kaid JSON.
func EncodeKaid(song *Song) ([]byte, error) {
	doc := toDocument(song)
	known, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("karaoke: encoding kaid: %w", err)
	}
	if len(doc.Extra) == 0 {
		return known, nil
	}
	return appendExtra(known, doc.Extra)
}

// DecodeKaid parses kaid JSON, preserving unrecognised top-level keys.
func DecodeKaid(data []byte) (*Song, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("karaoke: decoding kaid: %w", err)
	}

	var doc kaidDocument
	for _, f := range []struct {
		key string
		dst any
	}{
		{"stems_karaoke_version", &doc.Version},
		{"audio", &doc.Audio},
		{"timing", &doc.Timing},
		{"singers", &doc.Singers},
		{"lines", &doc.Lines},
	} {
		if v, ok := raw[f.key]; ok {
			if err := json.Unmarshal(v, f.dst); err != nil {
				return nil, fmt.Errorf("karaoke: decoding kaid.%s: %w", f.key, err)
			}
			delete(raw, f.key)
		}
	}
	if len(raw) > 0 {
		doc.Extra = raw
	}

	return fromDocument(&doc), nil
}

func appendExtra(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(bytes.TrimRight(known, "}"))
	for _, k := range keys {
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func toDocument(song *Song) *kaidDocument {
	doc := &kaidDocument{Version: kaidVersion}

	doc.Audio.Profile = string(song.Audio.Profile)
	doc.Audio.EncoderDelaySamples = song.Audio.EncoderDelaySamples
	for _, s := range song.Audio.Sources {
		doc.Audio.Sources = append(doc.Audio.Sources, sourceDoc{Track: s.TrackIndex, ID: s.ID, Role: string(s.Role)})
	}
	for _, p := range song.Audio.Presets {
		levels := make(map[string]float64, len(p.Levels))
		for role, db := range p.Levels {
			levels[string(role)] = db
		}
		doc.Audio.Presets = append(doc.Audio.Presets, presetDoc{ID: p.ID, Levels: levels})
	}

	doc.Timing = timingDoc{Reference: string(song.Timing.Reference), OffsetSec: song.Timing.OffsetSec}

	for _, s := range song.Singers {
		doc.Singers = append(doc.Singers, singerDoc{ID: s.ID, Name: s.DisplayName, GuideTrack: s.GuideTrackIndex})
	}

	for _, l := range song.Lines {
		wt := make([][2]float64, len(l.Words))
		for i, w := range l.Words {
			wt[i] = [2]float64{w.StartSec, w.EndSec}
		}
		doc.Lines = append(doc.Lines, lineDoc{
			SingerID:   l.SingerID,
			Start:      l.StartSec,
			End:        l.EndSec,
			Text:       l.Text,
			Disabled:   l.Disabled,
			WordTiming: wt,
		})
	}

	return doc
}

func fromDocument(doc *kaidDocument) *Song {
	song := &Song{}

	song.Audio.Profile = Profile(doc.Audio.Profile)
	song.Audio.EncoderDelaySamples = doc.Audio.EncoderDelaySamples
	for _, s := range doc.Audio.Sources {
		song.Audio.Sources = append(song.Audio.Sources, Source{TrackIndex: s.Track, ID: s.ID, Role: Role(s.Role)})
	}
	for _, p := range doc.Audio.Presets {
		levels := make(map[Role]float64, len(p.Levels))
		for role, db := range p.Levels {
			levels[Role(role)] = db
		}
		song.Audio.Presets = append(song.Audio.Presets, Preset{ID: p.ID, Levels: levels})
	}

	song.Timing = Timing{Reference: Reference(doc.Timing.Reference), OffsetSec: doc.Timing.OffsetSec}

	for _, s := range doc.Singers {
		song.Singers = append(song.Singers, Singer{ID: s.ID, DisplayName: s.Name, GuideTrackIndex: s.GuideTrack})
	}

	for _, l := range doc.Lines {
		tokens := strings.Fields(l.Text)
		words := make([]Word, 0, len(l.WordTiming))
		for i, wt := range l.WordTiming {
			text := ""
			if i < len(tokens) {
				text = tokens[i]
			}
			words = append(words, Word{StartSec: wt[0], EndSec: wt[1], Text: text})
		}
		song.Lines = append(song.Lines, LyricLine{
			SingerID: l.SingerID,
			StartSec: l.Start,
			EndSec:   l.End,
			Text:     l.Text,
			Disabled: l.Disabled,
			Words:    words,
		})
	}

	return song
}
