// Package vtt implements C6, the karaoke-enriched WebVTT codec: cue-per-
// line text with per-word inline timestamp tags, independent of the
// karaoke package's Song model so it can be tested and reused on its own.
package vtt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Word is one karaoke-highlighted word, with an absolute wire timestamp.
type Word struct {
	TimeSec float64
	Text    string
}

// Cue is one parsed WebVTT karaoke line.
type Cue struct {
	SingerID string
	StartSec float64
	EndSec   float64
	Text     string
	Backup   bool // cue carried the "c.backup" class
	Words    []Word
}

// CueParseError records one cue block that failed to parse; Decode
// collects these instead of aborting so the rest of the file still loads.
type CueParseError struct {
	CueIndex int
	Raw      string
	Err      error
}

func (e *CueParseError) Error() string {
	return fmt.Sprintf("vtt: cue %d: %v", e.CueIndex, e.Err)
}

func (e *CueParseError) Unwrap() error { return e.Err }

var (
	timingLineRe = regexp.MustCompile(`^([0-9:.]+)\s*-->\s*([0-9:.]+)(.*)$`)
	voiceTagRe   = regexp.MustCompile(`^<v\s+([^>]+)>`)
	wordTagRe    = regexp.MustCompile(`<(\d{2}:\d{2}:\d{2}\.\d{3})>`)
)

// Decode parses a WebVTT byte stream into cues. Malformed cues are
// skipped and reported via the returned []*CueParseError rather than
// aborting the whole decode.
func Decode(data []byte) ([]Cue, []*CueParseError) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(text, "\n\n")

	var cues []Cue
	var errs []*CueParseError

	for i, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" || block == "WEBVTT" || strings.HasPrefix(block, "WEBVTT\n") {
			continue
		}
		cue, err := decodeCue(block)
		if err != nil {
			errs = append(errs, &CueParseError{CueIndex: i, Raw: block, Err: err})
			continue
		}
		cues = append(cues, cue)
	}
	return cues, errs
}

func decodeCue(block string) (Cue, error) {
	lines := strings.Split(block, "\n")
	idx := 0
	// Optional cue identifier line: the timing line is the first one
	// containing "-->".
	for idx < len(lines) && !strings.Contains(lines[idx], "-->") {
		idx++
	}
	if idx >= len(lines) {
		return Cue{}, fmt.Errorf("no timing line found")
	}

	m := timingLineRe.FindStringSubmatch(strings.TrimSpace(lines[idx]))
	if m == nil {
		return Cue{}, fmt.Errorf("malformed timing line %q", lines[idx])
	}
	start, err := parseTimestamp(m[1])
	if err != nil {
		return Cue{}, fmt.Errorf("start timestamp: %w", err)
	}
	end, err := parseTimestamp(m[2])
	if err != nil {
		return Cue{}, fmt.Errorf("end timestamp: %w", err)
	}
	backup := strings.Contains(m[3], "class:c.backup")

	payload := strings.Join(lines[idx+1:], "\n")
	payload = strings.TrimSpace(payload)

	singerID := ""
	if vm := voiceTagRe.FindStringSubmatch(payload); vm != nil {
		singerID = strings.TrimSpace(vm[1])
		payload = payload[len(vm[0]):]
	}

	words, text, err := decodeWords(payload)
	if err != nil {
		return Cue{}, err
	}

	return Cue{SingerID: singerID, StartSec: start, EndSec: end, Text: text, Backup: backup, Words: words}, nil
}

// decodeWords splits "<T0>w1 <T1>w2 ..." into timestamped words and
// reconstructs the plain line text by joining them with spaces.
func decodeWords(payload string) ([]Word, string, error) {
	locs := wordTagRe.FindAllStringSubmatchIndex(payload, -1)
	if len(locs) == 0 {
		return nil, strings.TrimSpace(payload), nil
	}

	var words []Word
	var texts []string
	for i, loc := range locs {
		tsStart, tsEnd := loc[2], loc[3]
		ts, err := parseTimestamp(payload[tsStart:tsEnd])
		if err != nil {
			return nil, "", fmt.Errorf("word timestamp: %w", err)
		}
		wordStart := loc[1]
		var wordEnd int
		if i+1 < len(locs) {
			wordEnd = locs[i+1][0]
		} else {
			wordEnd = len(payload)
		}
		word := strings.TrimSpace(payload[wordStart:wordEnd])
		words = append(words, Word{TimeSec: ts, Text: word})
		if word != "" {
			texts = append(texts, word)
		}
	}
	return words, strings.Join(texts, " "), nil
}

// Encode renders cues as a complete WebVTT file.
func Encode(cues []Cue) []byte {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, cue := range cues {
		b.WriteString("\n")
		b.WriteString(formatTimestamp(cue.StartSec))
		b.WriteString(" --> ")
		b.WriteString(formatTimestamp(cue.EndSec))
		if cue.Backup {
			b.WriteString(" class:c.backup")
		}
		b.WriteString("\n")
		if cue.SingerID != "" {
			fmt.Fprintf(&b, "<v %s>", cue.SingerID)
		}
		for i, w := range cue.Words {
			fmt.Fprintf(&b, "<%s>%s", formatTimestamp(w.TimeSec), w.Text)
			if i != len(cue.Words)-1 {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func formatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalMs := int64(sec*1000 + 0.5)
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	s := totalSec % 60
	totalMin := totalSec / 60
	m := totalMin % 60
	h := totalMin / 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func parseTimestamp(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS.mmm, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	secParts := strings.SplitN(parts[2], ".", 2)
	sec, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, err
	}
	var ms int
	if len(secParts) == 2 {
		msStr := secParts[1]
		for len(msStr) < 3 {
			msStr += "0"
		}
		ms, err = strconv.Atoi(msStr[:3])
		if err != nil {
			return 0, err
		}
	}
	return float64(h*3600+m*60+sec) + float64(ms)/1000, nil
}
