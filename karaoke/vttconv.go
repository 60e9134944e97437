package karaoke

import "github.com/jorgealamilla/loukai/karaoke/vtt"

// vttconv.go bridges the Song domain model to the standalone vtt package,
// applying/removing encoder-delay compensation (C7) at the boundary so
// every WebVTT cue timestamp written to the container is in wire time and
// the lines the rest of this package sees are in logical time.

const defaultLyricSampleRateHz = 44100

// EncodeLyricsVTT renders song's lines as a WebVTT byte stream with
// encoder-delay-compensated (wire-time) timestamps.
func EncodeLyricsVTT(song *Song) []byte {
	wire := ApplyDelay(song.Lines, song.Audio.EncoderDelaySamples, defaultLyricSampleRateHz)
	cues := make([]vtt.Cue, len(wire))
	for i, l := range wire {
		words := make([]vtt.Word, len(l.Words))
		for j, w := range l.Words {
			words[j] = vtt.Word{TimeSec: l.StartSec + w.StartSec, Text: w.Text}
		}
		cues[i] = vtt.Cue{
			SingerID: l.SingerID,
			StartSec: l.StartSec,
			EndSec:   l.EndSec,
			Text:     l.Text,
			Backup:   l.Disabled,
			Words:    words,
		}
	}
	return vtt.Encode(cues)
}

// DecodeLyricsVTT parses a WebVTT byte stream and reverses encoder-delay
// compensation, returning logical-time lines plus any per-cue parse
// errors encountered (decoding continues past them).
func DecodeLyricsVTT(data []byte, delaySamples uint32) ([]LyricLine, []*vtt.CueParseError) {
	cues, errs := vtt.Decode(data)
	lines := make([]LyricLine, len(cues))
	for i, c := range cues {
		words := make([]Word, len(c.Words))
		for j, w := range c.Words {
			wordEnd := c.EndSec
			if j+1 < len(c.Words) {
				wordEnd = c.Words[j+1].TimeSec
			}
			words[j] = Word{StartSec: w.TimeSec - c.StartSec, EndSec: wordEnd - c.StartSec, Text: w.Text}
		}
		lines[i] = LyricLine{
			SingerID: c.SingerID,
			StartSec: c.StartSec,
			EndSec:   c.EndSec,
			Text:     c.Text,
			Disabled: c.Backup,
			Words:    words,
		}
	}
	logical := RemoveDelay(lines, delaySamples, defaultLyricSampleRateHz)
	return logical, errs
}
