package karaoke

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	mp4 "github.com/jorgealamilla/loukai"
)

// loader.go implements C8, the loader façade: Load dispatches on file
// extension and produces a unified Song regardless of source format.

const (
	nsStems   = "com.stems"
	nameKaid  = "kaid"
	nameVpch  = "vpch"
	nameKons  = "kons"
)

// Load opens path and decodes it into a Song.
func Load(path string) (*Song, error) {
	switch {
	case strings.HasSuffix(path, ".kai"):
		return loadKai(path)
	case strings.HasSuffix(path, ".m4a"), strings.HasSuffix(path, ".mp4"):
		return loadM4A(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// loadM4A implements the M4A branch of Load: parse via C1, locate
// moov/udta/meta/ilst, decode known freeform items via C4+C5, decode the
// subtitle track via C6, reconcile via C7.
func loadM4A(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	file, err := mp4.DecodeFile(data)
	if err != nil {
		return nil, err
	}
	moovTB, ok := file.Moov()
	if !ok {
		return nil, fmt.Errorf("mp4: no moov box")
	}
	moov := moovTB.Box

	song := &Song{}

	ilst := findIlst(moov)
	if ilst != nil {
		if item, ok := mp4.GetFreeform(ilst, nsStems, nameKaid); ok {
			decoded, err := DecodeKaid(item.Value)
			if err != nil {
				return nil, fmt.Errorf("mp4: decoding kaid: %w", err)
			}
			song = decoded
		} else if strings.HasSuffix(path, ".stem.m4a") {
			return nil, ErrMissingKaraokePayload
		}

		if item, ok := mp4.GetFreeform(ilst, nsStems, nameVpch); ok {
			pitch, err := DecodeVpch(item.Value, DefaultVocalPitchSampleRateHz)
			if err != nil {
				return nil, fmt.Errorf("mp4: decoding vpch: %w", err)
			}
			song.VocalPitch = pitch
		}
		if item, ok := mp4.GetFreeform(ilst, nsStems, nameKons); ok {
			onsets, err := DecodeKons(item.Value, song.Audio.EncoderDelaySamples, defaultLyricSampleRateHz)
			if err != nil {
				return nil, fmt.Errorf("mp4: decoding kons: %w", err)
			}
			song.Onsets = onsets
		}

		song.ITunesMetadata = ITunesMetadata{
			Title:  mp4.GetSimpleText(ilst, mp4.TypeNam),
			Artist: mp4.GetSimpleText(ilst, mp4.TypeArt),
			Album:  mp4.GetSimpleText(ilst, mp4.TypeAlb),
			Year:   mp4.GetSimpleText(ilst, mp4.TypeDay),
			Genre:  mp4.GetSimpleText(ilst, mp4.TypeGen),
			CoverArt: mp4.GetCoverArt(ilst),
		}
	} else if strings.HasSuffix(path, ".stem.m4a") {
		return nil, ErrMissingKaraokePayload
	}

	if vttData := findSubtitleTrackVTT(moov); vttData != nil {
		lines, _ := DecodeLyricsVTT(vttData, song.Audio.EncoderDelaySamples)
		song.Lines = lines
	}

	return song, nil
}

func findIlst(moov *mp4.Box) *mp4.Box {
	udta := moov.Child(mp4.TypeUdta)
	if udta == nil {
		return nil
	}
	meta := udta.Child(mp4.TypeMeta)
	if meta == nil {
		return nil
	}
	return meta.Child(mp4.TypeIlst)
}

// findSubtitleTrackVTT returns the lyric WebVTT text when moov has a
// text/sbtl subtitle trak. The text is read from the ----:com.stems:vtt
// freeform item that Save writes, not from the track's samples in mdat;
// it returns nil when there is no such trak or no such item.
func findSubtitleTrackVTT(moov *mp4.Box) []byte {
	for _, trak := range moov.ChildList(mp4.TypeTrak) {
		mdia := trak.Child(mp4.TypeMdia)
		if mdia == nil {
			continue
		}
		hdlr := mdia.Child(mp4.TypeHdlr)
		if hdlr == nil || hdlr.Hdlr == nil {
			continue
		}
		if string(hdlr.Hdlr.HandlerType[:]) != "text" && string(hdlr.Hdlr.HandlerType[:]) != "sbtl" {
			continue
		}
		// The sample payload itself is opaque to the box tree (it lives in
		// mdat); Save (C9) instead stashes a verbatim copy of the
		// WebVTT source alongside the freeform items, as a ----:com.stems:vtt
		// item, so that a round trip doesn't require re-deriving cues from
		// compressed mov_text samples.
		ilst := findIlst(moov)
		if ilst == nil {
			return nil
		}
		if item, ok := mp4.GetFreeform(ilst, nsStems, "vtt"); ok {
			return item.Value
		}
	}
	return nil
}

// loadKai migrates a legacy .kai zip archive (read-only): a "kaid.json"
// entry decoded the same way as an M4A's kaid freeform item, plus an
// optional "lyrics.vtt" entry.
func loadKai(path string) (*Song, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening .kai: %v", ErrIO, err)
	}
	defer zr.Close()

	var kaidData, vttData []byte
	for _, f := range zr.File {
		switch f.Name {
		case "kaid.json":
			kaidData, err = readZipEntry(f)
		case "lyrics.vtt":
			vttData, err = readZipEntry(f)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s from .kai: %v", ErrIO, f.Name, err)
		}
	}
	if kaidData == nil {
		return nil, ErrMissingKaraokePayload
	}

	song, err := DecodeKaid(kaidData)
	if err != nil {
		return nil, err
	}
	if vttData != nil {
		lines, _ := DecodeLyricsVTT(vttData, song.Audio.EncoderDelaySamples)
		song.Lines = lines
	}
	return song, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
