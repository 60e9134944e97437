package karaoke

import (
	"fmt"
	"os"
	"strings"
	"sync"

	mp4 "github.com/jorgealamilla/loukai"
)

// writer.go implements C9, the writer façade: the read-edit-splice-verify
// cycle that patches an existing .stem.m4a in place without touching its
// audio data.

// Save writes song's payload into the existing file at path, replacing
// any prior kaid/vpch/kons/stem/lyrics payload. lock must serialise saves
// to the same path; the core does not maintain an internal registry (§5).
func Save(song *Song, path string, lock sync.Locker) error {
	if lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}

	if !strings.HasSuffix(path, ".stem.m4a") {
		return fmt.Errorf("%w: Save requires a .stem.m4a path, got %s", ErrUnsupportedFormat, path)
	}
	if err := song.Validate(); err != nil {
		return err
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	bakPath := path + ".bak"
	if err := os.WriteFile(bakPath, original, 0o644); err != nil {
		return fmt.Errorf("%w: writing backup: %v", ErrIO, err)
	}
	defer os.Remove(bakPath)

	newData, err := buildPatchedFile(song, original)
	if err != nil {
		return err
	}

	if err := publishAtomically(path, newData); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	if err := Validate(song, path, original); err != nil {
		restoreErr := os.WriteFile(path, original, 0o644)
		return &SaveError{Cause: err, Restored: restoreErr == nil}
	}
	return nil
}

// buildPatchedFile performs steps 2-6 of C9: encode the payload, splice
// it into moov, rewrite chunk offsets, and re-serialise the file.
func buildPatchedFile(song *Song, original []byte) ([]byte, error) {
	file, err := mp4.DecodeFile(original)
	if err != nil {
		return nil, err
	}
	moovTB, ok := file.Moov()
	if !ok {
		return nil, fmt.Errorf("mp4: input file has no moov box")
	}
	moov := moovTB.Box

	if err := patchPayload(moov, song); err != nil {
		return nil, err
	}

	oldLen := int64(moovTB.End - moovTB.Start)
	newMoovBytes, err := mp4.EncodeToBytes(moov)
	if err != nil {
		return nil, fmt.Errorf("mp4: encoding patched moov: %w", err)
	}
	delta := int64(len(newMoovBytes)) - oldLen

	if delta != 0 {
		threshold := uint64(moovTB.End)
		if err := mp4.RewriteChunkOffsets(moov, delta, threshold); err != nil {
			return nil, err
		}
		// The rewrite may have upgraded a track to co64, growing moov
		// again; re-encode and, if that changed the length further,
		// redo the offset pass once more against the new delta. One
		// extra iteration always converges since only a bounded number
		// of tracks can upgrade, and each does so at most once.
		newMoovBytes, err = mp4.EncodeToBytes(moov)
		if err != nil {
			return nil, fmt.Errorf("mp4: re-encoding moov after co64 upgrade: %w", err)
		}
		newDelta := int64(len(newMoovBytes)) - oldLen
		if newDelta != delta {
			if err := mp4.RewriteChunkOffsets(moov, newDelta-delta, threshold); err != nil {
				return nil, err
			}
			newMoovBytes, err = mp4.EncodeToBytes(moov)
			if err != nil {
				return nil, fmt.Errorf("mp4: re-encoding moov after second offset pass: %w", err)
			}
		}
	}

	return mp4.ReplaceMoov(original, moovTB, newMoovBytes), nil
}

// patchPayload implements C9 step 3: locate/synthesise the ilst chain and
// replace the freeform items and stem box, preserving unknown items.
func patchPayload(moov *mp4.Box, song *Song) error {
	ilst := mp4.EnsurePath(moov)

	kaidBytes, err := EncodeKaid(song)
	if err != nil {
		return err
	}
	if err := mp4.SetFreeform(ilst, nsStems, nameKaid, mp4.DataTypeUTF8, kaidBytes); err != nil {
		return err
	}

	if song.VocalPitch != nil {
		if err := mp4.SetFreeform(ilst, nsStems, nameVpch, mp4.DataTypeBinary, EncodeVpch(song.VocalPitch)); err != nil {
			return err
		}
	}
	if len(song.Onsets) > 0 {
		kons := EncodeKons(song.Onsets, song.Audio.EncoderDelaySamples, defaultLyricSampleRateHz)
		if err := mp4.SetFreeform(ilst, nsStems, nameKons, mp4.DataTypeBinary, kons); err != nil {
			return err
		}
	}

	vttBytes := EncodeLyricsVTT(song)
	if err := mp4.SetFreeform(ilst, nsStems, "vtt", mp4.DataTypeUTF8, vttBytes); err != nil {
		return err
	}

	stemBytes, err := EncodeStem(song)
	if err != nil {
		return err
	}
	mp4.SetStem(moov, stemBytes)

	if song.ITunesMetadata.Title != "" {
		mp4.SetSimpleText(ilst, mp4.TypeNam, song.ITunesMetadata.Title)
	}
	if song.ITunesMetadata.Artist != "" {
		mp4.SetSimpleText(ilst, mp4.TypeArt, song.ITunesMetadata.Artist)
	}
	if song.ITunesMetadata.Album != "" {
		mp4.SetSimpleText(ilst, mp4.TypeAlb, song.ITunesMetadata.Album)
	}
	if song.ITunesMetadata.Year != "" {
		mp4.SetSimpleText(ilst, mp4.TypeDay, song.ITunesMetadata.Year)
	}
	if song.ITunesMetadata.Genre != "" {
		mp4.SetSimpleText(ilst, mp4.TypeGen, song.ITunesMetadata.Genre)
	}
	if len(song.ITunesMetadata.CoverArt) > 0 {
		mp4.SetCoverArt(ilst, song.ITunesMetadata.CoverArt, mp4.DataTypeJPEG)
	}

	return nil
}

// publishAtomically implements C9 step 7: write to path.tmp, fsync,
// rename over path.
func publishAtomically(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
