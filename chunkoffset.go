package mp4

import "fmt"

// chunkoffset.go implements C3, the stco/co64 chunk-offset rewriter. After
// the writer façade (C9) grows or shrinks moov (by adding/replacing
// freeform items or the stem box), every sample's byte offset into mdat
// shifts by however many bytes moov itself grew or shrank. Each trak's
// stbl/stco (or stbl/co64) table is rewritten in place by the same signed
// delta; stco is upgraded to co64 if any rewritten offset would overflow
// 32 bits.

// RewriteChunkOffsets walks every trak under moov and, for each entry o of
// its stbl's stco or co64 table with o >= threshold, replaces it with
// o + delta. Entries below threshold are left untouched (covers chunks
// addressed inside moov itself, which is unusual but legal). delta is
// typically the change in moov's encoded length between the pre-edit and
// post-edit tree (positive when moov grew, negative when it shrank);
// threshold is typically the absolute file offset of the old moov's end.
//
// If adding delta to any stco entry would overflow uint32, that track's
// table is upgraded from stco to co64 in place (the common real-world case
// is a small karaoke payload added to a file whose media data already
// reaches close to the 4 GiB boundary; in practice this almost never fires, but the rewrite
// must still be correct for it).
func RewriteChunkOffsets(moov *Box, delta int64, threshold uint64) error {
	for _, trak := range moov.ChildList(TypeTrak) {
		stbl := findStbl(trak)
		if stbl == nil {
			continue
		}
		if err := rewriteStblOffsets(stbl, delta, threshold); err != nil {
			return fmt.Errorf("mp4: rewriting chunk offsets: %w", err)
		}
	}
	return nil
}

func findStbl(trak *Box) *Box {
	mdia := trak.Child(TypeMdia)
	if mdia == nil {
		return nil
	}
	minf := mdia.Child(TypeMinf)
	if minf == nil {
		return nil
	}
	return minf.Child(TypeStbl)
}

func rewriteStblOffsets(stbl *Box, delta int64, threshold uint64) error {
	if delta == 0 {
		return nil
	}

	if co64 := stbl.Child(TypeCo64); co64 != nil && co64.Co64 != nil {
		for i, off := range co64.Co64.Entries {
			if off >= threshold {
				co64.Co64.Entries[i] = applyDelta64(off, delta)
			}
		}
		return nil
	}

	stco := stbl.Child(TypeStco)
	if stco == nil || stco.Stco == nil {
		return nil
	}

	if needsCo64Upgrade(stco.Stco.Entries, delta, threshold) {
		upgradeStcoToCo64(stbl, stco, delta, threshold)
		return nil
	}

	for i, off := range stco.Stco.Entries {
		if uint64(off) < threshold {
			continue
		}
		v := int64(off) + delta
		if v < 0 {
			return fmt.Errorf("chunk offset %d would go negative (delta %d)", off, delta)
		}
		stco.Stco.Entries[i] = uint32(v)
	}
	return nil
}

// needsCo64Upgrade reports whether any rewritten offset exceeds what a
// 32-bit stco entry can hold.
func needsCo64Upgrade(entries []uint32, delta int64, threshold uint64) bool {
	for _, off := range entries {
		if uint64(off) < threshold {
			continue
		}
		v := int64(off) + delta
		if v > 0xFFFFFFFF {
			return true
		}
	}
	return false
}

func applyDelta64(off uint64, delta int64) uint64 {
	return uint64(int64(off) + delta)
}

// upgradeStcoToCo64 replaces stbl's stco child with an equivalent co64
// child, applying delta to every entry at or beyond threshold in the
// process. Upgrading changes stbl's own encoded length (co64 entries are
// 8 bytes vs stco's 4), which in turn changes moov's length again —
// callers must re-run the delta computation (C9 step 5's fixed-point
// loop) after an upgrade occurs.
func upgradeStcoToCo64(stbl, stco *Box, delta int64, threshold uint64) {
	entries := make([]uint64, len(stco.Stco.Entries))
	for i, off := range stco.Stco.Entries {
		if uint64(off) >= threshold {
			entries[i] = applyDelta64(uint64(off), delta)
		} else {
			entries[i] = uint64(off)
		}
	}
	co64 := &Box{Type: TypeCo64, HasFullBox: true, Co64: &Co64{Entries: entries}}
	stbl.SetChild(TypeCo64, co64)
	delete(stbl.Children, TypeStco)
}

// UsesCo64 reports whether any track in moov uses 64-bit (co64) chunk
// offsets, whether decoded that way or upgraded by RewriteChunkOffsets.
func UsesCo64(moov *Box) bool {
	for _, trak := range moov.ChildList(TypeTrak) {
		stbl := findStbl(trak)
		if stbl != nil && stbl.Child(TypeCo64) != nil {
			return true
		}
	}
	return false
}
