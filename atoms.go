package mp4

// atoms.go extends the base box vocabulary with the iTunes-style metadata
// tree (udta/meta/ilst/----/mean/name/data and the well-known ilst item
// tags) plus the Traktor-compatible "stem" box. These are not part of a
// bare media-only MP4 tree, but are required to round-trip the karaoke
// payload under moov/udta.

// Additional known box types.
var (
	TypeIlst     = newBoxType("ilst")
	TypeFreeform = newBoxType("----")
	TypeMean     = newBoxType("mean")
	TypeName     = newBoxType("name")
	TypeData     = newBoxType("data")
	TypeStem     = newBoxType("stem")

	TypeNam  = newBoxTypeRaw(0xa9, 'n', 'a', 'm')
	TypeArt  = newBoxTypeRaw(0xa9, 'A', 'R', 'T')
	TypeAlb  = newBoxTypeRaw(0xa9, 'a', 'l', 'b')
	TypeDay  = newBoxTypeRaw(0xa9, 'd', 'a', 'y')
	TypeGen  = newBoxTypeRaw(0xa9, 'g', 'e', 'n')
	TypeTrkn = newBoxType("trkn")
	TypeCovr = newBoxType("covr")
)

// newBoxTypeRaw builds a BoxType from four raw bytes; used for tags like
// "©nam" whose first byte (0xa9) is not printable ASCII.
func newBoxTypeRaw(b0, b1, b2, b3 byte) BoxType {
	return BoxType{b0, b1, b2, b3}
}

// ilstItemTypes lists the single-"data"-child iTunes tags recognised by
// the schema; each gets a container def with one typed "data" child.
// Every item under ilst, listed here or not, is kept in ilst's OtherBoxes;
// tags neither listed here nor "----" are decoded as opaque leaves.
var ilstItemTypes = []BoxType{TypeNam, TypeArt, TypeAlb, TypeDay, TypeGen, TypeTrkn, TypeCovr}

func init() {
	// moov gains a udta child; the base containerDef only wires it under trak.
	containerDef[TypeMoov] = append(containerDef[TypeMoov], containerChild{TypeUdta, false})

	// udta holds one meta box and (for this schema) one stem box; anything
	// else found under udta lands in OtherBoxes and round-trips untouched.
	containerDef[TypeUdta] = []containerChild{{TypeMeta, false}, {TypeStem, false}}

	// meta is a full box (4-byte version/flags) wrapping a handler and ilst.
	containerDef[TypeMeta] = []containerChild{{TypeHdlr, false}, {TypeIlst, false}}
	fullBoxes[TypeMeta] = true

	// ilst has no fixed child set: every item (©nam, ----, trkn, covr, ...)
	// is unknown to the container def and is preserved, in order, in
	// OtherBoxes. This is what makes "unknown freeform items are
	// preserved" and "stable key order" for repeated saves fall out of the
	// generic box-tree machinery instead of bespoke bookkeeping.
	containerDef[TypeIlst] = []containerChild{}

	// The freeform "----" atom always has exactly mean/name/data children.
	containerDef[TypeFreeform] = []containerChild{{TypeMean, false}, {TypeName, false}, {TypeData, false}}

	for _, t := range ilstItemTypes {
		containerDef[t] = []containerChild{{TypeData, false}}
	}

	codecs[TypeMean] = &codec{decodeMean, encodeMean, encodingLengthMean}
	codecs[TypeName] = &codec{decodeName, encodeName, encodingLengthName}
	codecs[TypeData] = &codec{decodeData, encodeData, encodingLengthData}
}

// Mean represents the "mean" child of a freeform ---- atom: a namespace
// string, e.g. "com.stems", prefixed by a 4-byte zero version/flags field.
type Mean struct {
	Value string
}

// Name represents the "name" child of a freeform ---- atom, same layout
// as Mean but holding the item's name, e.g. "kaid".
type Name struct {
	Value string
}

// Data represents the "data" child shared by ilst items: a 4-byte
// well-known type code, a 4-byte locale/country code, and the raw value.
type Data struct {
	TypeCode uint32
	Locale   uint32
	Value    []byte
}

func decodeMean(box *Box, buf []byte, start, end int) error {
	if end-start < 4 {
		return errTooShort(TypeMean, end-start, 4)
	}
	m := &Mean{Value: string(buf[start+4 : end])}
	box.Buffer = nil
	box.meanVal = m
	return nil
}

func encodeMean(box *Box, buf []byte, offset int) int {
	b := buf[offset:]
	clearBytes(b, 0, 4)
	n := copy(b[4:], box.meanVal.Value)
	return 4 + n
}

func encodingLengthMean(box *Box) int { return 4 + len(box.meanVal.Value) }

func decodeName(box *Box, buf []byte, start, end int) error {
	if end-start < 4 {
		return errTooShort(TypeName, end-start, 4)
	}
	box.nameVal = &Name{Value: string(buf[start+4 : end])}
	return nil
}

func encodeName(box *Box, buf []byte, offset int) int {
	b := buf[offset:]
	clearBytes(b, 0, 4)
	n := copy(b[4:], box.nameVal.Value)
	return 4 + n
}

func encodingLengthName(box *Box) int { return 4 + len(box.nameVal.Value) }

func decodeData(box *Box, buf []byte, start, end int) error {
	if end-start < 8 {
		return errTooShort(TypeData, end-start, 8)
	}
	d := &Data{
		TypeCode: be.Uint32(buf[start : start+4]),
		Locale:   be.Uint32(buf[start+4 : start+8]),
	}
	d.Value = make([]byte, end-start-8)
	copy(d.Value, buf[start+8:end])
	box.dataVal = d
	return nil
}

func encodeData(box *Box, buf []byte, offset int) int {
	b := buf[offset:]
	d := box.dataVal
	be.PutUint32(b[0:4], d.TypeCode)
	be.PutUint32(b[4:8], d.Locale)
	copy(b[8:], d.Value)
	return 8 + len(d.Value)
}

func encodingLengthData(box *Box) int { return 8 + len(box.dataVal.Value) }
