package mp4

import "fmt"

// file.go implements the whole-file view: a sequence of top-level sibling
// boxes (ftyp, free, moov, mdat, ...) as found directly in an MP4/M4A
// file, plus the byte offsets the writer façade (C9) needs to splice a
// replacement moov back into the original buffer without touching mdat.

// TopLevelBox pairs a decoded top-level box with its absolute byte range
// in the source buffer.
type TopLevelBox struct {
	Box   *Box
	Start int
	End   int
}

// File is the top-level box sequence of a parsed MP4/M4A file.
type File struct {
	Boxes []TopLevelBox
	buf   []byte
}

// DecodeFile parses buf as a sequence of top-level boxes.
func DecodeFile(buf []byte) (*File, error) {
	f := &File{buf: buf}
	pos := 0
	for pos < len(buf) {
		box, err := Decode(buf, pos, len(buf))
		if err != nil {
			return nil, fmt.Errorf("mp4: decoding top-level box at offset %d: %w", pos, err)
		}
		end := pos + int(box.Size)
		f.Boxes = append(f.Boxes, TopLevelBox{Box: box, Start: pos, End: end})
		pos = end
	}
	return f, nil
}

// Moov returns the top-level moov box and its byte range, or false if the
// file has none.
func (f *File) Moov() (TopLevelBox, bool) {
	for _, tb := range f.Boxes {
		if tb.Box.Type == TypeMoov {
			return tb, true
		}
	}
	return TopLevelBox{}, false
}

// ReplaceMoov returns a new file buffer with the byte range [moov.Start,
// moov.End) replaced by newMoov, leaving every other byte (including all
// of mdat) untouched. This is C9 step 6.
func ReplaceMoov(original []byte, moov TopLevelBox, newMoov []byte) []byte {
	out := make([]byte, 0, len(original)-(moov.End-moov.Start)+len(newMoov))
	out = append(out, original[:moov.Start]...)
	out = append(out, newMoov...)
	out = append(out, original[moov.End:]...)
	return out
}
