package mp4

import (
	"fmt"
	"unicode/utf8"
)

// freeform.go implements C4, the iTunes-style "----" freeform atom codec,
// plus the handful of well-known single-value ilst items (©nam etc.) that
// the muxer driver (C10) and writer façade (C9) need to set.

// Well-known "data" type codes (ISO 14496-12 / iTunes metadata).
const (
	DataTypeBinary = 0
	DataTypeUTF8   = 1
	DataTypeJPEG   = 13
	DataTypePNG    = 14
)

// FreeformItem is the decoded form of one "----" atom: a (namespace, name)
// identity plus its raw value and declared type code / locale.
type FreeformItem struct {
	Namespace string
	Name      string
	TypeCode  uint32
	Locale    uint32
	Value     []byte
}

// EncodeFreeform builds a "----" box from item. TypeCode = 1 requires the
// value to be valid UTF-8 per the FreeformItem invariant in §3.
func EncodeFreeform(item FreeformItem) (*Box, error) {
	if item.TypeCode == DataTypeUTF8 && !utf8.Valid(item.Value) {
		return nil, fmt.Errorf("mp4: freeform %s:%s: type_code=1 requires valid UTF-8", item.Namespace, item.Name)
	}

	box := newContainer(TypeFreeform)

	mean := &Box{Type: TypeMean}
	mean.SetMean(&Mean{Value: item.Namespace})
	box.SetChild(TypeMean, mean)

	name := &Box{Type: TypeName}
	name.SetName(&Name{Value: item.Name})
	box.SetChild(TypeName, name)

	data := &Box{Type: TypeData}
	value := make([]byte, len(item.Value))
	copy(value, item.Value)
	data.SetData(&Data{TypeCode: item.TypeCode, Locale: item.Locale, Value: value})
	box.SetChild(TypeData, data)

	return box, nil
}

// DecodeFreeform reverses EncodeFreeform. Returns false if box is not a
// well-formed "----" atom (missing mean/name/data children).
func DecodeFreeform(box *Box) (FreeformItem, bool) {
	if box.Type != TypeFreeform {
		return FreeformItem{}, false
	}
	mean := box.Child(TypeMean)
	name := box.Child(TypeName)
	data := box.Child(TypeData)
	if mean == nil || name == nil || data == nil || mean.Mean() == nil || name.Name() == nil || data.Data() == nil {
		return FreeformItem{}, false
	}
	d := data.Data()
	return FreeformItem{
		Namespace: mean.Mean().Value,
		Name:      name.Name().Value,
		TypeCode:  d.TypeCode,
		Locale:    d.Locale,
		Value:     d.Value,
	}, true
}

// isFreeform reports whether box is the ---- item identified by ns:name.
func isFreeform(box *Box, ns, name string) bool {
	item, ok := DecodeFreeform(box)
	return ok && item.Namespace == ns && item.Name == name
}

// SetFreeform replaces (by identity) or appends the ----:ns:name item
// under ilst with the given typed value. This is the operation C9 step 3
// performs for kaid/vpch/kons: "create/replace the freeform items with
// identities (com.stems, kaid|vpch|kons)... unknown freeform items are
// preserved".
func SetFreeform(ilst *Box, ns, name string, typeCode uint32, value []byte) error {
	box, err := EncodeFreeform(FreeformItem{Namespace: ns, Name: name, TypeCode: typeCode, Value: value})
	if err != nil {
		return err
	}
	ilst.ReplaceOrAppendOther(func(o *Box) bool { return isFreeform(o, ns, name) }, box)
	return nil
}

// GetFreeform looks up the ----:ns:name item under ilst.
func GetFreeform(ilst *Box, ns, name string) (FreeformItem, bool) {
	for _, o := range ilst.OtherBoxes {
		if item, ok := DecodeFreeform(o); ok && item.Namespace == ns && item.Name == name {
			return item, true
		}
	}
	return FreeformItem{}, false
}

// DeleteFreeform removes the ----:ns:name item under ilst, if present.
func DeleteFreeform(ilst *Box, ns, name string) {
	ilst.RemoveOther(func(o *Box) bool { return isFreeform(o, ns, name) })
}

// SetSimpleText sets (or replaces) a single-value UTF-8 ilst item such as
// ©nam/©ART/©alb/©day/©gen. These are single "data" children wrapped
// directly in the tag box, not a ---- freeform atom.
func SetSimpleText(ilst *Box, tag BoxType, value string) {
	box := &Box{Type: tag, Children: map[BoxType][]*Box{}}
	data := &Box{Type: TypeData}
	data.SetData(&Data{TypeCode: DataTypeUTF8, Value: []byte(value)})
	box.SetChild(TypeData, data)
	ilst.ReplaceOrAppendOther(func(o *Box) bool { return o.Type == tag }, box)
}

// GetSimpleText returns the UTF-8 value of a single-value ilst item tag,
// or "" if absent.
func GetSimpleText(ilst *Box, tag BoxType) string {
	box := ilst.FindOther(func(o *Box) bool { return o.Type == tag })
	if box == nil {
		return ""
	}
	data := box.Child(TypeData)
	if data == nil || data.Data() == nil {
		return ""
	}
	return string(data.Data().Value)
}

// SetCoverArt sets (or replaces) the "covr" item with JPEG or PNG bytes.
func SetCoverArt(ilst *Box, value []byte, typeCode uint32) {
	box := &Box{Type: TypeCovr, Children: map[BoxType][]*Box{}}
	data := &Box{Type: TypeData}
	v := make([]byte, len(value))
	copy(v, value)
	data.SetData(&Data{TypeCode: typeCode, Value: v})
	box.SetChild(TypeData, data)
	ilst.ReplaceOrAppendOther(func(o *Box) bool { return o.Type == TypeCovr }, box)
}

// GetCoverArt returns the "covr" item's raw bytes, or nil if absent.
func GetCoverArt(ilst *Box) []byte {
	box := ilst.FindOther(func(o *Box) bool { return o.Type == TypeCovr })
	if box == nil {
		return nil
	}
	data := box.Child(TypeData)
	if data == nil || data.Data() == nil {
		return nil
	}
	return data.Data().Value
}

// SetTrackNumber sets the "trkn" item: track N of total M (iTunes binary
// layout: 2 bytes reserved, 2 bytes track, 2 bytes total, 2 bytes reserved).
func SetTrackNumber(ilst *Box, track, total uint16) {
	v := make([]byte, 8)
	be.PutUint16(v[2:4], track)
	be.PutUint16(v[4:6], total)
	box := &Box{Type: TypeTrkn, Children: map[BoxType][]*Box{}}
	data := &Box{Type: TypeData}
	data.SetData(&Data{TypeCode: DataTypeBinary, Value: v})
	box.SetChild(TypeData, data)
	ilst.ReplaceOrAppendOther(func(o *Box) bool { return o.Type == TypeTrkn }, box)
}
