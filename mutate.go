package mp4

// mutate.go implements the "replace one subtree at an identified path"
// edit primitive described in §3 of the spec. The box tree is otherwise
// treated as immutable once decoded; callers build new leaf/container
// values and splice them in through these helpers rather than hand-rolling
// map surgery, so every edit path funnels through the same invariants
// (Children keyed by the box's own Type, OtherBoxes order preserved).

// SetChild installs child as the sole box of its type under b, replacing
// any existing box of that type. It is used for the non-array container
// slots declared in containerDef (e.g. udta's "meta", meta's "ilst").
func (b *Box) SetChild(t BoxType, child *Box) {
	if b.Children == nil {
		b.Children = make(map[BoxType][]*Box)
	}
	child.Type = t
	b.Children[t] = []*Box{child}
}

// AppendChild appends child to an array-typed container slot (e.g.
// moov's "trak" list).
func (b *Box) AppendChild(t BoxType, child *Box) {
	if b.Children == nil {
		b.Children = make(map[BoxType][]*Box)
	}
	child.Type = t
	b.Children[t] = append(b.Children[t], child)
}

// FindOther returns the first box in OtherBoxes matching pred, or nil.
func (b *Box) FindOther(pred func(*Box) bool) *Box {
	for _, o := range b.OtherBoxes {
		if pred(o) {
			return o
		}
	}
	return nil
}

// ReplaceOrAppendOther replaces the first OtherBoxes entry matching pred
// with replacement, or appends replacement if no match exists. This is
// the primitive the freeform-item codec (C4) uses to implement "a writer
// replaces an existing item with the same identity" while preserving the
// position (and hence the byte-diff-minimising order) of existing items.
func (b *Box) ReplaceOrAppendOther(pred func(*Box) bool, replacement *Box) {
	for i, o := range b.OtherBoxes {
		if pred(o) {
			b.OtherBoxes[i] = replacement
			return
		}
	}
	b.OtherBoxes = append(b.OtherBoxes, replacement)
}

// RemoveOther deletes every OtherBoxes entry matching pred.
func (b *Box) RemoveOther(pred func(*Box) bool) {
	kept := b.OtherBoxes[:0]
	for _, o := range b.OtherBoxes {
		if !pred(o) {
			kept = append(kept, o)
		}
	}
	b.OtherBoxes = kept
}

// newContainer allocates an empty container box of type t.
func newContainer(t BoxType) *Box {
	return &Box{Type: t, Children: make(map[BoxType][]*Box), HasFullBox: fullBoxes[t]}
}

// EnsurePath walks (and creates, where missing) the chain
// udta -> meta (with an "mdir" hdlr) -> ilst under moov, returning the
// ilst box. This is the "locate or synthesise" step of the writer façade
// (C9 step 3).
func EnsurePath(moov *Box) *Box {
	udta := moov.Child(TypeUdta)
	if udta == nil {
		udta = newContainer(TypeUdta)
		moov.SetChild(TypeUdta, udta)
	}

	meta := udta.Child(TypeMeta)
	if meta == nil {
		meta = newContainer(TypeMeta)
		hdlr := &Box{Type: TypeHdlr, HasFullBox: true}
		hdlr.Hdlr = &Hdlr{HandlerType: [4]byte{'m', 'd', 'i', 'r'}}
		meta.SetChild(TypeHdlr, hdlr)
		udta.SetChild(TypeMeta, meta)
	}

	ilst := meta.Child(TypeIlst)
	if ilst == nil {
		ilst = newContainer(TypeIlst)
		meta.SetChild(TypeIlst, ilst)
	}
	return ilst
}

// Stem returns the raw "stem" box under udta, or nil.
func Stem(moov *Box) *Box {
	udta := moov.Child(TypeUdta)
	if udta == nil {
		return nil
	}
	return udta.Child(TypeStem)
}

// SetStem installs raw JSON payload as moov/udta/stem, replacing any
// existing stem box.
func SetStem(moov *Box, payload []byte) {
	udta := moov.Child(TypeUdta)
	if udta == nil {
		udta = newContainer(TypeUdta)
		moov.SetChild(TypeUdta, udta)
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	udta.SetChild(TypeStem, &Box{Type: TypeStem, Buffer: buf})
}
