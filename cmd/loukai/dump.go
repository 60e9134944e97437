package main

// dump.go renders a decoded box tree as text or JSON, grounded on the
// teacher's cmd/mp4dump tree-printing routine (BoxNode shape preserved),
// rewritten against the real whole-tree Box API (mp4.DecodeFile/Box)
// instead of the streaming Reader/Scanner API the retrieved source used.

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	mp4 "github.com/jorgealamilla/loukai"
)

// BoxNode is one box in the printable tree structure.
type BoxNode struct {
	Type      string    `json:"type"`
	Size      uint64    `json:"size"`
	MimeCodec string    `json:"mimeCodec,omitempty"`
	Children  []BoxNode `json:"children,omitempty"`
}

func buildNode(box *mp4.Box) BoxNode {
	node := BoxNode{Type: box.Type.String(), Size: box.Size}
	if box.Esds != nil {
		node.MimeCodec = box.Esds.MimeCodec
	}
	for _, t := range orderedChildTypes(box) {
		for _, child := range box.ChildList(t) {
			node.Children = append(node.Children, buildNode(child))
		}
	}
	for _, other := range box.OtherBoxes {
		node.Children = append(node.Children, buildNode(other))
	}
	return node
}

// orderedChildTypes returns box.Children's keys in a stable order so text
// and JSON dumps of the same file are byte-identical across runs.
func orderedChildTypes(box *mp4.Box) []mp4.BoxType {
	seen := map[mp4.BoxType]bool{}
	var order []mp4.BoxType
	for t := range box.Children {
		if !seen[t] {
			seen[t] = true
			order = append(order, t)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })
	return order
}

func dumpJSON(w io.Writer, file *mp4.File) error {
	var nodes []BoxNode
	for _, tb := range file.Boxes {
		nodes = append(nodes, buildNode(tb.Box))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(nodes)
}

func dumpText(w io.Writer, file *mp4.File) error {
	for _, tb := range file.Boxes {
		printNode(w, buildNode(tb.Box), 0)
	}
	return nil
}

func printNode(w io.Writer, node BoxNode, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(w, "  ")
	}
	if node.MimeCodec != "" {
		fmt.Fprintf(w, "%s (%d bytes, codec %s)\n", node.Type, node.Size, node.MimeCodec)
	} else {
		fmt.Fprintf(w, "%s (%d bytes)\n", node.Type, node.Size)
	}
	for _, c := range node.Children {
		printNode(w, c, depth+1)
	}
}
