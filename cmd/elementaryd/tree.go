package main

import (
	"encoding/json"
	"fmt"

	"github.com/elementary-rt/elementary/internal/value"
)

// treeNode is the JSON shape the render command reads: a primitive node
// by kind, its props, and an ordered list of child references (each
// itself a treeNode plus the output channel it reads).
type treeNode struct {
	Kind     string          `json:"kind"`
	Props    value.Props     `json:"props"`
	Children []treeChildRef  `json:"children"`
}

type treeChildRef struct {
	Node    treeNode `json:"node"`
	Channel uint16   `json:"channel"`
}

// decodeTree parses a root-forest document: {"roots": [treeNode, ...]}.
func decodeTree(data []byte) ([]value.Value, error) {
	var doc struct {
		Roots []treeNode `json:"roots"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	roots := make([]value.Value, 0, len(doc.Roots))
	for i, n := range doc.Roots {
		v, err := buildValue(n)
		if err != nil {
			return nil, fmt.Errorf("decode tree: root %d: %w", i, err)
		}
		roots = append(roots, v)
	}
	return roots, nil
}

func buildValue(n treeNode) (value.Value, error) {
	refs := make([]value.Ref, 0, len(n.Children))
	for i, c := range n.Children {
		child, err := buildValue(c.Node)
		if err != nil {
			return value.Value{}, fmt.Errorf("child %d: %w", i, err)
		}
		refs = append(refs, value.OutChannel(child, c.Channel))
	}
	return value.CreatePrimitive(n.Kind, n.Props, refs...)
}
