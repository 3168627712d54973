// Package projector turns a structural tree into block markup for the visual
// editor, hiding detail according to the abstraction level.
//
// Projection runs in two passes. Plan filters and collapses the tree into
// ordered block chains; Render serializes those chains. Both are pure.
package projector

import (
	"github.com/dgallion1/codetransmute/internal/codetree"
)

// BlockType is a block type name understood by the editor.
type BlockType string

const (
	TypeFunction    BlockType = "universal_function"
	TypeClass       BlockType = "universal_class"
	TypeControl     BlockType = "universal_control"
	TypeRawCode     BlockType = "raw_code"
	TypePlaceholder BlockType = "abstracted_logic"
)

// Field is a named text field on a block.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Block is one planned block. Body is the chain rendered inside its
// statement slot; sibling order in a slice is the next-chain order.
type Block struct {
	Type       BlockType `json:"type"`
	Fields     []Field   `json:"fields,omitempty"`
	Body       []Block   `json:"body,omitempty"`
	NodeID     string    `json:"node_id,omitempty"`
	SourceLine int       `json:"source_line"`
}

// Visible reports whether nodes of kind are shown at level.
func Visible(kind codetree.Kind, level codetree.Level) bool {
	switch level {
	case codetree.LevelRaw:
		return true
	case codetree.LevelLogic:
		return kind != codetree.KindRawLine
	case codetree.LevelArchitecture:
		return kind == codetree.KindFunction || kind == codetree.KindClass
	}
	return false
}

// Plan computes the block chain for the children of root at level.
func Plan(root *codetree.Node, level codetree.Level) ([]Block, error) {
	if _, err := codetree.ParseLevel(int(level)); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	return planChain(root.Children, level), nil
}

// planChain keeps the renderable nodes of a sibling list in order. Elided
// nodes drop out with their whole subtree, so the chain closes over them.
func planChain(nodes []*codetree.Node, level codetree.Level) []Block {
	var chain []Block
	for _, n := range nodes {
		if !Visible(n.Kind, level) {
			continue
		}
		if b, ok := planBlock(n, level); ok {
			chain = append(chain, b)
		}
	}
	return chain
}

func planBlock(n *codetree.Node, level codetree.Level) (Block, bool) {
	b := Block{NodeID: n.ID, SourceLine: n.SourceLine}

	switch n.Kind {
	case codetree.KindFunction:
		b.Type = TypeFunction
		b.Fields = []Field{{Name: "NAME", Value: orDefault(n.Label, "func")}}
		if len(n.Children) > 0 {
			if level == codetree.LevelArchitecture {
				b.Body = []Block{{Type: TypePlaceholder, SourceLine: n.SourceLine}}
			} else {
				b.Body = planChain(n.Children, level)
			}
		}
	case codetree.KindClass:
		b.Type = TypeClass
		b.Fields = []Field{{Name: "NAME", Value: orDefault(n.Label, "Class")}}
		b.Body = planChain(n.Children, level)
	case codetree.KindIf, codetree.KindLoop:
		kind := "If"
		if n.Kind == codetree.KindLoop {
			kind = "Loop"
		}
		b.Type = TypeControl
		b.Fields = []Field{
			{Name: "CONDITION", Value: n.Content},
			{Name: "TYPE", Value: kind},
		}
		b.Body = planChain(n.Children, level)
	case codetree.KindRawLine:
		b.Type = TypeRawCode
		b.Fields = []Field{{Name: "CODE", Value: n.Content}}
	default:
		return Block{}, false
	}
	return b, true
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Project plans and renders root at level.
func Project(root *codetree.Node, level codetree.Level) (string, error) {
	blocks, err := Plan(root, level)
	if err != nil {
		return "", err
	}
	return Render(blocks), nil
}

// Stats summarizes a plan.
type Stats struct {
	Blocks       int `json:"blocks"`       // rendered tree nodes
	Links        int `json:"links"`        // next-chain links
	Placeholders int `json:"placeholders"` // collapsed bodies
}

// Summarize counts the blocks and links of a plan.
func Summarize(blocks []Block) Stats {
	var s Stats
	var walk func(chain []Block)
	walk = func(chain []Block) {
		if len(chain) > 1 {
			s.Links += len(chain) - 1
		}
		for _, b := range chain {
			if b.Type == TypePlaceholder {
				s.Placeholders++
			} else {
				s.Blocks++
			}
			walk(b.Body)
		}
	}
	walk(blocks)
	return s
}
