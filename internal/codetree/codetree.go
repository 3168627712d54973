package codetree

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the structural role of a Node.
type Kind string

const (
	KindProgram  Kind = "program"
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindIf       Kind = "if"
	KindLoop     Kind = "loop"
	KindRawLine  Kind = "raw_line"

	// Reserved for tree shape only; the extractor never produces these.
	KindVariableDef Kind = "variable_def"
	KindReturn      Kind = "return"
	KindGroup       Kind = "group"
)

// IsContainer reports whether deeper-indented lines may nest under this kind.
func (k Kind) IsContainer() bool {
	switch k {
	case KindFunction, KindClass, KindIf, KindLoop:
		return true
	}
	return false
}

// Node is a node in the structural tree extracted from source text.
type Node struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"kind"`
	Label      string  `json:"label,omitempty"`   // Function or class name
	Content    string  `json:"content,omitempty"` // Condition text or raw line
	Children   []*Node `json:"children"`
	SourceLine int     `json:"source_line"` // 0-based, traceability only
}

// NewNode returns a node with a fresh process-unique id.
func NewNode(kind Kind) *Node {
	return &Node{
		ID:       uuid.NewString(),
		Kind:     kind,
		Children: []*Node{},
	}
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of that node.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil || !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// Count tallies the nodes of each kind below root. The root itself is not counted.
func Count(root *Node) map[Kind]int {
	counts := make(map[Kind]int)
	Walk(root, func(n *Node, depth int) bool {
		if depth > 0 {
			counts[n.Kind]++
		}
		return true
	})
	return counts
}

// Level controls how much structure the projector renders.
type Level int

const (
	LevelArchitecture Level = 1 // functions and classes only
	LevelLogic        Level = 2 // adds control flow
	LevelRaw          Level = 3 // everything
)

// ErrInvalidLevel is returned for abstraction levels outside 1..3.
var ErrInvalidLevel = errors.New("abstraction level must be 1, 2 or 3")

// ParseLevel validates n as an abstraction level.
func ParseLevel(n int) (Level, error) {
	l := Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidLevel, n)
	}
	return l, nil
}

func (l Level) Valid() bool {
	return l >= LevelArchitecture && l <= LevelRaw
}

func (l Level) String() string {
	switch l {
	case LevelArchitecture:
		return "arch"
	case LevelLogic:
		return "logic"
	case LevelRaw:
		return "raw"
	}
	return fmt.Sprintf("level(%d)", int(l))
}
