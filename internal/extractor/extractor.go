package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/codetransmute/internal/codetree"
)

var nameRe = regexp.MustCompile(`(?:def|class|function)\s+([a-zA-Z0-9_]+)`)

// Extract builds a structural tree from source text using line heuristics.
// It never fails: lines it cannot classify become raw-line leaves.
func Extract(source string, lang codetree.Language) *codetree.Node {
	root := codetree.NewNode(codetree.KindProgram)

	// Indentation stack. The root sits at -1 so every line nests under it.
	type stackEntry struct {
		node   *codetree.Node
		indent int
	}
	stack := []stackEntry{{node: root, indent: -1}}

	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		indent := leadingSpace(line)
		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node

		n := classify(trimmed, lang)
		n.SourceLine = i
		parent.Children = append(parent.Children, n)

		if n.Kind.IsContainer() {
			stack = append(stack, stackEntry{node: n, indent: indent})
		}
	}

	return root
}

// classify maps a trimmed line to a node. Order matters: function, class,
// control flow, then raw.
func classify(trimmed string, lang codetree.Language) *codetree.Node {
	switch {
	case isFunction(trimmed, lang):
		n := codetree.NewNode(codetree.KindFunction)
		n.Label = extractName(trimmed, "anonymous")
		return n
	case strings.HasPrefix(trimmed, "class "):
		n := codetree.NewNode(codetree.KindClass)
		n.Label = extractName(trimmed, "Class")
		return n
	case isControlFlow(trimmed):
		kind := codetree.KindIf
		if strings.HasPrefix(trimmed, "for ") || strings.HasPrefix(trimmed, "while ") {
			kind = codetree.KindLoop
		}
		n := codetree.NewNode(kind)
		n.Content = trimmed
		return n
	default:
		n := codetree.NewNode(codetree.KindRawLine)
		n.Content = trimmed
		return n
	}
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#")
}

func isFunction(trimmed string, lang codetree.Language) bool {
	if lang == codetree.LangPython {
		return strings.HasPrefix(trimmed, "def ")
	}
	if strings.Contains(trimmed, "function ") {
		return true
	}
	return strings.Contains(trimmed, "(") && strings.Contains(trimmed, ")") &&
		(strings.Contains(trimmed, "{") || strings.HasSuffix(trimmed, ":"))
}

func isControlFlow(trimmed string) bool {
	return strings.HasPrefix(trimmed, "if ") ||
		strings.HasPrefix(trimmed, "for ") ||
		strings.HasPrefix(trimmed, "while ") ||
		strings.HasPrefix(trimmed, "else")
}

func extractName(trimmed, fallback string) string {
	if m := nameRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return fallback
}

// leadingSpace counts whitespace characters before the first non-space.
func leadingSpace(line string) int {
	n := 0
	for _, r := range line {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}
