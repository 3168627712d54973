// Package preview renders block markup back into text, the way the editor's
// code generator does for its live preview.
package preview

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/dgallion1/codetransmute/internal/projector"
)

const indent = "  "

type xmlDoc struct {
	XMLName xml.Name   `xml:"xml"`
	Blocks  []xmlBlock `xml:"block"`
}

type xmlBlock struct {
	Type       string         `xml:"type,attr"`
	Fields     []xmlField     `xml:"field"`
	Statements []xmlStatement `xml:"statement"`
	Next       *xmlNext       `xml:"next"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlStatement struct {
	Name   string     `xml:"name,attr"`
	Blocks []xmlBlock `xml:"block"`
}

type xmlNext struct {
	Block *xmlBlock `xml:"block"`
}

// Parse decodes markup into top-level block chains.
func Parse(markup string) ([][]projector.Block, error) {
	var doc xmlDoc
	if err := xml.Unmarshal([]byte(markup), &doc); err != nil {
		return nil, fmt.Errorf("decode markup: %w", err)
	}
	chains := make([][]projector.Block, 0, len(doc.Blocks))
	for i := range doc.Blocks {
		chains = append(chains, toChain(&doc.Blocks[i]))
	}
	return chains, nil
}

// toChain flattens a block and its next links into a sibling slice.
func toChain(first *xmlBlock) []projector.Block {
	var chain []projector.Block
	for b := first; b != nil; {
		pb := projector.Block{Type: projector.BlockType(b.Type)}
		for _, f := range b.Fields {
			pb.Fields = append(pb.Fields, projector.Field{Name: f.Name, Value: f.Value})
		}
		for _, st := range b.Statements {
			if st.Name == "BODY" && len(st.Blocks) > 0 {
				pb.Body = toChain(&st.Blocks[0])
			}
		}
		chain = append(chain, pb)

		if b.Next == nil {
			break
		}
		b = b.Next.Block
	}
	return chain
}

// Generate turns markup into preview text.
func Generate(markup string) (string, error) {
	chains, err := Parse(markup)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(chains))
	for _, chain := range chains {
		code, err := GenerateBlocks(chain)
		if err != nil {
			return "", err
		}
		parts = append(parts, code)
	}
	return tidy(strings.Join(parts, "\n")), nil
}

// GenerateBlocks renders one block chain.
func GenerateBlocks(chain []projector.Block) (string, error) {
	var sb strings.Builder
	for _, b := range chain {
		code, err := generateBlock(b)
		if err != nil {
			return "", err
		}
		sb.WriteString(code)
	}
	return sb.String(), nil
}

func generateBlock(b projector.Block) (string, error) {
	body, err := GenerateBlocks(b.Body)
	if err != nil {
		return "", err
	}
	body = prefixLines(body, indent)

	switch b.Type {
	case projector.TypeFunction:
		return fmt.Sprintf("function %s() {\n%s}\n", field(b, "NAME"), body), nil
	case projector.TypeClass:
		return fmt.Sprintf("class %s {\n%s}\n", field(b, "NAME"), body), nil
	case projector.TypeControl:
		return fmt.Sprintf("control (%s) {\n%s}\n", field(b, "CONDITION"), body), nil
	case projector.TypeRawCode:
		return field(b, "CODE") + "\n", nil
	case projector.TypePlaceholder:
		return "// ... implementation hidden ...\n", nil
	}
	return "", fmt.Errorf("unsupported block type %q", b.Type)
}

func field(b projector.Block, name string) string {
	for _, f := range b.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// prefixLines indents every line of code except after a trailing newline.
func prefixLines(code, prefix string) string {
	if code == "" {
		return ""
	}
	trailing := strings.HasSuffix(code, "\n")
	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	return out
}

// tidy strips trailing whitespace on each line, as the editor's generator does.
func tidy(code string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}
