package projector

import (
	"strings"
	"unicode/utf8"
)

// Namespace is the xmlns of the editor's block markup.
const Namespace = "https://developers.google.com/blockly/xml"

var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
)

// Escape replaces the five markup-unsafe characters with entities. Invalid
// UTF-8 and runes XML 1.0 forbids become U+FFFD.
func Escape(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	s = strings.Map(xmlRune, s)
	return xmlEscaper.Replace(s)
}

func xmlRune(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r < 0x20, r == 0xFFFE, r == 0xFFFF, r >= 0xD800 && r <= 0xDFFF:
		return utf8.RuneError
	}
	return r
}

// Render serializes a plan as compact block markup.
func Render(blocks []Block) string {
	var sb strings.Builder
	sb.WriteString(`<xml xmlns="` + Namespace + `">`)
	writeChain(&sb, blocks)
	sb.WriteString("</xml>")
	return sb.String()
}

// writeChain nests each block inside the <next> of its predecessor. Siblings
// are opened in a loop and closed in reverse, so long chains don't recurse.
func writeChain(sb *strings.Builder, chain []Block) {
	for i, b := range chain {
		if i > 0 {
			sb.WriteString("<next>")
		}
		sb.WriteString(`<block type="`)
		sb.WriteString(string(b.Type))
		sb.WriteString(`">`)
		for _, f := range b.Fields {
			sb.WriteString(`<field name="`)
			sb.WriteString(f.Name)
			sb.WriteString(`">`)
			sb.WriteString(Escape(f.Value))
			sb.WriteString("</field>")
		}
		if len(b.Body) > 0 {
			sb.WriteString(`<statement name="BODY">`)
			writeChain(sb, b.Body)
			sb.WriteString("</statement>")
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		sb.WriteString("</block>")
		if i > 0 {
			sb.WriteString("</next>")
		}
	}
}
