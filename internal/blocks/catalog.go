// Package blocks holds the block-type catalog the visual editor is built
// from: block definitions, toolbox layout and per-locale labels.
package blocks

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/codetransmute/internal/codetree"
)

//go:embed catalog.yaml
var catalogYAML []byte

// FieldDef describes an editable field on a block.
type FieldDef struct {
	Name              string `yaml:"name" json:"name"`
	Default           string `yaml:"default" json:"default"`
	SerializableLabel bool   `yaml:"serializable_label" json:"serializable_label,omitempty"`
}

// Definition describes one block type.
type Definition struct {
	Type    string     `yaml:"type" json:"type"`
	Label   string     `yaml:"label" json:"label"` // key into Labels.Blocks
	Colour  string     `yaml:"colour" json:"colour"`
	Fields  []FieldDef `yaml:"fields" json:"fields"`
	Body    bool       `yaml:"body" json:"body"`
	Tooltip string     `yaml:"tooltip" json:"tooltip,omitempty"` // key into Labels.Blocks
}

// Category groups block types in the toolbox.
type Category struct {
	Key    string   `yaml:"key" json:"key"`
	Colour string   `yaml:"colour" json:"colour"`
	Blocks []string `yaml:"blocks" json:"blocks"`
}

// Labels is one locale's UI strings.
type Labels struct {
	AppTitle             string            `yaml:"app_title" json:"app_title"`
	OpenProject          string            `yaml:"open_project" json:"open_project"`
	Export               string            `yaml:"export" json:"export"`
	Abstraction          string            `yaml:"abstraction" json:"abstraction"`
	ProjectExplorer      string            `yaml:"project_explorer" json:"project_explorer"`
	GeneratedCodePreview string            `yaml:"generated_code_preview" json:"generated_code_preview"`
	Loading              string            `yaml:"loading" json:"loading"`
	ErrorRead            string            `yaml:"error_read" json:"error_read"`
	DemoMsg              string            `yaml:"demo_msg" json:"demo_msg"`
	ClickToOpen          string            `yaml:"click_to_open" json:"click_to_open"`
	Levels               map[int]string    `yaml:"levels" json:"levels"`
	Toolbox              map[string]string `yaml:"toolbox" json:"toolbox"`
	Blocks               map[string]string `yaml:"blocks" json:"blocks"`
}

// Catalog is the registry of block types and label sets. It is built once
// and shared read-only.
type Catalog struct {
	Categories []Category        `yaml:"categories"`
	Blocks     []Definition      `yaml:"blocks"`
	Locales    map[string]Labels `yaml:"locales"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses and checks a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Locales) == 0 {
		return nil, fmt.Errorf("catalog has no locales")
	}

	known := make(map[string]bool, len(c.Blocks))
	for _, b := range c.Blocks {
		known[b.Type] = true
	}
	for _, cat := range c.Categories {
		for _, t := range cat.Blocks {
			if !known[t] {
				return nil, fmt.Errorf("category %s references unknown block %s", cat.Key, t)
			}
		}
	}
	for name, l := range c.Locales {
		for _, b := range c.Blocks {
			if _, ok := l.Blocks[b.Label]; !ok {
				return nil, fmt.Errorf("locale %s is missing block label %q", name, b.Label)
			}
		}
	}
	return &c, nil
}

// LocaleNames returns the available locales in sorted order.
func (c *Catalog) LocaleNames() []string {
	names := make([]string, 0, len(c.Locales))
	for name := range c.Locales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Labels returns the label set for a locale.
func (c *Catalog) Labels(locale string) (Labels, bool) {
	l, ok := c.Locales[locale]
	return l, ok
}

// Definition looks up a block type.
func (c *Catalog) Definition(blockType string) (Definition, bool) {
	for _, b := range c.Blocks {
		if b.Type == blockType {
			return b, true
		}
	}
	return Definition{}, false
}

// LevelName returns the display name of an abstraction level.
func (c *Catalog) LevelName(locale string, level codetree.Level) string {
	if l, ok := c.Locales[locale]; ok {
		if name, ok := l.Levels[int(level)]; ok {
			return name
		}
	}
	return level.String()
}

// Toolbox renders the toolbox markup for a locale. Unknown locales fall
// back to category keys as names.
func (c *Catalog) Toolbox(locale string) string {
	labels := c.Locales[locale]

	var sb strings.Builder
	sb.WriteString("<xml>")
	for _, cat := range c.Categories {
		name := cat.Key
		if n, ok := labels.Toolbox[cat.Key]; ok {
			name = n
		}
		fmt.Fprintf(&sb, `<category name="%s" colour="%s">`, escapeAttr(name), escapeAttr(cat.Colour))
		for _, t := range cat.Blocks {
			fmt.Fprintf(&sb, `<block type="%s"></block>`, escapeAttr(t))
		}
		sb.WriteString("</category>")
	}
	sb.WriteString("</xml>")
	return sb.String()
}

var attrEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;", "'", "&apos;", `"`, "&quot;")

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
