// Package render turns note markdown into HTML previews. An optional YAML
// front matter block is split off and parsed; the body goes through goldmark
// with the GFM extensions.
package render

import (
	"bytes"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// FrontMatter is the YAML header a note may start with. Unknown keys are
// ignored.
type FrontMatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// Note is a note split into its front matter and markdown body.
type Note struct {
	Meta FrontMatter
	Body string
}

// Preview is the rendered form of a note.
type Preview struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
	HTML  string   `json:"html"`
}

// Split separates the front matter block from the body. The block must open
// with "---" on the first line and close with another "---" line. Content
// without a block, or with a header that is not YAML, comes back whole as
// the body.
func Split(content string) *Note {
	n := &Note{Body: content}
	after, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		return n
	}
	head, tail, ok := strings.Cut(after, "\n---\n")
	if !ok {
		// A block closing on the last line has no trailing newline.
		head, ok = strings.CutSuffix(after, "\n---")
		if !ok {
			return n
		}
		tail = ""
	}
	var meta FrontMatter
	if err := yaml.Unmarshal([]byte(head), &meta); err != nil {
		return n
	}
	n.Meta = meta
	n.Body = strings.TrimPrefix(tail, "\n")
	return n
}

var converter = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// ToHTML converts markdown to HTML. If conversion fails the original
// markdown comes back, so a broken note still shows something.
func ToHTML(markdown string) string {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(markdown), &buf); err != nil {
		return markdown
	}
	return buf.String()
}

// Render splits and renders a note. The title falls back to the file name
// without its extension when the front matter carries none.
func Render(name, content string) *Preview {
	n := Split(content)
	title := n.Meta.Title
	if title == "" {
		title = strings.TrimSuffix(name, path.Ext(name))
	}
	return &Preview{Title: title, Tags: n.Meta.Tags, HTML: ToHTML(n.Body)}
}
