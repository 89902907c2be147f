package dashboard

import (
	_ "embed"
	"strings"
)

//go:embed docs/documentation.md
var documentationSource string

// DocItem is one titled entry of a documentation section.
type DocItem struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DocSection is one heading of the documentation page.
type DocSection struct {
	Title string    `json:"title"`
	Body  string    `json:"body,omitempty"`
	Items []DocItem `json:"items,omitempty"`
}

// Documentation is the documentation page.
type Documentation struct {
	Title    string       `json:"title"`
	Sections []DocSection `json:"sections"`
	Markdown string       `json:"markdown"`
}

// LoadDocumentation returns the embedded documentation page.
func LoadDocumentation() Documentation {
	return parseDocumentation(documentationSource)
}

// parseDocumentation reads the subset of markdown the page uses: one
// "# " title, "## " sections, paragraphs and "- **Title**: text" items.
func parseDocumentation(src string) Documentation {
	doc := Documentation{Markdown: src}
	var cur *DocSection
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "## "):
			doc.Sections = append(doc.Sections, DocSection{Title: strings.TrimPrefix(line, "## ")})
			cur = &doc.Sections[len(doc.Sections)-1]
		case strings.HasPrefix(line, "# "):
			doc.Title = strings.TrimPrefix(line, "# ")
		case cur == nil:
		case strings.HasPrefix(line, "- "):
			cur.Items = append(cur.Items, parseItem(strings.TrimPrefix(line, "- ")))
		default:
			if cur.Body != "" {
				cur.Body += " "
			}
			cur.Body += line
		}
	}
	return doc
}

func parseItem(s string) DocItem {
	if rest, ok := strings.CutPrefix(s, "**"); ok {
		if title, text, ok := strings.Cut(rest, "**"); ok {
			return DocItem{Title: title, Text: strings.TrimSpace(strings.TrimPrefix(text, ":"))}
		}
	}
	return DocItem{Text: s}
}
