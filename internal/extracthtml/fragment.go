package extracthtml

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is the HTML of one entity: a single table row, or several rows from
// different tables concatenated together. It is parsed lazily on first query.
type Fragment struct {
	raw string

	once sync.Once
	root *goquery.Selection
}

// NewFragment wraps raw HTML text.
func NewFragment(raw string) *Fragment {
	return &Fragment{raw: raw}
}

// FragmentFromSelection serializes sel (outer HTML of every node) into a
// Fragment. Nodes that fail to render are skipped.
func FragmentFromSelection(sel *goquery.Selection) *Fragment {
	var b strings.Builder
	if sel != nil {
		sel.Each(func(_ int, s *goquery.Selection) {
			if out, err := goquery.OuterHtml(s); err == nil {
				b.WriteString(out)
			}
		})
	}
	return NewFragment(b.String())
}

// parsedFragment wraps an already parsed selection.
func parsedFragment(raw string, root *goquery.Selection) *Fragment {
	f := &Fragment{raw: raw}
	f.once.Do(func() { f.root = root })
	return f
}

// Raw returns the fragment text.
func (f *Fragment) Raw() string {
	if f == nil {
		return ""
	}
	return f.raw
}

// Selection returns the parsed fragment. Queries run against its descendants.
func (f *Fragment) Selection() *goquery.Selection {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		f.root = parseFragment(f.raw)
	})
	return f.root
}

// parseFragment parses raw in the context its first tag needs. A bare <tr> or
// <td> parsed as a body fragment would be dropped by the HTML5 algorithm, so
// rows get a <tbody> context and cells a <tr> context.
func parseFragment(raw string) *goquery.Selection {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	switch firstTag(raw) {
	case atom.Td, atom.Th:
		ctx = &html.Node{Type: html.ElementNode, Data: "tr", DataAtom: atom.Tr}
	case atom.Tr:
		ctx = &html.Node{Type: html.ElementNode, Data: "tbody", DataAtom: atom.Tbody}
	case atom.Thead, atom.Tbody, atom.Tfoot, atom.Caption, atom.Colgroup:
		ctx = &html.Node{Type: html.ElementNode, Data: "table", DataAtom: atom.Table}
	}

	root := &html.Node{Type: html.DocumentNode}
	nodes, err := html.ParseFragment(strings.NewReader(raw), ctx)
	if err == nil {
		for _, n := range nodes {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
			root.AppendChild(n)
		}
	}
	return goquery.NewDocumentFromNode(root).Selection
}

func firstTag(raw string) atom.Atom {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return 0
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			return atom.Lookup(name)
		}
	}
}
