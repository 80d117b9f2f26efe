package extracthtml

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// The field catalogs are written against a jQuery-style dialect: plain CSS plus
// a trailing positional pseudo (`td[data-stat="wins"]:first`). cascadia does not
// know those pseudos, so each comma group is split into its CSS part and a
// position. The position counts within each top-level node of the queried
// root: once per row of a combined fragment, once for a whole page.

type position int

const (
	posAll position = iota
	posFirst
	posLast
	posEq
)

var rePositional = regexp.MustCompile(`:(first|last|eq\((-?\d+)\))\s*$`)

type selectorGroup struct {
	css     string
	matcher cascadia.Selector
	pos     position
	eq      int
}

type compiledSelector struct {
	raw    string
	groups []selectorGroup
}

func compileSelector(sel string) (compiledSelector, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return compiledSelector{}, fmt.Errorf("empty selector")
	}
	cs := compiledSelector{raw: sel}
	for _, part := range splitGroups(sel) {
		g := selectorGroup{css: strings.TrimSpace(part)}
		if m := rePositional.FindStringSubmatchIndex(g.css); m != nil {
			pseudo := g.css[m[2]:m[3]]
			switch {
			case pseudo == "first":
				g.pos = posFirst
			case pseudo == "last":
				g.pos = posLast
			default:
				n, err := strconv.Atoi(g.css[m[4]:m[5]])
				if err != nil {
					return compiledSelector{}, fmt.Errorf("selector %q: %w", sel, err)
				}
				g.pos, g.eq = posEq, n
			}
			g.css = strings.TrimSpace(g.css[:m[0]])
		}
		if g.css == "" {
			return compiledSelector{}, fmt.Errorf("selector %q: positional pseudo without a selector", sel)
		}
		m, err := cascadia.Compile(g.css)
		if err != nil {
			return compiledSelector{}, fmt.Errorf("selector %q: %w", sel, err)
		}
		g.matcher = m
		cs.groups = append(cs.groups, g)
	}
	return cs, nil
}

// splitGroups splits on commas that are not inside quotes, brackets or parens.
func splitGroups(sel string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range sel {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, sel[start:i])
			start = i + 1
		}
	}
	return append(parts, sel[start:])
}

// match returns the elements under root selected by cs, in document order.
// A zero compiledSelector, or a nil root, matches nothing.
func (cs compiledSelector) match(root *goquery.Selection) *goquery.Selection {
	if root == nil {
		return &goquery.Selection{}
	}
	if len(cs.groups) == 0 {
		return root.Slice(0, 0)
	}
	if len(cs.groups) == 1 {
		return cs.groups[0].apply(root)
	}
	set := make(nodeSet)
	for _, g := range cs.groups {
		for _, n := range g.apply(root).Nodes {
			set[n] = struct{}{}
		}
	}
	return root.FindMatcher(set)
}

func (g selectorGroup) apply(root *goquery.Selection) *goquery.Selection {
	sel := root.FindMatcher(g.matcher)
	if g.pos == posAll || sel.Length() == 0 {
		return sel
	}
	picked := make(nodeSet)
	for _, run := range byTopLevel(root, sel.Nodes) {
		if n := g.pick(run); n != nil {
			picked[n] = struct{}{}
		}
	}
	return root.FindMatcher(picked)
}

func (g selectorGroup) pick(run []*html.Node) *html.Node {
	i := 0
	switch g.pos {
	case posLast:
		i = len(run) - 1
	case posEq:
		i = g.eq
		if i < 0 {
			i += len(run)
		}
	}
	if i < 0 || i >= len(run) {
		return nil
	}
	return run[i]
}

// byTopLevel splits nodes, in document order, into runs sharing the same
// child of a root node as ancestor-or-self.
func byTopLevel(root *goquery.Selection, nodes []*html.Node) [][]*html.Node {
	roots := make(nodeSet, len(root.Nodes))
	for _, r := range root.Nodes {
		roots[r] = struct{}{}
	}
	var (
		runs [][]*html.Node
		last *html.Node
	)
	for _, n := range nodes {
		top := n
		for top.Parent != nil && !roots.Match(top.Parent) {
			top = top.Parent
		}
		if top != last || len(runs) == 0 {
			runs = append(runs, nil)
			last = top
		}
		runs[len(runs)-1] = append(runs[len(runs)-1], n)
	}
	return runs
}

// nodeSet is a goquery.Matcher over a fixed set of nodes. Matching it with
// FindMatcher yields the set in document order.
type nodeSet map[*html.Node]struct{}

func (s nodeSet) Match(n *html.Node) bool {
	_, ok := s[n]
	return ok
}

func (s nodeSet) MatchAll(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if s.Match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func (s nodeSet) Filter(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if s.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// ValidateSelector reports whether sel compiles in the selector dialect
// used by schemes.
func ValidateSelector(sel string) error {
	_, err := compileSelector(sel)
	return err
}

// Select runs sel, in the scheme selector dialect, against root.
func Select(root *goquery.Selection, sel string) (*goquery.Selection, error) {
	cs, err := compileSelector(sel)
	if err != nil {
		return nil, err
	}
	return cs.match(root), nil
}
