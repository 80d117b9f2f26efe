package extracthtml

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DebugPrintSelector writes every node selector matches in html, each
// followed by a blank line: its trimmed text when textOnly is set, its outer
// HTML otherwise. The selector accepts the scheme pseudos (:first, :last,
// :eq(n)). With unwrap set, comment-hidden tables are exposed first.
func DebugPrintSelector(w io.Writer, html, selector string, textOnly, unwrap bool) error {
	sel, err := compileSelector(selector)
	if err != nil {
		return err
	}
	if unwrap {
		html = Unwrap(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	sel.match(doc.Selection).Each(func(_ int, node *goquery.Selection) {
		fmt.Fprintf(w, "%s\n\n", describe(node, textOnly))
	})
	return nil
}

func describe(node *goquery.Selection, textOnly bool) string {
	if textOnly {
		return strings.TrimSpace(node.Text())
	}
	if outer, err := goquery.OuterHtml(node); err == nil {
		return outer
	}
	inner, _ := node.Html()
	return inner
}
