package extracthtml

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var commentDelims = strings.NewReplacer("<!--", "", "-->", "")

// Unwrap deletes every comment delimiter from html, leaving the commented
// markup in place. Removing a delimiter can splice a new one together
// ("<!-<!---->-"), so it runs to a fixed point; Unwrap(Unwrap(x)) == Unwrap(x).
func Unwrap(html string) string {
	for {
		out := commentDelims.Replace(html)
		if out == html {
			return out
		}
		html = out
	}
}

// StatsTable returns the outer HTML of each row of the table inside the first
// element matched by container, after unwrapping any comments around it. The
// rows are those matched by rowSelector ("tbody tr" when empty). It reports
// ok=false when the container is not on the page.
func StatsTable(page *goquery.Selection, container, rowSelector string) ([]string, bool, error) {
	cs, err := compileSelector(container)
	if err != nil {
		return nil, false, fmt.Errorf("container: %w", err)
	}
	if rowSelector == "" {
		rowSelector = "tbody tr"
	}
	rows, err := compileSelector(rowSelector)
	if err != nil {
		return nil, false, fmt.Errorf("row selector: %w", err)
	}

	box := cs.match(page).First()
	if box.Length() == 0 {
		return nil, false, nil
	}
	outer, err := goquery.OuterHtml(box)
	if err != nil {
		return nil, false, fmt.Errorf("render %s: %w", container, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(Unwrap(outer)))
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", container, err)
	}

	var out []string
	rows.match(doc.Selection).Each(func(_ int, tr *goquery.Selection) {
		if h, err := goquery.OuterHtml(tr); err == nil {
			out = append(out, h)
		}
	})
	return out, true, nil
}
