package extracthtml

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestUnwrap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`<div><!--<table></table>--></div>`, `<div><table></table></div>`},
		{`no comments`, `no comments`},
		{`<!-- a --><!-- b -->`, ` a  b `},
		{`<!-<!---->-`, ``},
		{`<<!---->!--x-->`, `x`},
		{``, ``},
	}

	for _, tc := range tests {
		once := Unwrap(tc.in)
		if once != tc.want {
			t.Fatalf("Unwrap(%q): want %q got %q", tc.in, tc.want, once)
		}
		if twice := Unwrap(once); twice != once {
			t.Fatalf("Unwrap not idempotent for %q: %q vs %q", tc.in, once, twice)
		}
	}
}

const hiddenTablePage = `<html><body>
<div id="all_totals"><div class="placeholder"></div>
<!--
<table id="totals"><thead><tr><th>Tm</th></tr></thead>
<tbody>
<tr><th>1</th><td data-stat="team"><a href="/teams/GSW/2018.html">Golden State</a></td></tr>
<tr class="thead"><th>Tm</th></tr>
<tr><th>2</th><td data-stat="team"><a href="/teams/HOU/2018.html">Houston</a></td></tr>
</tbody>
<tfoot><tr><td>League Average</td></tr></tfoot>
</table>
-->
</div>
</body></html>`

func TestStatsTable(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(hiddenTablePage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Before unwrapping the rows are invisible.
	if n := doc.Find("div#all_totals tbody tr").Length(); n != 0 {
		t.Fatalf("expected hidden rows, found %d", n)
	}

	rows, found, err := StatsTable(doc.Selection, "div#all_totals", "")
	if err != nil || !found {
		t.Fatalf("StatsTable: found=%v err=%v", found, err)
	}
	if len(rows) != 3 {
		t.Fatalf("want 3 body rows got %d", len(rows))
	}
	if !strings.Contains(rows[0], "/teams/GSW/2018.html") || !strings.Contains(rows[2], "Houston") {
		t.Fatalf("unexpected rows: %q", rows)
	}

	foot, _, err := StatsTable(doc.Selection, "div#all_totals", "tfoot tr")
	if err != nil || len(foot) != 1 || !strings.Contains(foot[0], "League Average") {
		t.Fatalf("footer rows: %q err=%v", foot, err)
	}

	rows, found, err = StatsTable(doc.Selection, "div#all_missing", "")
	if err != nil || found || rows != nil {
		t.Fatalf("missing container: rows=%v found=%v err=%v", rows, found, err)
	}

	if _, _, err := StatsTable(doc.Selection, "div[", ""); err == nil {
		t.Fatalf("expected error for bad container selector")
	}
}
