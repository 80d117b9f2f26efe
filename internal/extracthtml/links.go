package extracthtml

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageLinks returns the link targets of field across every row of the page,
// resolved against pageURL. Rows come from sf the same way ExtractPage finds
// them. Duplicates are dropped; the first occurrence wins.
func PageLinks(pageURL, html string, sf *SchemeFile, s *Scheme, field string) ([]string, error) {
	if _, ok := s.Lookup(field); !ok {
		return nil, fmt.Errorf("unknown field %q", field)
	}
	frags, err := pageFragments(html, sf, s)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	seen := make(map[string]struct{})
	var out []string
	for _, f := range frags {
		for i := 0; ; i++ {
			href, ok := Link(s, f, field, i)
			if !ok {
				break
			}
			if href == "" {
				continue
			}
			abs := ResolveHref(base, href)
			if _, dup := seen[abs]; dup {
				continue
			}
			seen[abs] = struct{}{}
			out = append(out, abs)
		}
	}
	return out, nil
}

// PrintLinks writes PageLinks one per line.
func PrintLinks(w io.Writer, pageURL, html string, sf *SchemeFile, s *Scheme, field string) error {
	links, err := PageLinks(pageURL, html, sf, s, field)
	if err != nil {
		return err
	}
	for _, l := range links {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// ResolveHref resolves href against base, returning an absolute URL string.
// If href is invalid, it is returned unchanged.
func ResolveHref(base *url.URL, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// pageFragments splits a page into per-entity fragments: composed table rows
// when sf lists tables, one fragment per row when it only sets a row
// selector, else the whole page.
func pageFragments(html string, sf *SchemeFile, s *Scheme) ([]*Fragment, error) {
	switch {
	case sf != nil && len(sf.Tables) > 0:
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		acc := NewAccumulator()
		if err := ComposeTables(doc.Selection, sf, s, acc); err != nil {
			return nil, err
		}
		out := make([]*Fragment, 0, acc.Len())
		for _, k := range acc.Keys() {
			out = append(out, acc.Fragment(k))
		}
		return out, nil

	case sf != nil && sf.RowSelector != "":
		cs, err := compileSelector(sf.RowSelector)
		if err != nil {
			return nil, fmt.Errorf("row selector: %w", err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(Unwrap(html)))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		var out []*Fragment
		cs.match(doc.Selection).Each(func(_ int, row *goquery.Selection) {
			out = append(out, FragmentFromSelection(row))
		})
		return out, nil

	default:
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		return []*Fragment{parsedFragment(html, doc.Selection)}, nil
	}
}

// ExtractPage parses one page into records according to sf. See
// pageFragments for how rows are found. Records with no values are dropped.
func ExtractPage(html string, sf *SchemeFile, s *Scheme) ([]Record, error) {
	frags, err := pageFragments(html, sf, s)
	if err != nil {
		return nil, err
	}
	var idx ElementIndex
	if sf != nil {
		idx = sf.ElementIndex
	}
	var out []Record
	for _, f := range frags {
		if rec := ParseRecord(s, f, idx); rec.Len() > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}
