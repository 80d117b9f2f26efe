package extracthtml

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract returns occurrence index of field name in f.
//
// The selector's matches are read in document order (text, or Attr when the
// field sets one), trimmed and passed through the field's Match filter. With
// strip set, empty values are dropped before indexing. No match, an unknown
// field and an out-of-range index all report ok=false; none of them is an
// error.
//
// The field name "abbreviation" is special: it always reads the first link's
// target through ParseAbbreviation.
func Extract(s *Scheme, f *Fragment, name string, index int, strip bool) (string, bool) {
	if name == AbbreviationField {
		return ParseAbbreviation(f)
	}
	field, cs, re, ok := s.selector(name)
	if !ok {
		return "", false
	}
	vals := collect(field, cs, re, f, strip)
	if index < 0 || index >= len(vals) {
		return "", false
	}
	return vals[index], true
}

// ExtractAll returns every value of field name in f, in document order. It
// returns nil when nothing matches.
func ExtractAll(s *Scheme, f *Fragment, name string, strip bool) []string {
	if name == AbbreviationField {
		if v, ok := ParseAbbreviation(f); ok {
			return []string{v}
		}
		return nil
	}
	field, cs, re, ok := s.selector(name)
	if !ok {
		return nil
	}
	return collect(field, cs, re, f, strip)
}

// Link returns the href of occurrence index of field name. A matched element
// that is not itself a link yields the href of its first descendant anchor.
func Link(s *Scheme, f *Fragment, name string, index int) (string, bool) {
	_, cs, _, ok := s.selector(name)
	if !ok {
		return "", false
	}
	var hrefs []string
	cs.match(f.Selection()).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			hrefs = append(hrefs, strings.TrimSpace(href))
			return
		}
		if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
			hrefs = append(hrefs, strings.TrimSpace(href))
		}
	})
	if index < 0 || index >= len(hrefs) {
		return "", false
	}
	return hrefs[index], true
}

func collect(field Field, cs compiledSelector, re *regexp.Regexp, f *Fragment, strip bool) []string {
	var vals []string
	cs.match(f.Selection()).Each(func(_ int, sel *goquery.Selection) {
		v := applyRegexFilter(readValue(field, sel), re)
		if strip && v == "" {
			return
		}
		vals = append(vals, v)
	})
	return vals
}

func readValue(field Field, sel *goquery.Selection) string {
	if field.Attr == "" {
		return strings.TrimSpace(sel.Text())
	}
	v, _ := sel.Attr(field.Attr)
	return strings.TrimSpace(v)
}

// applyRegexFilter applies an optional regex post-processing step to value.
//
// Behavior:
//   - If re is nil, it returns value unchanged.
//   - If re does not match, it returns "".
//   - If re matches and contains capture groups, group 1 is returned.
//   - If re matches with no capture groups, the full match is returned.
func applyRegexFilter(value string, re *regexp.Regexp) string {
	if value == "" || re == nil {
		return value
	}

	sm := re.FindStringSubmatch(value)
	if len(sm) == 0 {
		return ""
	}
	if len(sm) > 1 {
		return sm[1]
	}
	return sm[0]
}

// ExtractOneHTML parses the given HTML page and reads every field of s
// relative to the document root.
func ExtractOneHTML(html string, s *Scheme, idx ElementIndex) (Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Record{}, fmt.Errorf("parse html: %w", err)
	}
	return ParseRecord(s, parsedFragment(html, doc.Selection), idx), nil
}

// ExtractRecordsHTML parses the given HTML page and builds one record per
// element matched by rowSelector, in document order. Comment-hidden markup is
// unwrapped first. Records with no values are dropped.
func ExtractRecordsHTML(html, rowSelector string, s *Scheme, idx ElementIndex) ([]Record, error) {
	cs, err := compileSelector(rowSelector)
	if err != nil {
		return nil, fmt.Errorf("row selector: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(Unwrap(html)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return extractRecords(doc.Selection, cs, s, idx), nil
}

func extractRecords(root *goquery.Selection, rows compiledSelector, s *Scheme, idx ElementIndex) []Record {
	var records []Record
	rows.match(root).Each(func(_ int, row *goquery.Selection) {
		rec := ParseRecord(s, FragmentFromSelection(row), idx)
		if rec.Len() > 0 {
			records = append(records, rec)
		}
	})
	return records
}
