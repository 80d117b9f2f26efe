package extracthtml

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reAbbrYearPage = regexp.MustCompile(`/[0-9]+\..*htm.*`)
	reAbbrSchools  = regexp.MustCompile(`/.*/schools/`)
)

// ParseAbbreviation returns the team or school code embedded in the target
// of the fragment's first link. Fragments without a link (non-DI schools, for
// example) report ok=false; the caller picks the fallback.
func ParseAbbreviation(f *Fragment) (string, bool) {
	var href string
	var found bool
	f.Selection().Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, found = a.Attr("href")
		return false
	})
	if !found {
		return "", false
	}
	abbr := AbbreviationFromHref(href)
	return abbr, abbr != ""
}

// AbbreviationFromHref maps a team or school link to its code:
//
//	/teams/nwe/2017.htm            -> NWE
//	/cbb/schools/purdue/2018.html  -> PURDUE
//
// Absolute URLs are reduced to their path first.
func AbbreviationFromHref(href string) string {
	href = strings.TrimSpace(href)
	if u, err := url.Parse(href); err == nil && u.Host != "" {
		href = u.Path
	}
	abbr := reAbbrYearPage.ReplaceAllString(href, "")
	abbr = reAbbrSchools.ReplaceAllString(abbr, "")
	abbr = strings.ReplaceAll(abbr, "/teams/", "")
	return strings.ToUpper(strings.Trim(abbr, "/"))
}
