// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-engine/pkg/types"
)

// citationPattern matches bracketed citation markers: [3], [1, 4] or [2-5].
var citationPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// maxCitationRange bounds the expansion of a range marker like [2-5].
const maxCitationRange = 20

// ieeeMaxAuthors is the author count above which IEEE style shortens to
// "et al.".
const ieeeMaxAuthors = 3

// citedNumbers returns the distinct context numbers cited in texts, in
// ascending order.
func citedNumbers(texts ...string) []int {
	seen := make(map[int]bool)
	for _, text := range texts {
		for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
			for _, n := range parseMarker(m[1]) {
				seen[n] = true
			}
		}
	}
	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// parseMarker reads the inside of one bracket. Anything that is not a list
// of positive numbers and ranges yields nothing.
func parseMarker(inner string) []int {
	var out []int
	for _, part := range strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(strings.NewReplacer("–", "-", "—", "-").Replace(part), "-")
		if !isRange {
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 {
				return nil
			}
			out = append(out, n)
			continue
		}
		a, errA := strconv.Atoi(strings.TrimSpace(lo))
		b, errB := strconv.Atoi(strings.TrimSpace(hi))
		if errA != nil || errB != nil || a < 1 || b < a || b-a > maxCitationRange {
			return nil
		}
		for n := a; n <= b; n++ {
			out = append(out, n)
		}
	}
	return out
}

// References returns the retrieved papers cited by [n] markers in texts, in
// marker order. Markers with no matching paper are dropped.
func References(papers []types.RetrievedPaper, texts ...string) []types.Reference {
	var refs []types.Reference
	for _, n := range citedNumbers(texts...) {
		if n > len(papers) {
			continue
		}
		p := papers[n-1]
		refs = append(refs, types.Reference{Number: n, Citation: IEEE(n, p), Paper: p})
	}
	return refs
}

// IEEE formats p as an IEEE reference line:
// [n] A, B, C et al., "Title," Venue, Year. DOI: x
func IEEE(n int, p types.RetrievedPaper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] ", n)
	if authors := ieeeAuthors(p.Authors); authors != "" {
		b.WriteString(authors + ", ")
	}
	fmt.Fprintf(&b, "\"%s,\"", strings.TrimRight(strings.TrimSpace(p.Title), ".,"))
	if p.Venue != "" {
		b.WriteString(" " + p.Venue + ",")
	}
	if p.Year > 0 {
		fmt.Fprintf(&b, " %d", p.Year)
	} else {
		b.WriteString(" n.d")
	}
	b.WriteString(".")
	if doi := p.DOI(); doi != "" {
		b.WriteString(" DOI: " + doi)
	}
	return b.String()
}

func ieeeAuthors(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	if len(authors) > ieeeMaxAuthors {
		return strings.Join(authors[:ieeeMaxAuthors], ", ") + " et al."
	}
	return strings.Join(authors, ", ")
}

// BibTeX renders refs as BibTeX entries keyed by first-author surname and
// year.
func BibTeX(refs []types.Reference) string {
	var b strings.Builder
	used := make(map[string]int)
	for _, r := range refs {
		p := r.Paper
		key := bibKey(p)
		used[key]++
		if used[key] > 1 {
			key += string(rune('a' + used[key] - 2))
		}
		kind := "article"
		if p.Venue == "" {
			kind = "misc"
		}
		fmt.Fprintf(&b, "@%s{%s,\n", kind, key)
		fmt.Fprintf(&b, "  title = {%s},\n", p.Title)
		if len(p.Authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(p.Authors, " and "))
		}
		if p.Year > 0 {
			fmt.Fprintf(&b, "  year = {%d},\n", p.Year)
		}
		if p.Venue != "" {
			fmt.Fprintf(&b, "  journal = {%s},\n", p.Venue)
		}
		if doi := p.DOI(); doi != "" {
			fmt.Fprintf(&b, "  doi = {%s},\n", doi)
		}
		if p.URL != "" {
			fmt.Fprintf(&b, "  url = {%s},\n", p.URL)
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}

// bibKey builds a citation key such as "Lovelace2021". Papers without authors
// use "ref" and without a year "nd".
func bibKey(p types.RetrievedPaper) string {
	name := "ref"
	if len(p.Authors) > 0 {
		fields := strings.Fields(p.Authors[0])
		if len(fields) > 0 {
			name = strings.Map(func(r rune) rune {
				if unicode.IsLetter(r) || unicode.IsDigit(r) {
					return r
				}
				return -1
			}, fields[len(fields)-1])
		}
	}
	if name == "" {
		name = "ref"
	}
	year := "nd"
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}
	return name + year
}
