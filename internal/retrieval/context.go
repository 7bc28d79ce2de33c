// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paper-engine/pkg/types"
)

const (
	// DefaultMaxContextChars caps the literature context handed to prompts.
	DefaultMaxContextChars = 4000

	maxAbstractChars = 500
	maxListedAuthors = 3
)

// BuildContext renders papers as a numbered literature digest. Entry i is
// labelled [i] so generated text can cite it. Entries are added whole until
// the next one would push the digest past maxChars; a first entry that alone
// exceeds the cap is cut.
func BuildContext(papers []types.RetrievedPaper, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	var b strings.Builder
	for i, p := range papers {
		block := contextEntry(i+1, p)
		if i > 0 {
			block = "\n" + block
		}
		if b.Len()+len(block) > maxChars {
			if i == 0 {
				b.WriteString(cutRunes(block, maxChars))
			}
			break
		}
		b.WriteString(block)
	}
	return b.String()
}

func contextEntry(n int, p types.RetrievedPaper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s\n", n, p.Title)
	fmt.Fprintf(&b, "Authors: %s\n", AuthorList(p.Authors))
	if p.Year > 0 {
		fmt.Fprintf(&b, "Year: %d\n", p.Year)
	} else {
		b.WriteString("Year: n.d.\n")
	}
	venue := p.Venue
	if venue == "" {
		venue = "Unknown"
	}
	fmt.Fprintf(&b, "Venue: %s\n", venue)
	fmt.Fprintf(&b, "Citations: %d\n", p.CitationCount)
	if abs := strings.TrimSpace(p.Abstract); abs != "" {
		if len([]rune(abs)) > maxAbstractChars {
			abs = string([]rune(abs)[:maxAbstractChars]) + "..."
		}
		fmt.Fprintf(&b, "Abstract: %s\n", abs)
	}
	return b.String()
}

// AuthorList joins up to three author names, appending "et al." when more
// were listed.
func AuthorList(authors []string) string {
	if len(authors) == 0 {
		return "Unknown"
	}
	if len(authors) > maxListedAuthors {
		return strings.Join(authors[:maxListedAuthors], ", ") + " et al."
	}
	return strings.Join(authors, ", ")
}

// cutRunes returns at most max bytes of s without splitting a rune.
func cutRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := 0
	for i := range s {
		if i > max {
			break
		}
		cut = i
	}
	return s[:cut]
}
