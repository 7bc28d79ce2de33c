// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format normalizes generated prose: it repairs mis-decoded
// characters, strips markdown residue, and re-segments text into paragraphs
// and lists. Format is pure, total, and idempotent.
package format

import (
	"regexp"
	"strings"
)

// encodingRepairs maps UTF-8-read-as-Latin-1 artifacts to the intended glyph.
// Longer sequences come first because strings.Replacer compares in argument
// order at each position.
var encodingRepairs = strings.NewReplacer(
	"â€\u009d", "”",
	"â€”", "—",
	"â€“", "–",
	"â€™", "’",
	"â€˜", "‘",
	"â€œ", "“",
	"â€¦", "…",
	"â€¢", "•",
	"â‰¤", "≤",
	"â‰¥", "≥",
	"â†’", "→",
	"â€", "”",
	"Â ", " ",
	"Â°", "°",
	"Â±", "±",
	"Â·", "·",
	"Ã—", "×",
	"Ã©", "é",
	"Ã¨", "è",
	"Ã¡", "á",
	"Ã³", "ó",
	"Ã­", "í",
	"Ã¶", "ö",
	"Ã¼", "ü",
	"Ã¤", "ä",
	"Ã±", "ñ",
	"Î±", "α",
	"Î²", "β",
	"Î¼", "μ",
)

// LabelHeaders is the vocabulary of inline labels that start a new paragraph.
var LabelHeaders = []string{
	"Objectives",
	"Limitations",
	"Research Gaps",
	"Challenges",
	"Opportunities",
	"Contributions",
	"Future Work",
	"Key Findings",
}

var (
	codeFenceLine = regexp.MustCompile("(?m)^[ \t]*```[^\n]*(\n|$)")
	headerMarker  = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}[ \t]+)+`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	dashRun       = regexp.MustCompile(`[-–—=]{4,}`)
	blankRun      = regexp.MustCompile(`\n{3,}`)
)

// labelPattern matches any label header followed by a colon.
var labelPattern = "(?:" + strings.Join(LabelHeaders, "|") + "):"

// inlineCues split a cue that follows sentence-ending punctuation on the same
// line. Hyphen bullets are only recognized at line start because inline
// hyphens are usually dashes.
var inlineCues = []*regexp.Regexp{
	regexp.MustCompile(`([.!?:])[ \t]+([A-Z]\.[ \t]+[A-Z])`),
	regexp.MustCompile(`([.!?:])[ \t]+(\d{1,2}[.)][ \t]+[A-Z])`),
	regexp.MustCompile(`([.!?:])[ \t]+(•[ \t]*\S)`),
	regexp.MustCompile(`([.!?])[ \t]+(` + labelPattern + `)`),
}

// lineCue matches a line that opens with a structural cue.
var lineCue = regexp.MustCompile(`^[ \t]*(?:[A-Z]\.[ \t]+[A-Z]|\d{1,2}[.)][ \t]+\S|[-*•][ \t]+\S|` + labelPattern + `)`)

// Format applies encoding repair, markdown stripping, paragraph segmentation,
// and whitespace cleanup, in that order.
func Format(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = RepairEncoding(text)
	text = stripMarkup(text)
	text = insertBreaks(text)
	return cleanup(text)
}

// RepairEncoding replaces known mis-decoded byte sequences.
func RepairEncoding(s string) string {
	return encodingRepairs.Replace(s)
}

func stripMarkup(s string) string {
	s = codeFenceLine.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = dashRun.ReplaceAllString(s, "")
	s = headerMarker.ReplaceAllString(s, "")
	return trailingSpace.ReplaceAllString(s, "")
}

// insertBreaks moves inline cues to their own line, then guarantees a blank
// line before every cue line. A cue that already has one is left alone.
func insertBreaks(s string) string {
	// Matches can overlap ("A. B. C"), so split until nothing changes.
	for changed := true; changed; {
		changed = false
		for _, re := range inlineCues {
			if next := re.ReplaceAllString(s, "$1\n\n$2"); next != s {
				s, changed = next, true
			}
		}
	}

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i > 0 && lineCue.MatchString(line) && strings.TrimSpace(lines[i-1]) != "" {
			out = append(out, "")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func cleanup(s string) string {
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
