// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUserDataChars caps caller-supplied text embedded in prompts.
const MaxUserDataChars = 10000

// injectionPatterns are stripped from caller text before it reaches a prompt.
var injectionPatterns = regexp.MustCompile(`(?i)"""|'''|CRITICAL:|REQUIREMENTS:|FORBIDDEN:|IGNORE PREVIOUS|IGNORE ALL|SYSTEM:|<\|im_start\|>|<\|im_end\|>`)

// SanitizeUserInput removes prompt-control markers from caller text and caps
// its length.
func SanitizeUserInput(s string) string {
	s = injectionPatterns.ReplaceAllString(s, "")
	if r := []rune(s); len(r) > MaxUserDataChars {
		s = string(r[:MaxUserDataChars]) + "..."
	}
	return strings.TrimSpace(s)
}

// fillerLeadIns are removed where they open a sentence; the next word is
// capitalized in their place.
var fillerLeadIns = regexp.MustCompile(`(?im)(^|[.!?]\s+)(?:furthermore,|moreover,|additionally,|in conclusion,|in summary,|it is important to note that|it is worth noting that|it should be noted that)\s*(\pL)`)

// fillerPhrases are removed anywhere else.
var fillerPhrases = regexp.MustCompile(`(?i)\b(?:it is important to note that|it is worth noting that|it should be noted that)\s+`)

// bannedWords maps filler vocabulary to plainer replacements.
var bannedWords = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\bdelves into\b`), "examines"},
	{regexp.MustCompile(`(?i)\bdelve into\b`), "examine"},
	{regexp.MustCompile(`(?i)\bdelving into\b`), "examining"},
	{regexp.MustCompile(`(?i)\bdelves\b`), "examines"},
	{regexp.MustCompile(`(?i)\bdelve\b`), "examine"},
	{regexp.MustCompile(`(?i)\ba rich tapestry of\b`), "a range of"},
	{regexp.MustCompile(`(?i)\btapestry\b`), "range"},
	{regexp.MustCompile(`(?i)\bin the realm of\b`), "in"},
	{regexp.MustCompile(`(?i)\brealm\b`), "field"},
	{regexp.MustCompile(`(?i)\bpivotal\b`), "central"},
	{regexp.MustCompile(`(?i)\bmultifaceted\b`), "complex"},
	{regexp.MustCompile(`(?i)\bparamount\b`), "essential"},
	{regexp.MustCompile(`(?i)\bintricate\b`), "detailed"},
}

// chatPreamble is a conversational lead-in a model prepends to its answer.
var chatPreamble = regexp.MustCompile(`(?i)^\s*(?:here is|here's|sure,|certainly[,!]|i have (?:generated|written)|the following is|below is)[^\n]*?:\s*`)

// preambles also drop a repeated section label.
var preambles = []*regexp.Regexp{
	chatPreamble,
	regexp.MustCompile(`(?i)^\s*(?:abstract|summary|introduction|literature review|methodology|results|discussion|conclusion)\s*(?::|\s-)\s*`),
	regexp.MustCompile(`(?i)^\s*(?:abstract|introduction|literature review|methodology|results|discussion|conclusion)\s*\n+`),
}

// thirdPersonVerbs take a plain "s" in the third person singular.
const thirdPersonVerbs = `propose|present|show|find|use|demonstrate|introduce|develop|evaluate|observe|report|describe|examine|analyze|argue|investigate|compare|conclude|employ|train|collect|achieve|obtain|explore|assess|adopt|consider|design|implement|measure|build`

// firstPerson rewrites first-person phrasing into the third person.
var firstPerson = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`\bWe (` + thirdPersonVerbs + `)\b`), "This research ${1}s"},
	{regexp.MustCompile(`\bwe (` + thirdPersonVerbs + `)\b`), "this research ${1}s"},
	{regexp.MustCompile(`\bWe are\b`), "This research is"},
	{regexp.MustCompile(`\bwe are\b`), "this research is"},
	{regexp.MustCompile(`\bWe have\b`), "This research has"},
	{regexp.MustCompile(`\bwe have\b`), "this research has"},
	{regexp.MustCompile(`\bWe\b`), "This research"},
	{regexp.MustCompile(`\bwe\b`), "this research"},
	{regexp.MustCompile(`\bOur\b`), "The"},
	{regexp.MustCompile(`\bour\b`), "the"},
	{regexp.MustCompile(`\bMy\b`), "The"},
	{regexp.MustCompile(`\bmy\b`), "the"},
}

// firstPersonI matches a singular "I" only where it can be a subject: at a
// sentence start or after a conjunction, followed by a verb. Roman numerals
// such as "Phase I" or "Type I error" never match.
var firstPersonI = regexp.MustCompile(`(?m)(^|[.!?]\s+|\b(?:and|but|then|so|that|when|while|because|as|where|which)\s+)I (am|have|` + thirdPersonVerbs + `|found|built|ran|chose|made|took|was|\pL+ed)\b`)

var baseVerbs = func() map[string]bool {
	m := make(map[string]bool)
	for _, v := range strings.Split(thirdPersonVerbs, "|") {
		m[v] = true
	}
	return m
}()

var (
	multiSpace       = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([,.;:!?])`)
	sentenceEnd      = regexp.MustCompile(`[.!?]["'”’)\]]*(?:\s|$)`)
)

// Sanitize applies the deterministic clean-up rules to model output.
func Sanitize(text string) string {
	return sanitize(text, true)
}

// SanitizeSection applies Sanitize's rules for one section. Sections marked
// KeepFirstPerson skip the third-person rewrite.
func SanitizeSection(spec SectionSpec, text string) string {
	return sanitize(text, !spec.KeepFirstPerson)
}

func sanitize(text string, thirdPerson bool) string {
	text = stripPreambles(text)
	text = removeFiller(text)
	if thirdPerson {
		text = rewriteFirstPerson(text)
	}
	text = tidySpacing(text)
	return CompleteSentence(text)
}

func stripPreambles(text string) string {
	for _, re := range preambles {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

func removeFiller(text string) string {
	text = fillerLeadIns.ReplaceAllStringFunc(text, func(m string) string {
		sub := fillerLeadIns.FindStringSubmatch(m)
		return sub[1] + strings.ToUpper(sub[2])
	})
	text = fillerPhrases.ReplaceAllString(text, "")
	for _, w := range bannedWords {
		text = w.re.ReplaceAllStringFunc(text, func(m string) string {
			return matchCase(m, w.with)
		})
	}
	return text
}

// matchCase capitalizes repl when orig starts with an uppercase letter.
func matchCase(orig, repl string) string {
	r, _ := utf8.DecodeRuneInString(orig)
	if !unicode.IsUpper(r) {
		return repl
	}
	first, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(first)) + repl[size:]
}

func rewriteFirstPerson(text string) string {
	for _, fp := range firstPerson {
		text = fp.re.ReplaceAllString(text, fp.with)
	}
	return firstPersonI.ReplaceAllStringFunc(text, func(m string) string {
		sub := firstPersonI.FindStringSubmatch(m)
		lead, verb := sub[1], sub[2]
		subject := "This study"
		if w := strings.TrimSpace(lead); w != "" && unicode.IsLetter([]rune(w)[0]) {
			subject = "this study"
		}
		switch {
		case verb == "am":
			verb = "is"
		case verb == "have":
			verb = "has"
		case baseVerbs[verb]:
			verb += "s"
		}
		return lead + subject + " " + verb
	})
}

func tidySpacing(text string) string {
	text = multiSpace.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// CompleteSentence drops a trailing fragment after the last sentence
// terminator. Text with no terminator is returned trimmed.
func CompleteSentence(text string) string {
	text = strings.TrimSpace(text)
	locs := sentenceEnd.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	end := locs[len(locs)-1][1]
	return strings.TrimSpace(text[:end])
}
