// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import "strings"

// Step is one rung of the query ladder.
type Step struct {
	Name  string
	Query string
}

// Ladder step names, most precise first.
const (
	StepExact      = "exact"
	StepSimplified = "simplified"
	StepMinimal    = "minimal"
	StepBroad      = "broad"
)

// stopwords are dropped by the simplified and minimal steps.
var stopwords = map[string]bool{
	"investigating": true, "the": true, "efficacy": true, "of": true,
	"in": true, "preventing": true, "a": true, "an": true, "and": true,
	"for": true, "to": true, "with": true, "on": true, "at": true, "by": true,
}

// ladder lists the step builders in the order they run.
var ladder = []struct {
	name  string
	build func(tokens []string) string
}{
	{StepExact, func(tokens []string) string { return strings.Join(tokens, " ") }},
	{StepSimplified, simplified},
	{StepMinimal, minimal},
	{StepBroad, broad},
}

// Steps returns the ladder for topic. Steps whose query is empty or repeats
// an earlier query (ignoring case) are omitted.
func Steps(topic string) []Step {
	tokens := strings.Fields(topic)
	seen := make(map[string]bool, len(ladder))
	var steps []Step
	for _, rung := range ladder {
		q := rung.build(tokens)
		norm := strings.ToLower(q)
		if q == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		steps = append(steps, Step{Name: rung.name, Query: q})
	}
	return steps
}

// simplified lowercases the topic and removes stopwords.
func simplified(tokens []string) string {
	return strings.Join(keyTerms(tokens, 0), " ")
}

// minimal keeps the first three significant terms: non-stopwords longer than
// three characters.
func minimal(tokens []string) string {
	terms := keyTerms(tokens, 3)
	if len(terms) > 3 {
		terms = terms[:3]
	}
	return strings.Join(terms, " ")
}

// broad keeps the last two tokens of the topic.
func broad(tokens []string) string {
	if len(tokens) > 2 {
		tokens = tokens[len(tokens)-2:]
	}
	return strings.ToLower(strings.Join(tokens, " "))
}

func keyTerms(tokens []string, minLen int) []string {
	var out []string
	for _, t := range tokens {
		w := strings.ToLower(t)
		if stopwords[w] || len([]rune(w)) <= minLen {
			continue
		}
		out = append(out, w)
	}
	return out
}
