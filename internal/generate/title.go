// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// TitleWordLimit is the longest topic used verbatim as a title.
	TitleWordLimit = 12

	// FallbackTitleChars caps a title cut from the topic.
	FallbackTitleChars = 80

	// MaxTitleOptions caps TitleOptions.
	MaxTitleOptions = 10

	titleMaxTokens       = 60
	titleOptionMaxTokens = 60
)

var (
	titlePrefix  = regexp.MustCompile(`(?i)^(?:paper\s+)?title\s*:\s*`)
	numberedLine = regexp.MustCompile(`^\s*\d+\s*[.):\-]\s*(.+)$`)
)

// TitleFromTopic returns topic as the title when it is short enough to stand
// as one.
func TitleFromTopic(topic string) (string, bool) {
	topic = strings.Join(strings.Fields(topic), " ")
	if topic == "" || len(strings.Fields(topic)) > TitleWordLimit {
		return "", false
	}
	return topic, true
}

// FallbackTitle cuts topic to FallbackTitleChars, backing up to a word
// boundary when one exists.
func FallbackTitle(topic string) string {
	topic = strings.Join(strings.Fields(topic), " ")
	if utf8.RuneCountInString(topic) <= FallbackTitleChars {
		return topic
	}
	cut := string([]rune(topic)[:FallbackTitleChars])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}

// GenerateTitle asks the provider for a title. Output that cleans up to
// nothing falls back to FallbackTitle.
func (e *Engine) GenerateTitle(ctx context.Context, topic string) (string, error) {
	prompt, err := render(titleTmpl, struct{ Topic string }{SanitizeUserInput(topic)})
	if err != nil {
		return "", fmt.Errorf("rendering title prompt: %w", err)
	}
	raw, err := e.call(ctx, PassTitle, PassTitle, Request{
		Prompt:      prompt,
		Temperature: TitleTemperature,
		MaxTokens:   titleMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if title := cleanTitle(raw); title != "" {
		return title, nil
	}
	e.logger.Warn("generated title unusable, using topic", "raw", raw)
	return FallbackTitle(topic), nil
}

// TitleOptions asks the provider for n alternative titles. A short reply is
// padded with variants built from the topic; n is clamped to
// [1, MaxTitleOptions].
func (e *Engine) TitleOptions(ctx context.Context, topic string, n int) ([]string, error) {
	n = max(1, min(n, MaxTitleOptions))
	numbers := make([]int, n)
	for i := range numbers {
		numbers[i] = i + 1
	}
	prompt, err := render(titleOptionsTmpl, struct {
		Topic   string
		Count   int
		Numbers []int
	}{SanitizeUserInput(topic), n, numbers})
	if err != nil {
		return nil, fmt.Errorf("rendering title options prompt: %w", err)
	}
	raw, err := e.call(ctx, PassTitle, PassTitle, Request{
		Prompt:      prompt,
		Temperature: TitleTemperature,
		MaxTokens:   n * titleOptionMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	titles := parseTitleOptions(raw, n)
	if len(titles) < n {
		e.logger.Debug("padding title options", "parsed", len(titles), "want", n)
		titles = appendUnique(titles, fallbackTitleOptions(topic), n)
	}
	return titles, nil
}

// parseTitleOptions reads up to n titles from a numbered list.
func parseTitleOptions(raw string, n int) []string {
	var titles []string
	for _, line := range strings.Split(raw, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if t := cleanTitle(m[1]); t != "" {
			titles = appendUnique(titles, []string{t}, n)
		}
		if len(titles) == n {
			break
		}
	}
	return titles
}

// cleanTitle returns the first non-empty line of raw without quotes, markup,
// a "Title:" label or a trailing period.
func cleanTitle(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "\"'“”*#`")
		line = titlePrefix.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.Trim(strings.TrimSpace(line), "\"'“”*`")
		line = strings.TrimSpace(strings.TrimRight(line, "."))
		if line != "" {
			return line
		}
	}
	return ""
}

// fallbackTitleOptions builds title variants from the topic alone.
func fallbackTitleOptions(topic string) []string {
	words := strings.Fields(topic)
	head := func(n int) string { return strings.Join(words[:min(n, len(words))], " ") }
	return []string{
		FallbackTitle(topic),
		"A Study of " + head(8),
		"Research on " + head(8),
		"Toward " + head(8),
		"An Analysis of " + head(8),
		"Exploring " + head(8),
		"Perspectives on " + head(8),
		"Advances in " + head(8),
		"Rethinking " + head(8),
		"Foundations of " + head(8),
	}
}

// appendUnique appends candidates not already in titles, case-insensitively,
// until titles holds limit entries.
func appendUnique(titles, candidates []string, limit int) []string {
	seen := make(map[string]bool, len(titles))
	for _, t := range titles {
		seen[strings.ToLower(t)] = true
	}
	for _, c := range candidates {
		if len(titles) >= limit {
			break
		}
		k := strings.ToLower(c)
		if c == "" || seen[k] {
			continue
		}
		seen[k] = true
		titles = append(titles, c)
	}
	return titles
}
