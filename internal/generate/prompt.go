// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"strings"
	"text/template"
)

// styleRules is appended to every drafting prompt.
const styleRules = `RULES:
1. Write plain prose paragraphs only: no markdown, headers, bold text, or bullet lists.
2. Do not repeat the section heading or the paper title as a heading.
3. Use the third person ("This research"), never "we", "our", or "I".
4. Be specific; never leave a placeholder or a blank where the topic belongs.
5. Vary sentence length. Avoid the words delve, tapestry, realm, pivotal, multifaceted, paramount, intricate.
6. Avoid stock transitions such as "Furthermore", "Moreover", "In conclusion".
7. End with a complete sentence.`

var draftTmpl = template.Must(template.New("draft").Parse(`Write the {{.Heading}} section of a research paper titled "{{.Title}}".

{{.Summary}}
{{- if .Literature}}

Research literature (cite these as [n] using the numbers shown; do not use author-year citations):
{{.Literature}}
{{- end}}
{{- if .UserData}}

Experimental details supplied by the authors (use these exact details, numbers and tools):
{{.UserData}}
{{- end}}

Write about {{.Words}} words covering:
{{.Guidance}}

` + styleRules + `

Write the {{.Heading}} now:`))

var formalizeTmpl = template.Must(template.New("formalize").Parse(`Rewrite the following draft of the {{.Heading}} section of the research paper "{{.Title}}" in a formal academic register.

Keep every fact, number, dataset name and citation marker such as [1] exactly as written. Do not add new claims or citations. Keep roughly {{.Words}} words. Output only the rewritten text, with no introduction or commentary.

` + styleRules + `

Draft:
{{.Draft}}`))

var titleTmpl = template.Must(template.New("title").Parse(`Generate ONE concise academic research paper title for this research description:

{{.Topic}}

Requirements:
- At most 12 words
- Professional academic tone in title case
- No quotation marks or extra formatting

Output only the title.`))

var titleOptionsTmpl = template.Must(template.New("titleOptions").Parse(`Generate {{.Count}} different concise academic research paper titles for this research description:

{{.Topic}}

Requirements for each title:
- At most 18 words and a complete, standalone phrase
- Professional academic tone in title case
- No quotation marks or extra formatting
- Each title emphasizes a different aspect of the research

Output format:
{{range .Numbers}}{{.}}. [Title]
{{end}}
Output only the numbered list.`))

var surveyTmpl = template.Must(template.New("survey").Parse(`Research papers retrieved for "{{.Topic}}":

{{.Literature}}

Write a literature survey on "{{.Topic}}" based on the research papers above. Use these sections, each name on its own line:

Introduction
Two or three paragraphs introducing "{{.Topic}}", why it matters, and the scope of this survey.

Summary of Key Papers and Their Contributions
For each major paper, its objectives, method, key findings and contribution, in continuous prose.

Common Themes and Approaches
The methods and techniques the papers share, grouping related work together.

Research Gaps and Opportunities
What the literature has not addressed, its limitations, and directions for future work.

Conclusion
The state of "{{.Topic}}" research and the key takeaways.

RULES:
1. Plain text prose paragraphs only: no markdown, bold text, bullet points or numbered items.
2. Separate paragraphs with a blank line.
3. Refer to specific papers by their authors and year.
4. Always use the complete topic name "{{.Topic}}" when referring to the field.
5. Target about {{.Words}} words in a formal academic register.

Begin the literature survey:`))

// promptData feeds the section and abstract templates.
type promptData struct {
	Title      string
	Heading    string
	Words      int
	Guidance   string
	Summary    string
	Literature string
	UserData   string
	Draft      string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const (
	abstractPreviewWords = 60
	sectionPreviewWords  = 50
)

// paperSummary gives later sections a view of what came before: the title,
// the opening of the abstract and of every earlier section.
func paperSummary(title string, sc SectionContext) string {
	var b strings.Builder
	b.WriteString("Paper title: " + title + "\n")
	b.WriteString("The research topic is \"" + title + "\". Always name it explicitly when referring to the field.")
	if sc.Abstract != "" {
		b.WriteString("\n\nAbstract (opening): " + firstWords(sc.Abstract, abstractPreviewWords))
	}
	for _, s := range sc.Previous {
		if s.Text == "" {
			continue
		}
		b.WriteString("\n\n" + s.Heading + " (opening): " + firstWords(s.Text, sectionPreviewWords))
	}
	return b.String()
}

// firstWords returns the first n words of s, with an ellipsis when cut.
func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
