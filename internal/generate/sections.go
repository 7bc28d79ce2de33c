// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

// Section names in generation order.
const (
	SectionIntroduction     = "introduction"
	SectionLiteratureReview = "literature_review"
	SectionMethodology      = "methodology"
	SectionResults          = "results"
	SectionDiscussion       = "discussion"
	SectionConclusion       = "conclusion"
)

// tokensPerWord converts a target word count into a provider token budget.
const tokensPerWord = 1.8

// TitleTemperature is the sampling temperature for title generation.
const TitleTemperature = 0.8

// SectionSpec holds the generation parameters of one paper section.
type SectionSpec struct {
	Name              string
	Heading           string
	Words             int
	DraftTemperature  float64
	FormalTemperature float64

	// UseRetrieval feeds the literature context into the prompt.
	UseRetrieval bool

	// UseUserData feeds caller-supplied experiment details into the prompt.
	UseUserData bool

	// Guidance lists what the section must cover.
	Guidance string

	// KeepFirstPerson skips the third-person rewrite when sanitizing.
	KeepFirstPerson bool
}

// MaxTokens is the provider token budget for the section.
func (s SectionSpec) MaxTokens() int {
	return int(float64(s.Words) * tokensPerWord)
}

var sections = []SectionSpec{
	{
		Name: SectionIntroduction, Heading: "Introduction",
		Words: 350, DraftTemperature: 0.7, FormalTemperature: 0.3,
		UseRetrieval: true,
		Guidance: `1. Opening context: establish the research area and why it matters.
2. Problem statement: specific challenges and limitations of existing approaches.
3. Research objectives: begin with "This research aims to".
4. Paper organization: one sentence on the remaining sections.`,
	},
	{
		Name: SectionLiteratureReview, Heading: "Literature Review",
		Words: 400, DraftTemperature: 0.6, FormalTemperature: 0.3,
		UseRetrieval: true,
		Guidance: `1. Overview of research on the topic.
2. Key research areas: discuss each provided paper and cite it as [n].
3. Comparative analysis of the approaches.
4. Research gaps that remain.`,
	},
	{
		Name: SectionMethodology, Heading: "Methodology",
		Words: 350, DraftTemperature: 0.5, FormalTemperature: 0.2,
		UseUserData: true, KeepFirstPerson: true,
		Guidance: `1. Research design: the opening sentence names the topic and the approach.
2. Data collection: dataset name, source, size, preprocessing.
3. Methods and techniques: algorithms, tools, parameters, configurations.
4. Evaluation metrics and validation approach.`,
	},
	{
		Name: SectionResults, Heading: "Results",
		Words: 300, DraftTemperature: 0.5, FormalTemperature: 0.2,
		UseUserData: true, KeepFirstPerson: true,
		Guidance: `1. Overview of the experiments.
2. Primary quantitative findings with specific metrics, referencing Table 1 and Figure 1.
3. Detailed analysis across conditions, including statistical significance.
4. Comparison with state-of-the-art baselines.`,
	},
	{
		Name: SectionDiscussion, Heading: "Discussion",
		Words: 350, DraftTemperature: 0.7, FormalTemperature: 0.3,
		UseRetrieval: true,
		Guidance: `1. Interpretation of the results against the objectives.
2. Comparison with prior work, citing it as [n].
3. Practical and theoretical implications.
4. Limitations and threats to generalizability.`,
	},
	{
		Name: SectionConclusion, Heading: "Conclusion",
		Words: 250, DraftTemperature: 0.7, FormalTemperature: 0.3,
		Guidance: `1. Summary of the work and its main findings.
2. Contributions to the field.
3. Future work and open questions.
4. A closing statement on broader impact.`,
	},
}

// AbstractSpec holds the abstract's generation parameters.
var AbstractSpec = SectionSpec{
	Name: "abstract", Heading: "Abstract",
	Words: 180, DraftTemperature: 0.7, FormalTemperature: 0.3,
	UseRetrieval: true,
	Guidance: `1. Background: the research domain and its current challenges.
2. Research gap: what remains unsolved.
3. Objectives: what this research achieves.
4. Methodology: approach, data, and key techniques.
5. Results: main quantitative findings.
6. Conclusion and impact.`,
}

// Sections returns the section specs in generation order. The slice is a
// copy; callers may modify it.
func Sections() []SectionSpec {
	out := make([]SectionSpec, len(sections))
	copy(out, sections)
	return out
}

// LookupSection returns the spec for name.
func LookupSection(name string) (SectionSpec, bool) {
	for _, s := range sections {
		if s.Name == name {
			return s, true
		}
	}
	return SectionSpec{}, false
}
