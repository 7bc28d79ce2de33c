// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/internal/retrieval"
	"github.com/pdiddy/paper-engine/pkg/types"
)

var surveyCmd = &cobra.Command{
	Use:   "survey <topic>",
	Short: "Write a literature survey for a topic",
	Long: `Survey retrieves related literature and asks the language model for a
survey covering the key papers, common themes, and research gaps. Pass
--papers with the JSON output of retrieve to survey a fixed set of papers
instead of searching.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSurvey,
}

func runSurvey(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	papersPath, _ := cmd.Flags().GetString("papers")
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	req := pipeline.SurveyRequest{Topic: strings.Join(args, " "), Limit: limit}
	if papersPath != "" {
		papers, err := readPapers(papersPath)
		if err != nil {
			return err
		}
		req.Papers = papers
	}

	c, orch, err := buildAll(app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "[survey] writing survey for", req.Topic)
	survey, err := orch.Survey(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "[survey] %d words from %d papers\n", survey.WordCount, len(survey.Papers))

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}
	return writeSurvey(out, survey, format)
}

// readPapers parses a YAML or JSON list of papers.
func readPapers(path string) ([]types.RetrievedPaper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading papers: %w", err)
	}
	var papers []types.RetrievedPaper
	if err := yaml.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing papers %s: %w", path, err)
	}
	return papers, nil
}

// writeSurvey writes s in the requested format.
func writeSurvey(w io.Writer, s *types.Survey, format string) error {
	switch format {
	case "markdown", "md", "":
		_, err := io.WriteString(w, renderSurvey(s))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encoding survey: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	default:
		return fmt.Errorf("unsupported format %q: use markdown, yaml or json", format)
	}
}

// renderSurvey lays the survey out as Markdown followed by its sources.
func renderSurvey(s *types.Survey) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", s.Title, strings.TrimSpace(s.Text))
	if len(s.Papers) > 0 {
		b.WriteString("\n## Sources\n\n")
		for i, p := range s.Papers {
			year := "n.d."
			if p.Year > 0 {
				year = fmt.Sprint(p.Year)
			}
			fmt.Fprintf(&b, "%d. %s (%s). %s\n", i+1, retrieval.AuthorList(p.Authors), year, p.Title)
		}
	}
	return b.String()
}

func init() {
	surveyCmd.Flags().Int("limit", 0, "papers to retrieve, 1-20 (0 = configured default)")
	surveyCmd.Flags().String("papers", "", "YAML or JSON file of papers to survey instead of searching")
	surveyCmd.Flags().String("format", "markdown", "output format: markdown, yaml or json")
	surveyCmd.Flags().String("out", "", "write output to this file instead of stdout")

	rootCmd.AddCommand(surveyCmd)
}
