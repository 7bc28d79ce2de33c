// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-engine/internal/generate"
	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a research paper draft for a topic",
	Long: `Generate runs the full pipeline: title, literature retrieval, abstract,
six sections and references. Progress is logged to stderr and the paper is
written as YAML, JSON or Markdown. With --ndjson the raw progress stream is
written instead, one JSON event per line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	noRAG, _ := cmd.Flags().GetBool("no-rag")
	limit, _ := cmd.Flags().GetInt("limit")
	title, _ := cmd.Flags().GetString("title")
	userDataPath, _ := cmd.Flags().GetString("user-data")
	ndjson, _ := cmd.Flags().GetBool("ndjson")
	format, _ := cmd.Flags().GetString("format")
	bibPath, _ := cmd.Flags().GetString("bib")
	outPath, _ := cmd.Flags().GetString("out")

	req := pipeline.Request{
		Topic:         strings.Join(args, " "),
		UseRAG:        !noRAG,
		Limit:         limit,
		SelectedTitle: title,
	}
	if userDataPath != "" {
		ud, err := readUserData(userDataPath)
		if err != nil {
			return err
		}
		req.UserData = ud
	}

	c, orch, err := buildAll(app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	// Returning early cancels the run.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	events, err := orch.Run(ctx, req)
	if err != nil {
		return err
	}

	var paper *types.GeneratedPaper
	var runErr error
	enc := json.NewEncoder(out)
	for ev := range events {
		if ndjson {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("writing event: %w", err)
			}
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), describeEvent(ev))
		}
		switch ev.Status {
		case types.StatusComplete:
			paper = ev.Paper
		case types.StatusError:
			runErr = &pipeline.RunError{RunID: ev.RunID, Stage: ev.Stage, Message: ev.Message}
		}
	}
	if runErr != nil {
		return runErr
	}
	if paper == nil {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		return errors.New("run ended without a result")
	}

	if bibPath != "" {
		if err := os.WriteFile(bibPath, []byte(pipeline.BibTeX(paper.References)), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", bibPath, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d BibTeX entries to %s\n", len(paper.References), bibPath)
	}
	if ndjson {
		return nil
	}
	return writePaper(out, paper, format)
}

// readUserData parses a YAML or JSON user-data file.
func readUserData(path string) (*types.UserData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading user data: %w", err)
	}
	var ud types.UserData
	if err := yaml.Unmarshal(data, &ud); err != nil {
		return nil, fmt.Errorf("parsing user data %s: %w", path, err)
	}
	return &ud, nil
}

// describeEvent renders a progress event as one human-readable line.
func describeEvent(ev types.ProgressEvent) string {
	switch ev.Status {
	case types.StatusStart:
		return fmt.Sprintf("[start] run %s", ev.RunID)
	case types.StatusTitle:
		return fmt.Sprintf("[title] %s", ev.Title)
	case types.StatusRAGStart:
		if ev.Skipped {
			return "[retrieval] skipped"
		}
		return "[retrieval] searching literature"
	case types.StatusRAGComplete:
		switch {
		case ev.Skipped:
			return "[retrieval] skipped"
		case ev.Unavailable:
			return "[retrieval] warning: literature unavailable, continuing without references"
		default:
			return fmt.Sprintf("[retrieval] %d papers", deref(ev.Count))
		}
	case types.StatusAbstract:
		return "[abstract] done"
	case types.StatusSectionStart:
		return fmt.Sprintf("[section %d/%d] %s", ev.Index, ev.Total, ev.Section)
	case types.StatusReferences:
		return fmt.Sprintf("[references] %d cited", deref(ev.Count))
	case types.StatusComplete:
		return "[complete] " + ev.Message
	case types.StatusError:
		return fmt.Sprintf("[error] %s: %s", ev.Stage, ev.Message)
	default:
		return fmt.Sprintf("[%s] %s", ev.Status, ev.Message)
	}
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// writePaper writes p in the requested format.
func writePaper(w io.Writer, p *types.GeneratedPaper, format string) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding paper: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "markdown", "md":
		_, err := io.WriteString(w, renderMarkdown(p))
		return err
	default:
		return fmt.Errorf("unsupported format %q: use yaml, json or markdown", format)
	}
}

// renderMarkdown lays the paper out as a Markdown document.
func renderMarkdown(p *types.GeneratedPaper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "## Abstract\n\n%s\n\n", p.Abstract)
	for _, s := range p.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", sectionHeading(s.Name), strings.TrimSpace(s.Text))
	}
	if len(p.References) > 0 {
		b.WriteString("## References\n\n")
		for _, r := range p.References {
			b.WriteString(r.Citation)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// sectionHeading returns the display heading of a section, deriving one
// from the key ("related_work" becomes "Related Work") for unknown names.
func sectionHeading(name string) string {
	if spec, ok := generate.LookupSection(name); ok {
		return spec.Heading
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func init() {
	generateCmd.Flags().Bool("no-rag", false, "skip literature retrieval")
	generateCmd.Flags().Int("limit", 0, "papers to retrieve, 1-20 (0 = configured default)")
	generateCmd.Flags().String("title", "", "use this title instead of generating one")
	generateCmd.Flags().String("user-data", "", "YAML or JSON file with methodology, dataset, results and findings")
	generateCmd.Flags().Bool("ndjson", false, "write the progress stream as newline-delimited JSON")
	generateCmd.Flags().String("format", "yaml", "paper output format: yaml, json or markdown")
	generateCmd.Flags().String("bib", "", "also write the references as BibTeX to this file")
	generateCmd.Flags().String("out", "", "write output to this file instead of stdout")

	rootCmd.AddCommand(generateCmd)
}
