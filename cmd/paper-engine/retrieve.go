// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/internal/retrieval"
	"github.com/pdiddy/paper-engine/internal/search"
	"github.com/pdiddy/paper-engine/pkg/types"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <topic>",
	Short: "Retrieve related literature for a topic",
	Long: `Retrieve runs only the literature stage. The topic is searched with a
ladder of progressively broader queries until enough papers are found. Results
are cached, so repeating a topic within the cache TTL makes no network calls.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")
	if limit == 0 {
		limit = app.cfg.Retrieval.Limit
	}
	if limit < 1 || limit > pipeline.MaxLimit {
		return fmt.Errorf("--limit must be between 1 and %d", pipeline.MaxLimit)
	}

	c, err := buildRetriever(app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	papers, err := c.retriever.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		if !errors.Is(err, retrieval.ErrUnavailable) {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no literature found; every search backend failed or returned nothing")
	}
	return writePapers(cmd.OutOrStdout(), papers, format)
}

func writePapers(w io.Writer, papers []types.RetrievedPaper, format string) error {
	switch format {
	case "table", "":
		search.FormatTable(papers, w)
		return nil
	case "json":
		return search.FormatJSON(papers, w)
	case "csl":
		return search.FormatCSL(papers, w)
	default:
		return fmt.Errorf("unsupported format %q: use table, json or csl", format)
	}
}

func init() {
	retrieveCmd.Flags().Int("limit", 0, "maximum papers, 1-20 (0 = configured default)")
	retrieveCmd.Flags().String("format", "table", "output format: table, json or csl")

	rootCmd.AddCommand(retrieveCmd)
}
