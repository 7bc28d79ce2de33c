// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-engine/internal/generate"
)

var titlesCmd = &cobra.Command{
	Use:   "titles <topic>",
	Short: "Propose alternative paper titles for a topic",
	Long: `Titles asks the language model for several candidate titles. Pass one of
them to generate --title to skip title generation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		if count < 1 || count > generate.MaxTitleOptions {
			return fmt.Errorf("--count must be between 1 and %d", generate.MaxTitleOptions)
		}

		engine, err := buildEngine(app.cfg.Generation, app.logger)
		if err != nil {
			return err
		}
		titles, err := engine.TitleOptions(cmd.Context(), strings.Join(args, " "), count)
		if err != nil {
			return err
		}
		for i, t := range titles {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, t)
		}
		return nil
	},
}

func init() {
	titlesCmd.Flags().Int("count", 5, "number of titles to propose")

	rootCmd.AddCommand(titlesCmd)
}
