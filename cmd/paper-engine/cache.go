// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-engine/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the retrieval cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries, or all of them with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		all, _ := cmd.Flags().GetBool("all")
		if all {
			modeName = string(cache.PurgeAll)
		}
		mode, err := cache.ParsePurgeMode(modeName)
		if err != nil {
			return err
		}

		store, err := cache.Open(app.cfg.Cache)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer store.Close()

		removed, err := store.Purge(cmd.Context(), mode)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s entries from %s cache\n", removed, mode, app.cfg.Cache.Backend)
		return nil
	},
}

func init() {
	cachePurgeCmd.Flags().String("mode", string(cache.PurgeExpired), "entries to delete: expired or all")
	cachePurgeCmd.Flags().Bool("all", false, "delete every entry (same as --mode all)")

	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
