package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halcyonic/resonate/internal/config"
	"github.com/halcyonic/resonate/internal/store"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recent coherence log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode([]store.CoherenceLog{})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No coherence log yet. Run 'resonate run' first.")
				return nil
			}

			s, err := store.NewSQLiteLogStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(rows)
			}

			for _, row := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  coherence=%.4f phase=%-11s score=%.4f stability=%.4f variants=%d\n",
					row.Timestamp.Format("2006-01-02 15:04:05"),
					row.Coherence, row.Phase, row.GlobalScore, row.Stability, row.VariantCount)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of entries to show")
	return cmd
}
