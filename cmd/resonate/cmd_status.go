package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halcyonic/resonate/internal/config"
	"github.com/halcyonic/resonate/internal/formula"
	"github.com/halcyonic/resonate/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent system snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"initialized": false,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No coherence log yet. Run 'resonate run' first.")
				return nil
			}

			s, err := store.NewSQLiteLogStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.Recent(cmd.Context(), 1)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Coherence log is empty.")
				return nil
			}

			latest := rows[0]
			atAttractor := latest.Coherence >= formula.Attractor-0.01 && latest.Coherence <= formula.Attractor+0.01

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"initialized":  true,
					"latest":       latest,
					"at_attractor": atAttractor,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Last cycle:    %s\n", latest.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(cmd.OutOrStdout(), "Coherence:     %.4f (attractor %.2f, at attractor: %v)\n", latest.Coherence, formula.Attractor, atAttractor)
			fmt.Fprintf(cmd.OutOrStdout(), "Phase:         %s\n", latest.Phase)
			fmt.Fprintf(cmd.OutOrStdout(), "Global score:  %.4f\n", latest.GlobalScore)
			fmt.Fprintf(cmd.OutOrStdout(), "Stability:     %.4f\n", latest.Stability)
			fmt.Fprintf(cmd.OutOrStdout(), "Variants:      %d\n", latest.VariantCount)
			return nil
		},
	}
}
