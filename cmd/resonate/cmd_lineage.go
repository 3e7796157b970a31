package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halcyonic/resonate/internal/config"
	"github.com/halcyonic/resonate/internal/export"
	"github.com/halcyonic/resonate/internal/lineage"
)

func newLineageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Render the variant lineage from the latest population snapshot",
		Long: `lineage reads the variant population from a snapshot file (by default
the newest one written by 'resonate run') and renders the parent/child tree
as Graphviz DOT or JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			snapshotPath, _ := cmd.Flags().GetString("snapshot")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if snapshotPath == "" {
				dir := filepath.Join(cfg.Logging.Dir, "snapshots")
				path, ok := export.LatestSnapshot(dir)
				if !ok {
					return fmt.Errorf("no snapshot found in %s; run 'resonate run' first", dir)
				}
				snapshotPath = path
			}

			snap, err := export.ReadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(lineage.RenderJSON(snap.Variants))
			}

			fmt.Fprint(cmd.OutOrStdout(), lineage.RenderDOT(snap.Variants))
			return nil
		},
	}

	cmd.Flags().String("snapshot", "", "Snapshot file to render (default: newest)")
	return cmd
}
