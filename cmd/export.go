// -- cmd/export.go --
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/analytics"
	"github.com/voxforge9/clickpilot/internal/observability"
	"github.com/voxforge9/clickpilot/internal/store"
)

// newExportCmd creates the `export` command: dump the persisted analytics
// snapshot as JSON.
func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the persisted analytics snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			snapStore, err := store.Open(cfg.Store, logger)
			if err != nil {
				return err
			}
			defer snapStore.Close()

			snap, err := snapStore.Load(cmd.Context())
			if errors.Is(err, schemas.ErrSnapshotNotFound) {
				return errors.New("no analytics have been persisted yet")
			}
			if err != nil {
				return err
			}

			out, err := analytics.Export(snap, time.Now())
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("output"); path != "" {
				if err := os.WriteFile(path, out, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "analytics exported to %s\n", path)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	exportCmd.Flags().StringP("output", "o", "", "write the export to a file instead of stdout")
	return exportCmd
}
