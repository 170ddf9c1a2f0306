// -- cmd/validate.go --
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/analytics"
	"github.com/voxforge9/clickpilot/internal/observability"
	"github.com/voxforge9/clickpilot/internal/store"
)

// newValidateCmd creates the `validate` command: cross-check the persisted
// snapshot's derived counters against its append-only event log.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Verify the persisted analytics for internal consistency",
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
				fmt.Fprintln(cmd.OutOrStdout(), "no persisted analytics to validate")
				return nil
			}
			if err != nil {
				return err
			}

			report := analytics.Validate(snap)
			for _, check := range report.Checks {
				mark := "ok"
				if !check.Pass {
					mark = "FAIL"
				}
				if check.Note != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s (%s)\n", check.Name, mark, check.Note)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", check.Name, mark)
				}
			}
			if !report.Valid {
				return fmt.Errorf("analytics inconsistent: %d check(s) failed", len(report.Errors))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "analytics consistent")
			return nil
		},
	}
}
