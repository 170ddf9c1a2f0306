// -- cmd/reset.go --
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/analytics"
	"github.com/voxforge9/clickpilot/internal/observability"
	"github.com/voxforge9/clickpilot/internal/store"
)

// newResetCmd creates the `reset` command. By default it clears the analytics
// counters while keeping calibrated baselines and action configuration; with
// --all it removes the persisted snapshot entirely.
func newResetCmd() *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the persisted analytics",
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

			if all, _ := cmd.Flags().GetBool("all"); all {
				if err := snapStore.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "persisted snapshot removed")
				return nil
			}

			snap, err := snapStore.Load(cmd.Context())
			if errors.Is(err, schemas.ErrSnapshotNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to reset")
				return nil
			}
			if err != nil {
				return err
			}

			analytics.New(snap, logger).Reset(time.Now())
			snap.TotalClicks = 0
			snap.SavedAt = time.Now()
			if err := snapStore.Save(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "analytics cleared (baselines and action configuration kept)")
			return nil
		},
	}

	resetCmd.Flags().Bool("all", false, "remove the persisted snapshot entirely")
	return resetCmd
}
