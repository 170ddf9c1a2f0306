// -- cmd/status.go --
package cmd

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/observability"
	"github.com/voxforge9/clickpilot/internal/store"
)

// newStatusCmd creates the `status` command: summarize the persisted snapshot
// without attaching to a host.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show persisted totals and action configuration",
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
				fmt.Fprintln(cmd.OutOrStdout(), "no persisted state yet")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "poll interval:    %s\n", cfg.Engine.PollInterval)
			fmt.Fprintf(out, "total clicks:     %d\n", snap.TotalClicks)
			fmt.Fprintf(out, "total accepts:    %d\n", snap.Analytics.TotalAccepts)
			fmt.Fprintf(out, "time saved:       %s\n",
				(time.Duration(snap.ROITracking.TotalTimeSavedMs) * time.Millisecond).Round(time.Second))
			fmt.Fprintf(out, "tracked files:    %d\n", len(snap.Analytics.Files))
			fmt.Fprintf(out, "last saved:       %s\n", snap.SavedAt.Format(time.RFC3339))

			types := make([]schemas.ActionType, 0, len(snap.Config))
			for t := range snap.Config {
				types = append(types, t)
			}
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
			fmt.Fprintln(out, "actions:")
			for _, t := range types {
				state := "disabled"
				if snap.Config[t] {
					state = "enabled"
				}
				fmt.Fprintf(out, "  %-18s %s\n", t, state)
			}
			return nil
		},
	}
}
