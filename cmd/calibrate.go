// -- cmd/calibrate.go --
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

// newCalibrateCmd creates the `calibrate` command: replace the two workflow
// baselines and recompute every stored time-saved value.
func newCalibrateCmd() *cobra.Command {
	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Recalibrate the manual/automated workflow baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			manualMs, _ := cmd.Flags().GetInt64("manual-ms")
			automatedMs, _ := cmd.Flags().GetInt64("automated-ms")
			if manualMs <= 0 || automatedMs < 0 || automatedMs >= manualMs {
				return fmt.Errorf("invalid baselines: manual-ms=%d automated-ms=%d (manual must be positive and exceed automated)", manualMs, automatedMs)
			}

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
				snap = schemas.NewDefaultSnapshot(time.Now())
			} else if err != nil {
				return err
			}

			recorder := analytics.New(snap, logger)
			recorder.Calibrate(manualMs, automatedMs)
			snap.SavedAt = time.Now()
			if err := snapStore.Save(cmd.Context(), snap); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"baselines set: manual=%dms automated=%dms; %d sessions recomputed, total saved %.1fs\n",
				manualMs, automatedMs,
				len(snap.ROITracking.WorkflowSessions),
				float64(snap.ROITracking.TotalTimeSavedMs)/1000.0)
			return nil
		},
	}

	calibrateCmd.Flags().Int64("manual-ms", schemas.DefaultManualWorkflowMs, "average manual workflow time in milliseconds")
	calibrateCmd.Flags().Int64("automated-ms", schemas.DefaultAutomatedWorkflowMs, "average automated workflow time in milliseconds")
	return calibrateCmd
}
