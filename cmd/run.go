// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/engine"
	"github.com/voxforge9/clickpilot/internal/observability"
	"github.com/voxforge9/clickpilot/internal/store"
	"github.com/voxforge9/clickpilot/internal/uitree/cdptree"
)

// newRunCmd creates the `run` command: attach to a live host and drive the
// scan/act loop until interrupted.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Attach to a running host and automate its confirmation prompts",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("host.devtools_url", cmd.Flags().Lookup("devtools-url")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.poll_interval", cmd.Flags().Lookup("poll-interval")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Host.DevtoolsURL == "" {
				return errors.New("host.devtools_url is required (use --devtools-url or the config file); for offline snapshots use `clickpilot scan`")
			}

			// Signal-aware root context for the whole session.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			session, err := cdptree.Attach(ctx, cfg.Host.DevtoolsURL, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			snapStore, err := store.Open(cfg.Store, logger)
			if err != nil {
				return err
			}
			defer snapStore.Close()

			source := engine.TreeSourceFunc(func(ctx context.Context) (schemas.UITree, error) {
				return session.Refresh(ctx)
			})

			eng, err := engine.New(ctx, cfg, source, snapStore, engine.SystemClock{}, logger)
			if err != nil {
				return err
			}
			if err := eng.Start(ctx); err != nil {
				return err
			}

			logger.Info("Automation running. Press Ctrl-C to stop.",
				zap.String("devtools_url", cfg.Host.DevtoolsURL),
				zap.String("variant", string(eng.Variant())))

			<-ctx.Done()
			eng.Stop()

			st := eng.Status()
			fmt.Fprintf(cmd.OutOrStdout(),
				"session complete: %d actions invoked, %d files touched, %.1fs estimated time saved\n",
				st.TotalClicks, st.TrackedFiles, float64(st.TotalTimeSavedMs)/1000.0)
			return nil
		},
	}

	runCmd.Flags().String("devtools-url", "", "DevTools websocket URL of the running host")
	runCmd.Flags().Duration("poll-interval", 0, "override the scan poll interval")
	return runCmd
}
