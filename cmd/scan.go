// -- cmd/scan.go --
package cmd

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voxforge9/clickpilot/api/schemas"
	"github.com/voxforge9/clickpilot/internal/classifier"
	"github.com/voxforge9/clickpilot/internal/detector"
	"github.com/voxforge9/clickpilot/internal/observability"
	"github.com/voxforge9/clickpilot/internal/scanner"
	"github.com/voxforge9/clickpilot/internal/uitree/htmltree"
)

// scanResult is one recognized candidate in the scan report.
type scanResult struct {
	Type        schemas.ActionType `json:"type"`
	Text        string             `json:"text"`
	Key         string             `json:"key"`
	Visible     bool               `json:"visible"`
	Interactive bool               `json:"interactive"`
	ResumeLink  bool               `json:"resumeLink,omitempty"`
}

// newScanCmd creates the `scan` command: classify a saved HTML rendering
// without dispatching any input. Useful for tuning recognition against a
// captured page.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [snapshot.html]",
		Short: "Scan a saved HTML rendering and report recognized prompts",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("host.snapshot_path", cmd.Flags().Lookup("input")); err != nil {
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

			path := cfg.Host.SnapshotPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("a snapshot path is required (positional argument or --input)")
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			defer f.Close()

			tree, err := htmltree.Parse(f, path)
			if err != nil {
				return err
			}

			variant := detector.Detect(tree, logger)
			if o := cfg.Detector.Override; o != "" {
				variant = schemas.HostVariant(o)
			}
			logger.Info("Snapshot parsed.",
				zap.String("path", path),
				zap.String("variant", string(variant)),
				zap.String("title", tree.Title()))

			cls := classifier.New(variant, cfg.Actions.EnabledTypes(), logger)
			sc := scanner.New(tree, variant, cls, cfg.Engine.SiblingWalkDepth, logger)
			candidates := classifier.DedupeAndPrioritize(sc.FindActionableElements())

			results := make([]scanResult, 0, len(candidates))
			for _, c := range candidates {
				results = append(results, scanResult{
					Type:        c.Type,
					Text:        strings.TrimSpace(c.Text),
					Key:         c.Element.Key(),
					Visible:     c.Visible,
					Interactive: c.Interactive,
					ResumeLink:  c.ResumeLink,
				})
			}

			if viper.GetBool("json") {
				out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(results, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no actionable prompts recognized")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. [%s] %q (%s)\n", i+1, r.Type, r.Text, r.Key)
			}
			return nil
		},
	}

	scanCmd.Flags().String("input", "", "path to a saved HTML rendering")
	scanCmd.Flags().Bool("json", false, "emit the report as JSON")
	return scanCmd
}
