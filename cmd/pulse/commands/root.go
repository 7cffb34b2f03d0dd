package commands

import (
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	settingsPath string
	verbose      bool
}

// NewRootCmd builds the pulse command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "pulse",
		Short: "AlphaPulse - 전략 성과 분석 도구",
		Long: `AlphaPulse CLI

Strategy-runner 결과(JSON/CSV)에서 거래를 추출하고
수익률, 리스크, 트레이딩 지표를 계산합니다.

Usage:
  go run ./cmd/pulse [command]

Examples:
  go run ./cmd/pulse analyze results.json
  go run ./cmd/pulse analyze trades.csv --capital 5000 --output markdown
  go run ./cmd/pulse drawdowns results.json --limit 3
  go run ./cmd/pulse project results.json --simulations 500 --seed 42
  go run ./cmd/pulse serve`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "analysis settings YAML (default: SETTINGS_PATH or built-in)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newDrawdownsCmd(opts),
		newProjectCmd(opts),
		newServeCmd(opts),
		newSettingsCmd(),
	)

	return root
}

// Execute runs the root command.
// This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}
