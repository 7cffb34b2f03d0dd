package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/metrics"
	"github.com/wonny/alphapulse/pkg/redis"
)

func newDrawdownsCmd(global *globalOptions) *cobra.Command {
	var (
		limit   int
		capital float64
	)

	cmd := &cobra.Command{
		Use:   "drawdowns <file|url>",
		Short: "Drawdown waterfall 조회",
		Long: `자산 곡선에서 고점 대비 하락 구간을 묶어 깊은 순으로 보여줍니다.

Example:
  go run ./cmd/pulse drawdowns results.json
  go run ./cmd/pulse drawdowns results.json --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}

			ds, err := a.loadDataset(cmd.Context(), args[0], capital)
			if err != nil {
				return err
			}

			rep, err := analysis.NewService(a.settings, redis.Disabled(), nil, a.log).Analyze(cmd.Context(), ds)
			if err != nil {
				return err
			}

			if limit <= 0 {
				limit = a.settings.Drawdowns.MaxPeriods
			}
			periods := metrics.DrawdownPeriods(rep.Metrics.EquityCurve, limit)

			out := cmd.OutOrStdout()
			printHeader(out, fmt.Sprintf("Drawdown Waterfall · %s", rep.Metrics.StrategyName))
			if len(periods) == 0 {
				printInfo(out, "No drawdowns")
				return nil
			}

			widths := []int{3, 10, 10, 9, 8, 14}
			printTableHeader(out, []string{"#", "Start", "End", "Depth", "Points", "Recovery"}, widths)
			for i, p := range periods {
				recovery := "open"
				if p.Recovered() {
					recovery = fmt.Sprintf("%d points", p.Recovery)
				}
				printTableRow(out, []string{
					fmt.Sprintf("%d", i+1),
					p.Start,
					p.End,
					pct(p.Depth),
					fmt.Sprintf("%d", p.Duration),
					recovery,
				}, widths)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of periods (default: MAX_DRAWDOWNS)")
	cmd.Flags().Float64Var(&capital, "capital", 0, "initial capital override")

	return cmd
}
