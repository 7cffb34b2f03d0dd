package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/report"
	"github.com/wonny/alphapulse/internal/risk"
	"github.com/wonny/alphapulse/pkg/redis"
)

func newProjectCmd(global *globalOptions) *cobra.Command {
	var (
		simulations int
		seed        int64
		capital     float64
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "project <file|url>",
		Short: "Monte Carlo 자산 곡선 전망",
		Long: `자산 곡선의 구간 수익률 평균/변동성으로 경로를 시뮬레이션하고
구간별 P10/P50/P90 밴드를 계산합니다.

Example:
  go run ./cmd/pulse project results.json
  go run ./cmd/pulse project results.json --simulations 1000 --seed 42 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if simulations < 0 {
				return fmt.Errorf("--simulations must be positive")
			}

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

			cfg := a.settings.ProjectionConfig()
			if simulations > 0 {
				cfg.Simulations = simulations
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}

			proj, err := risk.NewProjector(cfg, a.log).Project(cmd.Context(), rep.Metrics.EquityCurve, rep.Metrics.InitialCapital)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := report.JSON(proj)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprint(out, report.ProjectionSummary(proj))
			return nil
		},
	}

	cmd.Flags().IntVar(&simulations, "simulations", 0, "number of paths (default: settings)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0: time-based)")
	cmd.Flags().Float64Var(&capital, "capital", 0, "initial capital override")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full projection as JSON")

	return cmd
}
