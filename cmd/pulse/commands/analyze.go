package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/metrics"
	"github.com/wonny/alphapulse/internal/report"
	"github.com/wonny/alphapulse/internal/store"
	"github.com/wonny/alphapulse/pkg/database"
	"github.com/wonny/alphapulse/pkg/redis"
)

type analyzeOptions struct {
	capital float64
	output  string
	start   string
	end     string
	save    bool
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file|url>",
		Short: "데이터셋 성과 지표 계산",
		Long: `Strategy-runner 데이터셋에서 첫 전략/첫 심볼의 거래를 추출하고
성과 지표를 계산합니다.

Output formats:
  text      요약 (기본)
  json      전체 지표 JSON
  markdown  마크다운 리포트
  csv       라운드트립 거래 CSV

Example:
  go run ./cmd/pulse analyze results.json
  go run ./cmd/pulse analyze trades.csv --capital 5000 --output csv
  go run ./cmd/pulse analyze results.json --start 2024-02-01 --end 2024-03-31
  go run ./cmd/pulse analyze https://runner.local/results.json --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().Float64Var(&opts.capital, "capital", 0, "initial capital override (CSV default: INITIAL_CAPITAL)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format (text|json|markdown|csv)")
	cmd.Flags().StringVar(&opts.start, "start", "", "first day to show (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.end, "end", "", "last day to show (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "persist the report to DATABASE_URL")

	return cmd
}

func runAnalyze(cmd *cobra.Command, global *globalOptions, opts *analyzeOptions, source string) error {
	ctx := cmd.Context()

	if opts.capital < 0 {
		return fmt.Errorf("--capital must be positive")
	}
	window, err := parseWindow(opts.start, opts.end)
	if err != nil {
		return err
	}

	a, err := newApp(global)
	if err != nil {
		return err
	}

	var repo contracts.ReportRepository
	if opts.save {
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		pgRepo := store.NewRepository(db.Pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = pgRepo
	}

	ds, err := a.loadDataset(ctx, source, opts.capital)
	if err != nil {
		return err
	}

	svc := analysis.NewService(a.settings, redis.Disabled(), repo, a.log)
	rep, err := svc.Analyze(ctx, ds)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", source, err)
	}

	m := metrics.FilterByDateRange(rep.Metrics, window)
	periods := metrics.DrawdownPeriods(m.EquityCurve, a.settings.Drawdowns.MaxPeriods)
	out := cmd.OutOrStdout()

	switch opts.output {
	case "text":
		fmt.Fprint(out, report.Summary(m, periods))
		if opts.save {
			printSuccess(out, "Saved report "+rep.ID)
		}
	case "json":
		shown := *rep
		shown.Metrics = m
		data, err := report.JSON(&shown)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "markdown":
		fmt.Fprint(out, report.Markdown(m, periods))
	case "csv":
		data, err := report.TradesCSV(m)
		if err != nil {
			return err
		}
		out.Write(data)
	default:
		return fmt.Errorf("unknown output format %q (text|json|markdown|csv)", opts.output)
	}

	return nil
}

// parseWindow turns the --start/--end flags into a date range
func parseWindow(start, end string) (metrics.DateRange, error) {
	var r metrics.DateRange

	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return r, fmt.Errorf("invalid --start: %w", err)
		}
		r.Start = &t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return r, fmt.Errorf("invalid --end: %w", err)
		}
		r.End = &t
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return r, fmt.Errorf("--end is before --start")
	}

	return r, nil
}
