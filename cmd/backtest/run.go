package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantfold/backtest/internal/analytics"
	"github.com/quantfold/backtest/internal/config"
	"github.com/quantfold/backtest/internal/core"
	"github.com/quantfold/backtest/internal/dataproc"
	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/marketdata"
	"github.com/quantfold/backtest/internal/metrics"
	"github.com/quantfold/backtest/internal/orchestrator"
	"github.com/quantfold/backtest/internal/store"
	"github.com/quantfold/backtest/internal/store/archive"
	"github.com/quantfold/backtest/internal/strategy"
)

var (
	runSymbols   []string
	runStrategy  string
	runFrom      string
	runTo        string
	runDataDir   string
	runBenchmark string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	Long:  "Run a strategy against historical CSV data and show performance statistics",
	RunE:  runBacktest,
}

func init() {
	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "Symbols to backtest (required)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "sma_crossover", "Strategy ID")
	runCmd.Flags().StringVar(&runFrom, "from", "", "Start date YYYY-MM-DD (required)")
	runCmd.Flags().StringVar(&runTo, "to", "", "End date YYYY-MM-DD (required)")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Directory with <SYMBOL>.csv files")
	runCmd.Flags().StringVar(&runBenchmark, "benchmark", "", "Benchmark symbol for beta and correlation")

	runCmd.MarkFlagRequired("symbols")
	runCmd.MarkFlagRequired("from")
	runCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(runCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	from, err := time.Parse("2006-01-02", runFrom)
	if err != nil {
		return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}
	to, err := time.Parse("2006-01-02", runTo)
	if err != nil {
		return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}

	dataDir := runDataDir
	if dataDir == "" {
		dataDir = cfg.Data.Dir
	}
	if dataDir == "" {
		return fmt.Errorf("no data directory: set --data-dir or data.dir in config")
	}

	orch, err := buildOrchestrator(cfg, dataDir, log)
	if err != nil {
		return err
	}

	runCfg := core.BacktestConfig{
		Symbols:            runSymbols,
		Start:              from,
		End:                to,
		InitialCash:        cfg.Engine.InitialCash,
		CommissionRate:     cfg.Engine.CommissionRate,
		SlippageRate:       cfg.Engine.SlippageRate,
		MaxPositionSize:    cfg.Engine.MaxPositionSize,
		RebalanceFrequency: cfg.Engine.RebalanceFrequency,
		StrategyID:         runStrategy,
		BenchmarkSymbol:    runBenchmark,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := orch.CreateRun(ctx, runCfg)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	log.Info("starting backtest",
		zap.String("run_id", run.ID),
		zap.Strings("symbols", runSymbols),
		zap.String("strategy", runStrategy))

	if err := orch.Execute(ctx, run.ID); err != nil {
		return fmt.Errorf("executing run: %w", err)
	}

	final, err := orch.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}
	if final.Status != core.StatusCompleted {
		fmt.Printf("Run %s finished with status %s\n", run.ID, final.Status)
		return nil
	}

	result, err := orch.GetResult(ctx, run.ID)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func buildOrchestrator(cfg *config.Config, dataDir string, log *zap.Logger) (*orchestrator.Orchestrator, error) {
	providers := marketdata.NewRegistry()
	providers.Register(marketdata.NewCSVProvider(dataDir))
	provider, _ := providers.Get("csv")

	registry := strategy.NewRegistry()
	registry.Register(strategy.NewSMACrossover(10, 30))
	registry.Register(strategy.NewRSIMeanReversion(14, 30, 70))
	registry.Register(strategy.NewMomentum(20, 0.05))
	registry.Register(strategy.NewBuyAndHold())

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	var arch archive.Archive
	if cfg.Archive.Enabled {
		var err error
		switch cfg.Archive.Type {
		case "s3":
			arch, err = archive.NewS3(archive.S3Config{
				Bucket:    cfg.Archive.S3.Bucket,
				Endpoint:  cfg.Archive.S3.Endpoint,
				Region:    cfg.Archive.S3.Region,
				AccessKey: cfg.Archive.S3.AccessKey,
				SecretKey: cfg.Archive.S3.SecretKey,
				Prefix:    cfg.Archive.S3.Prefix,
			})
		default:
			arch, err = archive.NewLocalFS(cfg.Archive.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("creating archive: %w", err)
		}
	}

	return orchestrator.New(orchestrator.Options{
		Store:     store.NewMemoryStore(cfg.Runner.MaxRuns),
		Provider:  provider,
		Processor: dataproc.NewProcessor(cfg.Data.MinDataPoints, cfg.Data.RequiredColumns, log),
		Executor:  strategy.NewExecutor(registry, log),
		Analyzer: &analytics.Analyzer{
			PeriodsPerYear: cfg.Analytics.PeriodsPerYear,
			RiskFreeRate:   cfg.Analytics.RiskFreeRate,
			VaRConfidence:  cfg.Analytics.VaRConfidence,
		},
		Archive:      arch,
		Metrics:      reg,
		Logger:       log,
		FetchTimeout: cfg.Data.FetchTimeout,
	}), nil
}

func printResult(result *core.Result) {
	m := result.Metrics

	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run:        %s\n", result.RunID)
	fmt.Printf("Strategy:   %s\n", result.Config.StrategyID)
	fmt.Printf("Symbols:    %v\n", result.SymbolsUsed)
	fmt.Printf("Period:     %s to %s\n",
		result.Config.Start.Format("2006-01-02"), result.Config.End.Format("2006-01-02"))
	fmt.Println()
	fmt.Printf("Initial cash:      %14.2f\n", result.Config.InitialCash)
	fmt.Printf("Final value:       %14.2f\n", result.FinalValue)
	fmt.Printf("Total return:      %13.2f%%\n", m.TotalReturn*100)
	fmt.Printf("Annualized return: %13.2f%%\n", m.AnnualizedReturn*100)
	fmt.Printf("Volatility:        %13.2f%%\n", m.Volatility*100)
	fmt.Printf("Sharpe ratio:      %14.2f\n", m.SharpeRatio)
	fmt.Printf("Sortino ratio:     %14.2f\n", m.SortinoRatio)
	fmt.Printf("Calmar ratio:      %14.2f\n", m.CalmarRatio)
	fmt.Printf("Max drawdown:      %13.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("VaR (%.0f%%):         %13.2f%%\n", m.VaRConfidence*100, m.VaR*100)
	fmt.Printf("CVaR:              %13.2f%%\n", m.CVaR*100)
	fmt.Printf("Beta:              %14.2f\n", m.Beta)
	fmt.Printf("Correlation:       %14.2f\n", m.Correlation)
	fmt.Println()
	fmt.Printf("Trades:    %d total, %d winning, %d losing (win rate %.1f%%)\n",
		m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate)
}
