package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"dualAgentBot/config"
	"dualAgentBot/internal/adapters/binanceclient"
	"dualAgentBot/internal/adapters/feargreed"
	"dualAgentBot/internal/adapters/logger"
	"dualAgentBot/internal/adapters/sqlite"
	"dualAgentBot/internal/balance"
	"dualAgentBot/internal/engine"
	"dualAgentBot/internal/ports"
	"dualAgentBot/internal/risk"
	"dualAgentBot/internal/scheduler"
	"dualAgentBot/internal/sentiment"
)

func main() {
	// 1. Load Configuration. A configuration error is fatal: the process
	// refuses to begin scheduling.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	switch cfg.Logger {
	case config.LoggerZap:
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize zap logger: %v", err)
		}
		defer func() { _ = zl.Sync() }()
		appLogger = zl
	default:
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "backend": string(cfg.Logger)})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize Exchange Client (Binance Adapter)
	exchangeClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	// 5. Initialize Sentiment Source + Service
	fgiClient, err := feargreed.New(feargreed.Config{
		BaseURL: cfg.FGIBaseURL,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Fear & Greed client")
		log.Fatalf("FATAL: Failed to initialize Fear & Greed client: %v", err)
	}
	clock := ports.SystemClock()
	pairs := []string{cfg.PrimaryPair, cfg.SecondaryPair}
	sentiments, err := sentiment.New(fgiClient, exchangeClient, repo, appLogger, clock, pairs)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize sentiment service")
		log.Fatalf("FATAL: Failed to initialize sentiment service: %v", err)
	}

	// 6. Initialize Risk Engine and Balance Cache
	riskEngine := risk.NewEngine()
	balances, err := balance.NewCache(exchangeClient, appLogger, clock, balance.DefaultTTL)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize balance cache")
		log.Fatalf("FATAL: Failed to initialize balance cache: %v", err)
	}

	// 7. Select the execution strategy once, from explicit configuration.
	var exec ports.ExecutionStrategy
	if cfg.AllowLiveTrading {
		exec, err = engine.NewLiveStrategy(exchangeClient, appLogger)
	} else {
		exec, err = engine.NewSimulationStrategy(exchangeClient, appLogger, nil)
	}
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize execution strategy")
		log.Fatalf("FATAL: Failed to initialize execution strategy: %v", err)
	}
	appLogger.Info(ctx, "Execution strategy selected", map[string]interface{}{"strategy": exec.Name()})

	// 8. Initialize Engines and the Donation Accountant
	botA, err := engine.NewBotAEngine(cfg, appLogger, repo, sentiments, riskEngine, balances, exec, clock)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize agent A engine")
		log.Fatalf("FATAL: Failed to initialize agent A engine: %v", err)
	}
	botB, err := engine.NewBotBEngine(cfg, appLogger, repo, sentiments, riskEngine, balances, exec, clock)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize agent B engine")
		log.Fatalf("FATAL: Failed to initialize agent B engine: %v", err)
	}
	accountant, err := engine.NewDonationAccountant(repo, appLogger, clock)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize donation accountant")
		log.Fatalf("FATAL: Failed to initialize donation accountant: %v", err)
	}

	// 9. Register all jobs into one explicit scheduler.
	sched, err := scheduler.New(appLogger, clock)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize scheduler")
		log.Fatalf("FATAL: Failed to initialize scheduler: %v", err)
	}
	mustAdd := func(err error) {
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to register scheduler job")
			log.Fatalf("FATAL: Failed to register scheduler job: %v", err)
		}
	}
	mustAdd(sched.AddPeriodic("agent-a-tick", cfg.AgentATick, func(ctx context.Context, _ time.Time) error {
		outcome, err := botA.Tick(ctx)
		appLogger.Debug(ctx, "Agent A tick finished", map[string]interface{}{"outcome": string(outcome)})
		return err
	}))
	mustAdd(sched.AddPeriodic("agent-b-tick", cfg.AgentBTick, func(ctx context.Context, _ time.Time) error {
		outcome, err := botB.Tick(ctx)
		appLogger.Debug(ctx, "Agent B tick finished", map[string]interface{}{"outcome": string(outcome)})
		return err
	}))
	mustAdd(sched.AddPeriodic("sentiment-refresh", cfg.SentimentRefresh, func(ctx context.Context, _ time.Time) error {
		return sentiments.Refresh(ctx)
	}))
	mustAdd(sched.AddPeriodic("market-refresh", cfg.MarketRefresh, func(ctx context.Context, _ time.Time) error {
		return sentiments.RecordPrices(ctx)
	}))
	mustAdd(sched.AddDaily("ledger-snapshot", func(ctx context.Context, _ time.Time) error {
		return accountant.RecordDailySnapshot(ctx)
	}))
	mustAdd(sched.AddMonthly("donation-accounting", func(ctx context.Context, now time.Time) error {
		return accountant.RunMonthly(ctx, now)
	}))

	// 10. Run until interrupted.
	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appLogger.Info(ctx, "Starting dual-agent trading controller", map[string]interface{}{
		"primaryPair": cfg.PrimaryPair, "secondaryPair": cfg.SecondaryPair,
		"liveTrading": cfg.AllowLiveTrading, "simulation": cfg.SimulationMode,
	})
	if err := sched.Start(runCtx); err != nil {
		appLogger.Error(ctx, err, "Scheduler exited with error")
		log.Fatalf("FATAL: Scheduler exited with error: %v", err)
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}
