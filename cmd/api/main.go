package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
	"tradecontrol/internal/handlers"
	"tradecontrol/internal/middleware"
	"tradecontrol/internal/orchestrator"
	"tradecontrol/internal/routes"
	"tradecontrol/pkg/ai"
	"tradecontrol/pkg/config"
	"tradecontrol/pkg/executor"
	"tradecontrol/pkg/monitor"
	"tradecontrol/pkg/phases"
	"tradecontrol/pkg/risk"
	solanautil "tradecontrol/pkg/solana"
	"tradecontrol/pkg/strategy"
	"tradecontrol/pkg/stream"
	"tradecontrol/schedule"
)

const (
	shutdownTimeout  = 15 * time.Second
	rpcHealthTimeout = 3 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logFile, err := config.SetupLogging(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Enabled() {
		if err := config.InitDB(cfg.Database); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer config.CloseDB()
	} else {
		log.Warn("Database not configured, trade journal falls back to CSV")
	}

	if cfg.RabbitMQ.Enabled() {
		if err := config.InitRabbitMQ(cfg.RabbitMQ); err != nil {
			log.Fatalf("Failed to initialize RabbitMQ: %v", err)
		}
		defer config.CloseRabbitMQ()
	} else {
		log.Info("RabbitMQ not configured, skipping initialization")
	}

	breaker, err := risk.NewBreaker(cfg.Risk.BreakerPolicy, cfg.Risk.BreakerThreshold, cfg.Risk.BreakerRecovery, cfg.Risk.MaxConsecutiveLosses)
	if err != nil {
		log.Fatalf("Failed to build circuit breaker: %v", err)
	}
	guard := risk.NewRiskGuard(risk.GuardConfig{
		MaxDailyLossSOL:     cfg.Risk.MaxDailyLossSOL,
		ConfidenceThreshold: cfg.Risk.ConfidenceThreshold,
	}, breaker, risk.NewDailyLimits(cfg.Risk.MaxDailyLossSOL))
	positions := risk.NewPositionManager(cfg.Risk.MaxOpenPositions)

	campaign := phases.NewPhaseManager()
	for _, phase := range cfg.Campaign.Phases {
		if err := campaign.AddPhase(phase); err != nil {
			log.Fatalf("Invalid campaign phase: %v", err)
		}
	}
	if _, err := campaign.StartNextPhase(); err != nil {
		log.Fatalf("Failed to start campaign: %v", err)
	}

	client := rpc.New(cfg.Solana.RPCURL)
	transactions := executor.NewTransactionManager()
	backend, sender := buildBackend(cfg, client)
	engine := executor.NewEngine(
		executor.NewFeeCalculator(cfg.Executor.BaseFee, cfg.Executor.VolatilityMultiplier, cfg.Executor.MaxFee),
		executor.RetryPolicy{
			MaxAttempts: cfg.Executor.MaxAttempts,
			BaseDelay:   cfg.Executor.BaseDelay,
			MaxDelay:    cfg.Executor.MaxDelay,
		},
		cfg.Executor.AttemptTimeout,
		sender,
	)
	tradeExecutor := executor.NewTradeExecutor(transactions, backend, engine,
		executor.NewShield(cfg.Executor.StrictSignatures), cfg.Executor.OrderSizeSOL, cfg.Executor.SlippageBps)

	var prices core.PriceSource = solanautil.NewCurvePriceSource(client)

	var analyzer core.Analyzer
	if cfg.AI.Enabled() {
		scorer, err := ai.NewDeepSeekScorer(ai.ScorerConfig{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			log.Fatalf("Failed to create AI scorer: %v", err)
		}
		analyzer = ai.NewCachedAnalyzer(scorer, ai.NewScoreCache(cfg.AI.CacheTTL, cfg.AI.CacheMaxEntries))
	} else {
		log.Info("DEEPSEEK_API_KEY not set, scoring is rule-only")
	}

	var (
		journal core.Journal
		orders  orchestrator.OrderRecorder
		history handlers.TradeHistory
	)
	if config.DB != nil {
		gj := monitor.NewGormJournal(config.DB)
		journal, orders, history = gj, gj, gj
	} else {
		journal = monitor.NewCSVJournal(cfg.Monitor.JournalPath)
	}

	var publisher core.EventPublisher
	if config.RabbitMQ != nil {
		pub, err := config.NewPublisher()
		if err != nil {
			log.Fatalf("Failed to create publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
	}

	var telegram *monitor.TelegramAlerter
	if cfg.Monitor.TelegramBotToken != "" {
		telegram = monitor.NewTelegramAlerter(cfg.Monitor.TelegramBotToken, cfg.Monitor.TelegramChatID)
	}

	orch := orchestrator.New(orchestrator.Config{
		OrderSizeSOL:     cfg.Executor.OrderSizeSOL,
		SlippageBps:      cfg.Executor.SlippageBps,
		MaxConcurrent:    cfg.Executor.MaxConcurrentSignals,
		ExitPollInterval: cfg.Executor.ExitPollInterval,
		EventQueue:       orchestrator.TradeEventQueue,
	}, orchestrator.Deps{
		Guard:     guard,
		Positions: positions,
		Campaign:  campaign,
		Executor:  tradeExecutor,
		Pipeline:  stream.NewSignalPipeline(cfg.Stream.MinLiquidityUSD),
		Filters: strategy.Chain{
			strategy.NewMcapFilter(cfg.Strategy.MinMarketCapUSD, cfg.Strategy.MaxMarketCapUSD),
			strategy.NewZScoreFilter(cfg.Strategy.VolumeMeanUSD, cfg.Strategy.VolumeStdDevUSD, cfg.Strategy.VolumeZThreshold),
			strategy.NewRugCheckFilter(cfg.Strategy.MinLiquidityUSD, cfg.Strategy.MaxTopHolderPct, cfg.Strategy.MinHolderCount),
		},
		Scorer:    strategy.NewRiskScorer(cfg.Strategy.MaxMarketCapUSD),
		TpSl:      strategy.NewTpSlCalculator(cfg.Strategy.TakeProfitPct, cfg.Strategy.StopLossPct),
		Prices:    prices,
		Journal:   journal,
		Analyzer:  analyzer,
		Orders:    orders,
		Publisher: publisher,
		Alerts:    monitor.NewAlertManager(cfg.Monitor.AlertWebhookURL, telegram),

		SignalFilter: strategy.NewSignalFilter(cfg.Strategy.MinSignalConfidence, core.SignalBuy),
	})

	source, err := buildSource(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start signal source: %v", err)
	}
	go orch.Run(ctx, source)

	jobs, err := schedule.Start(schedule.Jobs{
		Guard:         guard,
		Positions:     positions,
		Transactions:  transactions,
		Campaign:      campaign,
		CheckCampaign: orch.CheckCampaign,
		DB:            config.DB,
		SnapshotSpec:  cfg.Monitor.SnapshotSpec,
	})
	if err != nil {
		log.Fatalf("Failed to start scheduled jobs: %v", err)
	}
	defer jobs.Stop()

	controller := &handlers.Controller{
		Guard:        guard,
		Positions:    positions,
		Campaign:     campaign,
		Transactions: transactions,
		Trades:       orch,
		History:      history,
		RPCHealth: func(ctx context.Context) []solanautil.RPCCheckResult {
			return solanautil.CheckRPCList(ctx, cfg.Solana.HealthRPCURLs, rpcHealthTimeout)
		},
	}
	router := routes.SetupRouter(routes.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.HTTP.RateLimitRPS,
			Burst:             cfg.HTTP.RateLimitBurst,
		},
		OperatorToken: cfg.HTTP.OperatorToken,
	}, controller)
	if cfg.HTTP.OperatorToken == "" {
		log.Warn("OPERATOR_TOKEN is not set, control routes accept unauthenticated requests")
	}

	srv := &http.Server{Addr: ":" + cfg.HTTP.Port, Handler: router}
	go func() {
		log.WithField("port", cfg.HTTP.Port).Info("Control API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if open := positions.OpenCount(); open > 0 {
		log.WithField("open_positions", open).Warn("Exiting with open positions")
	}
}

// buildBackend returns the paper-trading backend in dry run, otherwise the
// pump.fun backend signing with the keystore wallet
func buildBackend(cfg config.Config, client *rpc.Client) (core.ExecutionBackend, executor.Sender) {
	if cfg.Solana.DryRun {
		log.Warn("DRY_RUN enabled, orders go to the paper-trading backend")
		return &executor.MockBackend{}, nil
	}

	wallet, err := solanautil.NewKeystore(cfg.Solana.KeystoreDir).Signer(cfg.Solana.WalletAddress, cfg.Solana.WalletPassword)
	if err != nil {
		log.Fatalf("Failed to load trading wallet: %v", err)
	}
	var feeRecipient solana.PublicKey
	if cfg.Solana.FeeRecipient != "" {
		if feeRecipient, err = solana.PublicKeyFromBase58(cfg.Solana.FeeRecipient); err != nil {
			log.Fatalf("Invalid PUMPFUN_FEE_RECIPIENT: %v", err)
		}
	}
	backend := solanautil.NewPumpfunBackend(client, wallet, solanautil.BackendConfig{
		FeeRecipient:      feeRecipient,
		CurveFeeBps:       cfg.Solana.CurveFeeBps,
		RequestsPerSecond: cfg.Solana.RequestsPerSecond,
		ConfirmTimeout:    cfg.Solana.ConfirmTimeout,
	})
	log.WithField("wallet", backend.Wallet().String()).Info("Live trading enabled")
	return backend, solanautil.NewRawSender(client)
}

func buildSource(ctx context.Context, cfg config.Config) (core.MarketDataStream, error) {
	switch cfg.Stream.Source {
	case config.SourceWebsocket:
		src := stream.NewWebsocketSource(cfg.Stream.WebsocketURL, stream.SubscribeNewToken,
			stream.NewStreamReconnect(cfg.Stream.ReconnectBase, cfg.Stream.ReconnectMax))
		src.Start(ctx)
		return src, nil
	case config.SourceAMQP:
		consumer, err := config.NewConsumer(cfg.Stream.Queue)
		if err != nil {
			return nil, err
		}
		src := stream.NewAMQPSource(consumer)
		src.Start(ctx)
		return src, nil
	default:
		log.Info("No signal source configured, serving the control API only")
		return stream.NewSliceSource(), nil
	}
}
