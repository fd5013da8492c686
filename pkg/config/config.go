package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
	"tradecontrol/pkg/phases"
)

// Config centralizes runtime settings for the control plane
type Config struct {
	Log      LogConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Risk     RiskConfig
	Executor ExecutorConfig
	AI       AIConfig
	Strategy StrategyConfig
	Stream   StreamConfig
	Solana   SolanaConfig
	Monitor  MonitorConfig
	Campaign CampaignConfig
}

type LogConfig struct {
	Level string
	File  string
}

type HTTPConfig struct {
	Port           string
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string

	// OperatorToken guards state-changing control routes; empty leaves them open
	OperatorToken string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	TimeZone       string
	MigrateOnStart bool
}

// Enabled is false when no database host is configured
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN is the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.TimeZone)
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

type RiskConfig struct {
	MaxDailyLossSOL      float64
	MaxOpenPositions     int
	BreakerPolicy        string
	BreakerThreshold     int
	BreakerRecovery      time.Duration
	MaxConsecutiveLosses int
	ConfidenceThreshold  float64
}

type ExecutorConfig struct {
	OrderSizeSOL         float64
	SlippageBps          uint16
	MaxAttempts          int
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	AttemptTimeout       time.Duration
	BaseFee              uint64
	VolatilityMultiplier float64
	MaxFee               uint64
	StrictSignatures     bool
	MaxConcurrentSignals int
	ExitPollInterval     time.Duration
}

type AIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// Enabled is false when no API key is configured; the pipeline then runs rule-only
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

type StrategyConfig struct {
	MinMarketCapUSD  float64
	MaxMarketCapUSD  float64
	VolumeMeanUSD    float64
	VolumeStdDevUSD  float64
	VolumeZThreshold float64
	MinLiquidityUSD  float64
	MaxTopHolderPct  float64
	MinHolderCount   uint64
	TakeProfitPct    float64
	StopLossPct      float64

	MinSignalConfidence float64
}

// Signal sources
const (
	SourceNone      = "none"
	SourceWebsocket = "websocket"
	SourceAMQP      = "amqp"
)

type StreamConfig struct {
	Source          string
	WebsocketURL    string
	Queue           string
	ReconnectBase   time.Duration
	ReconnectMax    time.Duration
	MinLiquidityUSD float64
}

type SolanaConfig struct {
	RPCURL            string
	HealthRPCURLs     []string
	KeystoreDir       string
	WalletAddress     string
	WalletPassword    string
	FeeRecipient      string
	CurveFeeBps       uint64
	RequestsPerSecond float64
	ConfirmTimeout    time.Duration
	DryRun            bool
}

type MonitorConfig struct {
	AlertWebhookURL  string
	TelegramBotToken string
	TelegramChatID   string
	JournalPath      string
	SnapshotSpec     string
}

type CampaignConfig struct {
	PhasesFile string
	Phases     []phases.PhaseConfig
}

// Load reads .env when present, then the environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	cfg := Config{
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		HTTP: HTTPConfig{
			Port:           getEnv("PORT", "8080"),
			RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
			OperatorToken:  getEnv("OPERATOR_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", ""),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", "tradecontrol"),
			TimeZone:       getEnv("DB_TIMEZONE", "UTC"),
			MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", ""),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
		},
		Risk: RiskConfig{
			MaxDailyLossSOL:      getEnvFloat("MAX_DAILY_LOSS_SOL", 1.0),
			MaxOpenPositions:     getEnvInt("MAX_OPEN_POSITIONS", 10),
			BreakerPolicy:        getEnv("BREAKER_POLICY", "time_window"),
			BreakerThreshold:     getEnvInt("BREAKER_THRESHOLD", 3),
			BreakerRecovery:      getEnvDuration("BREAKER_RECOVERY", 60*time.Second),
			MaxConsecutiveLosses: getEnvInt("MAX_CONSECUTIVE_LOSSES", 3),
			ConfidenceThreshold:  getEnvFloat("CONFIDENCE_THRESHOLD", 0.15),
		},
		Executor: ExecutorConfig{
			OrderSizeSOL:         getEnvFloat("ORDER_SIZE_SOL", 0.1),
			SlippageBps:          uint16(getEnvInt("SLIPPAGE_BPS", 100)),
			MaxAttempts:          getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:            getEnvDuration("RETRY_BASE_DELAY", 100*time.Millisecond),
			MaxDelay:             getEnvDuration("RETRY_MAX_DELAY", 5*time.Second),
			AttemptTimeout:       getEnvDuration("ATTEMPT_TIMEOUT", 10*time.Second),
			BaseFee:              getEnvUint64("PRIORITY_BASE_FEE", 10_000),
			VolatilityMultiplier: getEnvFloat("PRIORITY_VOLATILITY_MULTIPLIER", 1.0),
			MaxFee:               getEnvUint64("PRIORITY_MAX_FEE", 100_000),
			StrictSignatures:     getEnvBool("STRICT_SIGNATURES", true),
			MaxConcurrentSignals: getEnvInt("MAX_CONCURRENT_SIGNALS", 8),
			ExitPollInterval:     getEnvDuration("EXIT_POLL_INTERVAL", 5*time.Second),
		},
		AI: AIConfig{
			APIKey:          getEnv("DEEPSEEK_API_KEY", ""),
			BaseURL:         getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com"),
			Model:           getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			Timeout:         getEnvDuration("AI_TIMEOUT", 800*time.Millisecond),
			CacheTTL:        getEnvDuration("AI_CACHE_TTL", 300*time.Second),
			CacheMaxEntries: getEnvInt("AI_CACHE_MAX_ENTRIES", 0),
		},
		Strategy: StrategyConfig{
			MinMarketCapUSD:  getEnvFloat("MIN_MCAP_USD", 5_000),
			MaxMarketCapUSD:  getEnvFloat("MAX_MCAP_USD", 1_000_000),
			VolumeMeanUSD:    getEnvFloat("VOLUME_MEAN_USD", 10_000),
			VolumeStdDevUSD:  getEnvFloat("VOLUME_STDDEV_USD", 5_000),
			VolumeZThreshold: getEnvFloat("VOLUME_Z_THRESHOLD", -1.0),
			MinLiquidityUSD:  getEnvFloat("MIN_LIQUIDITY_USD", 5_000),
			MaxTopHolderPct:  getEnvFloat("MAX_TOP_HOLDER_PCT", 30),
			MinHolderCount:   getEnvUint64("MIN_HOLDER_COUNT", 10),
			TakeProfitPct:    getEnvFloat("TAKE_PROFIT_PCT", 0.5),
			StopLossPct:      getEnvFloat("STOP_LOSS_PCT", 0.1),

			MinSignalConfidence: getEnvFloat("MIN_SIGNAL_CONFIDENCE", 0),
		},
		Stream: StreamConfig{
			Source:          getEnv("SIGNAL_SOURCE", SourceNone),
			WebsocketURL:    getEnv("PUMPFUN_WS_URL", "wss://pumpportal.fun/api/data"),
			Queue:           getEnv("SIGNAL_QUEUE", "mint_signals"),
			ReconnectBase:   getEnvDuration("RECONNECT_BASE_DELAY", time.Second),
			ReconnectMax:    getEnvDuration("RECONNECT_MAX_DELAY", 60*time.Second),
			MinLiquidityUSD: getEnvFloat("PIPELINE_MIN_LIQUIDITY_USD", 1_000),
		},
		Solana: SolanaConfig{
			RPCURL:            getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
			HealthRPCURLs:     getEnvList("SOLANA_HEALTH_RPC_URLS"),
			KeystoreDir:       getEnv("KEYSTORE_DIR", "configs/keystore"),
			WalletAddress:     getEnv("WALLET_ADDRESS", ""),
			WalletPassword:    getEnv("WALLET_PASSWORD", ""),
			FeeRecipient:      getEnv("PUMPFUN_FEE_RECIPIENT", ""),
			CurveFeeBps:       getEnvUint64("PUMPFUN_FEE_BPS", 100),
			RequestsPerSecond: getEnvFloat("RPC_REQUESTS_PER_SECOND", 10),
			ConfirmTimeout:    getEnvDuration("CONFIRM_TIMEOUT", 8*time.Second),
			DryRun:            getEnvBool("DRY_RUN", true),
		},
		Monitor: MonitorConfig{
			AlertWebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
			TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			JournalPath:      getEnv("TRADE_JOURNAL_PATH", "logs/trades.csv"),
			SnapshotSpec:     getEnv("RISK_SNAPSHOT_SPEC", "0 */5 * * * *"),
		},
		Campaign: CampaignConfig{
			PhasesFile: getEnv("CAMPAIGN_PHASES_FILE", ""),
		},
	}
	if len(cfg.Solana.HealthRPCURLs) == 0 {
		cfg.Solana.HealthRPCURLs = []string{cfg.Solana.RPCURL}
	}

	phaseConfigs, err := LoadPhases(cfg.Campaign.PhasesFile, cfg.Executor.OrderSizeSOL)
	if err != nil {
		return Config{}, err
	}
	cfg.Campaign.Phases = phaseConfigs

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the control plane cannot run with
func (c Config) Validate() error {
	if c.Risk.MaxDailyLossSOL <= 0 {
		return fmt.Errorf("%w: MAX_DAILY_LOSS_SOL must be positive", core.ErrConfig)
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("%w: MAX_OPEN_POSITIONS must be positive", core.ErrConfig)
	}
	if c.Risk.BreakerThreshold <= 0 || c.Risk.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("%w: breaker thresholds must be positive", core.ErrConfig)
	}
	if c.Risk.ConfidenceThreshold < 0 || c.Risk.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: CONFIDENCE_THRESHOLD must be within [0, 1]", core.ErrConfig)
	}
	if c.Executor.OrderSizeSOL <= 0 {
		return fmt.Errorf("%w: ORDER_SIZE_SOL must be positive", core.ErrConfig)
	}
	if c.Executor.MaxAttempts <= 0 {
		return fmt.Errorf("%w: RETRY_MAX_ATTEMPTS must be positive", core.ErrConfig)
	}
	if c.Executor.BaseDelay <= 0 || c.Executor.MaxDelay < c.Executor.BaseDelay {
		return fmt.Errorf("%w: retry delays must satisfy 0 < base <= max", core.ErrConfig)
	}
	if !(c.Executor.VolatilityMultiplier > 0) {
		return fmt.Errorf("%w: PRIORITY_VOLATILITY_MULTIPLIER must be positive", core.ErrConfig)
	}
	if c.Executor.BaseFee > c.Executor.MaxFee {
		return fmt.Errorf("%w: PRIORITY_BASE_FEE exceeds PRIORITY_MAX_FEE", core.ErrConfig)
	}
	if c.Executor.SlippageBps > 10_000 {
		return fmt.Errorf("%w: SLIPPAGE_BPS must not exceed 10000", core.ErrConfig)
	}
	if c.Executor.MaxConcurrentSignals <= 0 {
		return fmt.Errorf("%w: MAX_CONCURRENT_SIGNALS must be positive", core.ErrConfig)
	}
	if c.AI.CacheMaxEntries < 0 {
		return fmt.Errorf("%w: AI_CACHE_MAX_ENTRIES must not be negative", core.ErrConfig)
	}
	switch c.Stream.Source {
	case SourceNone, SourceWebsocket, SourceAMQP:
	default:
		return fmt.Errorf("%w: unknown SIGNAL_SOURCE %q", core.ErrConfig, c.Stream.Source)
	}
	if c.Stream.Source == SourceAMQP && !c.RabbitMQ.Enabled() {
		return fmt.Errorf("%w: SIGNAL_SOURCE=amqp requires RABBITMQ_HOST", core.ErrConfig)
	}
	if !c.Solana.DryRun && c.Solana.WalletAddress == "" {
		return fmt.Errorf("%w: WALLET_ADDRESS is required when DRY_RUN is false", core.ErrConfig)
	}
	if len(c.Campaign.Phases) == 0 {
		return fmt.Errorf("%w: at least one campaign phase is required", core.ErrConfig)
	}
	for _, p := range c.Campaign.Phases {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPhases reads the campaign phases from a JSON file. Without a file the
// campaign is a single open-ended phase sized at the default order.
func LoadPhases(path string, orderSizeSOL float64) ([]phases.PhaseConfig, error) {
	if path == "" {
		return []phases.PhaseConfig{{
			Name:           "default",
			Description:    "single open-ended phase",
			MaxPositionSOL: orderSizeSOL,
		}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read campaign phases: %v", core.ErrConfig, err)
	}
	var out []phases.PhaseConfig
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid campaign phases file %s: %v", core.ErrConfig, path, err)
	}
	return out, nil
}

// SetupLogging applies level, format and optional file output to logrus
func SetupLogging(cfg LogConfig) (*os.File, error) {
	log.SetFormatter(&log.JSONFormatter{})
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.File == "" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return parsed
		}
		log.WithField("key", key).Warn("Invalid float in environment, using default")
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.Atoi(v)
		if err == nil {
			return parsed
		}
		log.WithField("key", key).Warn("Invalid integer in environment, using default")
	}
	return fallback
}

func getEnvUint64(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			return parsed
		}
		log.WithField("key", key).Warn("Invalid unsigned integer in environment, using default")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err == nil {
			return parsed
		}
		log.WithField("key", key).Warn("Invalid boolean in environment, using default")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		parsed, err := time.ParseDuration(v)
		if err == nil {
			return parsed
		}
		log.WithField("key", key).Warn("Invalid duration in environment, using default")
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
