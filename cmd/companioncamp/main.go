package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sghtao/companion-camp-backend/internal/advertisement"
	"github.com/sghtao/companion-camp-backend/internal/ai"
	"github.com/sghtao/companion-camp-backend/internal/ai/gemini"
	"github.com/sghtao/companion-camp-backend/internal/ai/openai"
	"github.com/sghtao/companion-camp-backend/internal/coins"
	"github.com/sghtao/companion-camp-backend/internal/configs"
	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/data/cache"
	collectorData "github.com/sghtao/companion-camp-backend/internal/data/collector"
	"github.com/sghtao/companion-camp-backend/internal/data/collector/binance"
	"github.com/sghtao/companion-camp-backend/internal/data/collector/dexscreener"
	"github.com/sghtao/companion-camp-backend/internal/data/social/synthetic"
	"github.com/sghtao/companion-camp-backend/internal/data/social/xapi"
	"github.com/sghtao/companion-camp-backend/internal/data/storage"
	"github.com/sghtao/companion-camp-backend/internal/evaluation"
	"github.com/sghtao/companion-camp-backend/internal/metrics"
	"github.com/sghtao/companion-camp-backend/internal/reward"
	"github.com/sghtao/companion-camp-backend/internal/server"
)

var (
	flagconf string

	// 构建时通过 -ldflags 注入
	version = "1.0.0"
)

func init() {
	flag.StringVar(&flagconf, "conf", "", "config path, eg: -conf config.json")
}

func main() {
	flag.Parse()

	// 加载配置
	config, err := configs.Load(flagconf)
	if err != nil {
		slog.Error("Error loading config", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     config.Level(),
	}))
	slog.SetDefault(log)

	log.Debug("Loaded config",
		"social_mode", config.Social.Mode,
		"ai_provider", config.AIConfig.Provider,
		"database", config.Database.ConnStr != "",
		"redis", config.Redis.Addr)

	if config.Proxy != "" {
		_ = os.Setenv("HTTP_PROXY", config.Proxy)
		_ = os.Setenv("HTTPS_PROXY", config.Proxy)
		log.Debug("set proxy ok", "proxy", config.Proxy)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, log); err != nil {
		log.Error("System error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config *configs.Config, log *slog.Logger) error {
	m := metrics.New(version)

	// 初始化各个组件
	social := newSocialSource(config, log)
	log.Debug("init social source", "source", social.Name())

	generator, err := newGenerator(ctx, config)
	if err != nil {
		return err
	}
	log.Debug("init generator", "provider", config.AIConfig.Provider)

	scorer := ai.NewQualitativeScorer(generator, log,
		ai.WithTimeout(configs.Duration(config.AIConfig.Timeout, ai.DefaultTimeout)),
		ai.WithDegradedHook(m.QualitativeDegraded))

	dispatcher, err := reward.NewSimulatedDispatcher(config.RewardPolicy, log)
	if err != nil {
		return err
	}

	orchestrator := evaluation.NewOrchestrator(social, scorer, dispatcher, log,
		evaluation.WithPostLimit(config.Social.PostLimit),
		evaluation.WithRecorder(m))

	log.Debug("init evaluation pipeline")

	collector := collectorData.NewMultiSourceCollector([]data.MarketDataSource{
		dexscreener.NewDexScreenerDataSource(log),
		binance.NewBinanceDataSource(log, config.Coins.BinanceTestnet),
	}, log)

	log.Debug("init collector")

	var purchases data.PurchaseStorage
	if config.Database.ConnStr != "" {
		storager, err := storage.NewPostgresStorage(config.Database.ConnStr)
		if err != nil {
			return err
		}
		defer storager.Close()
		purchases = storager
		log.Debug("init storager")
	} else {
		log.Warn("no database configured, purchase history disabled")
	}

	coinOpts := []coins.Option{coins.WithObserver(m)}
	var selections advertisement.SelectionStore = advertisement.NewMemorySelectionStore()
	if config.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err != nil {
			// 缓存不可用时直接访问行情源
			log.Warn("redis unavailable, coin cache and shared ad selections disabled", "err", err)
		} else {
			defer client.Close()
			ttl := configs.Duration(config.Coins.CacheTTL, cache.DefaultTTL)
			coinOpts = append(coinOpts, coins.WithCache(cache.NewCoinCache(client, ttl)))
			log.Debug("init coin cache", "ttl", ttl)
			selections = advertisement.NewRedisSelectionStore(client)
		}
	}
	coinService := coins.NewService(collector, purchases, log, coinOpts...)

	go func() {
		refresh := configs.Duration(config.Coins.RefreshInterval, 30*time.Second)
		if err := coinService.Run(ctx, collector, refresh); err != nil && ctx.Err() == nil {
			log.Error("coin refresh stopped", "err", err)
		}
	}()

	adService := advertisement.NewService(social, selections, log)

	srv := server.New(orchestrator, coinService, adService, log,
		server.WithMetrics(m),
		server.WithVersion(version))

	return srv.Run(ctx, config.Server.Addr, configs.Duration(config.Server.ShutdownTimeout, 10*time.Second))
}

func newSocialSource(config *configs.Config, log *slog.Logger) data.SocialDataSource {
	switch config.Social.Mode {
	case configs.SocialModeX:
		return xapi.NewAdapter(config.Social.BearerToken, log)
	case configs.SocialModeRandom:
		seed := config.Social.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return synthetic.NewRandomAdapter(seed, log)
	default:
		return synthetic.NewDemoAdapter(log)
	}
}

// newGenerator returns nil when no provider is configured, so every
// qualitative score falls back.
func newGenerator(ctx context.Context, config *configs.Config) (ai.Generator, error) {
	c := config.AIConfig
	switch c.Provider {
	case configs.ProviderGemini:
		return gemini.NewGenerator(ctx, c.APIKey, c.ModelType, c.BaseURL)
	case configs.ProviderOpenAI:
		return openai.NewGenerator(c.APIKey, c.ModelType, c.BaseURL), nil
	case configs.ProviderDeepSeek:
		return openai.NewDeepSeekGenerator(c.APIKey, c.ModelType), nil
	default:
		return nil, nil
	}
}
