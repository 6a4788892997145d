package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/miradorstack/cgroup-analyzer/internal/api"
	"github.com/miradorstack/cgroup-analyzer/internal/cache"
	"github.com/miradorstack/cgroup-analyzer/internal/config"
	"github.com/miradorstack/cgroup-analyzer/internal/engine"
	"github.com/miradorstack/cgroup-analyzer/internal/metrics"
	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/repo"
	"github.com/miradorstack/cgroup-analyzer/internal/services"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		input      string
		outputDir  string
		serve      bool
		remote     string
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&input, "input", "", "Collector CSV path or http(s) URL")
	flag.StringVar(&outputDir, "output", "", "Directory for analysis.json and summary_statistics.json")
	flag.BoolVar(&serve, "serve", false, "Run the gRPC analysis service instead of a single pass")
	flag.StringVar(&remote, "remote", "", "Send the input to a running analysis service at this address")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		return 1
	}
	if outputDir != "" {
		cfg.Analysis.OutputDir = outputDir
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if remote != "" {
		return runRemote(ctx, logger, cfg, remote, input)
	}

	cacheProvider := newCache(ctx, logger, cfg.Cache)
	defer cacheProvider.Close()

	ruleEngine, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		return 1
	}
	pipeline := engine.NewPipeline(logger, engine.PipelineOptions{
		Workers:     cfg.Analysis.Workers,
		Periodicity: cfg.Analysis.Periodicity,
		ClusterGap:  cfg.Analysis.ClusterGap,
		Rules:       ruleEngine,
	})

	var store services.ResultStore
	if cfg.Analysis.OutputDir != "" {
		store = repo.NewResultStore(cfg.Analysis.OutputDir)
	}
	analyzer := services.NewAnalyzerService(logger, pipeline, cacheProvider, cfg.Cache.TTL, store)

	if serve {
		return runServer(ctx, stop, logger, cfg, analyzer)
	}
	return runBatch(ctx, logger, cfg, analyzer, input)
}

func newCache(ctx context.Context, logger *slog.Logger, cfg config.CacheConfig) cache.Provider {
	switch cfg.Backend {
	case config.CacheBackendMemory:
		logger.Info("using in-process result cache", slog.Int("size", cfg.Size), slog.Duration("ttl", cfg.TTL))
		return cache.NewMemoryProvider(cfg.Size, cfg.TTL)
	case config.CacheBackendValkey:
		provider, err := cache.NewValkeyProvider(ctx, cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
			return cache.NoopProvider{}
		}
		return provider
	}
	return cache.NoopProvider{}
}

func readInput(ctx context.Context, cfg *config.Config, input string) ([]byte, error) {
	if input == "" {
		return nil, errors.New("-input is required")
	}
	return repo.NewSourceClient(cfg.Source.Timeout).Fetch(ctx, input)
}

func runBatch(ctx context.Context, logger *slog.Logger, cfg *config.Config, analyzer *services.AnalyzerService, input string) int {
	data, err := readInput(ctx, cfg, input)
	if err != nil {
		logger.Error("failed to read input", slog.String("input", input), slog.Any("error", err))
		return 1
	}

	result, err := analyzer.Analyze(ctx, models.AnalysisRequest{Source: input, CSV: data})
	if err != nil {
		return 1
	}
	if err := printJSON(result); err != nil {
		logger.Error("failed to write result", slog.Any("error", err))
		return 1
	}

	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath, prometheus.DefaultGatherer); err != nil {
		logger.Warn("failed to write metrics textfile", slog.Any("error", err))
	}
	logger.Info("analysis written",
		slog.String("output_dir", cfg.Analysis.OutputDir),
		slog.Int("cgroups", len(result.Cgroups)),
		slog.Int("samples", result.Samples),
		slog.Duration("span", utils.SecondsDuration(result.DurationSeconds)))
	return 0
}

func runRemote(ctx context.Context, logger *slog.Logger, cfg *config.Config, address, input string) int {
	data, err := readInput(ctx, cfg, input)
	if err != nil {
		logger.Error("failed to read input", slog.String("input", input), slog.Any("error", err))
		return 1
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Error("failed to dial analysis service", slog.String("address", address), slog.Any("error", err))
		return 1
	}
	defer conn.Close()

	limit := cfg.Server.MaxMessageBytes
	if limit <= 0 {
		limit = api.DefaultMaxMessageBytes
	}
	result, err := api.NewAnalyzerClient(conn).Analyze(ctx, data, grpc.MaxCallRecvMsgSize(limit))
	if err != nil {
		logger.Error("remote analysis failed", slog.String("address", address), slog.Any("error", err))
		return 1
	}
	if err := printJSON(result); err != nil {
		logger.Error("failed to write result", slog.Any("error", err))
		return 1
	}
	return 0
}

func runServer(ctx context.Context, stop context.CancelFunc, logger *slog.Logger, cfg *config.Config, analyzer *services.AnalyzerService) int {
	logger.Info("starting cgroup-analyzer", slog.Bool("periodicity", cfg.Analysis.Periodicity), slog.Int("workers", cfg.Analysis.Workers))

	server, err := api.NewServer(cfg.Server, logger, analyzer)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		return 1
	}
	logger.Info("gRPC server listening", slog.String("address", server.Address()))

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("cgroup-analyzer stopped", slog.Duration("p95_latency", analyzer.LatencyP95()))
	return 0
}

func printJSON(result models.AnalysisResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
