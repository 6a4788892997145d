package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/miradorstack/cgroup-analyzer/internal/api"
	"github.com/miradorstack/cgroup-analyzer/internal/cache"
	"github.com/miradorstack/cgroup-analyzer/internal/dataset"
	"github.com/miradorstack/cgroup-analyzer/internal/engine"
	"github.com/miradorstack/cgroup-analyzer/internal/metrics"
	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

const cacheKeyPrefix = "cgroup-analyzer:result:v1:"

// ResultStore persists finished analyses.
type ResultStore interface {
	Save(result models.AnalysisResult) error
}

// AnalyzerService is the facade shared by the batch CLI and the gRPC server.
type AnalyzerService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	cache     cache.Provider
	cacheTTL  time.Duration
	store     ResultStore
	latencies *utils.LatencyTracker
}

// NewAnalyzerService constructs the analyzer service facade. cacheProvider and
// store may be nil.
func NewAnalyzerService(logger *slog.Logger, pipeline *engine.Pipeline, cacheProvider cache.Provider, cacheTTL time.Duration, store ResultStore) *AnalyzerService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &AnalyzerService{
		logger:    logger,
		pipeline:  pipeline,
		cache:     cacheProvider,
		cacheTTL:  cacheTTL,
		store:     store,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze interprets one collector table. Identical tables are answered from
// the result cache when one is configured.
func (s *AnalyzerService) Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	if s.pipeline == nil {
		return models.AnalysisResult{}, errors.New("pipeline not configured")
	}

	start := time.Now()
	digest := Digest(req.CSV)
	s.logger.Debug("Analyze called", slog.String("source", req.Source), slog.String("digest", digest), slog.Int("bytes", len(req.CSV)))

	result, hit := s.cached(ctx, digest)
	if !hit {
		var err error
		result, err = s.analyze(ctx, req.CSV)
		if err != nil {
			metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeError)
			s.logger.Error("analysis failed", slog.String("source", req.Source), slog.Any("error", err))
			return models.AnalysisResult{}, err
		}
		result.Digest = digest
		s.remember(ctx, digest, result)
	}
	result.Source = req.Source

	if s.store != nil {
		if err := s.store.Save(result); err != nil {
			s.logger.Warn("failed to persist analysis", slog.Any("error", err))
		}
	}

	duration := time.Since(start)
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
	return result, nil
}

// AnalyzeCSV implements api.AnalyzerServer.
func (s *AnalyzerService) AnalyzeCSV(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if req == nil || len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "request must carry a CSV table")
	}

	result, err := s.Analyze(ctx, models.AnalysisRequest{Source: "grpc", CSV: req.GetValue()})
	if err != nil {
		switch {
		case utils.IsInputError(err):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Error(codes.Internal, fmt.Sprintf("analysis failed: %v", err))
	}

	out, err := api.ToStruct(result)
	if err != nil {
		s.logger.Error("encode analysis failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode analysis")
	}
	return out, nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalyzerService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// Digest is the hex SHA-256 of a collector table, used as its cache identity.
func Digest(csv []byte) string {
	sum := sha256.Sum256(csv)
	return hex.EncodeToString(sum[:])
}

func (s *AnalyzerService) analyze(ctx context.Context, csv []byte) (models.AnalysisResult, error) {
	ds, err := dataset.Load(bytes.NewReader(csv))
	if err != nil {
		return models.AnalysisResult{}, err
	}
	s.logger.Info("dataset loaded",
		slog.Int("samples", ds.Len()),
		slog.Int("cgroups", len(ds.Cgroups())),
		slog.Bool("extended_metrics", ds.ExtendedMetrics()))
	return s.pipeline.Analyze(ctx, ds)
}

func (s *AnalyzerService) cached(ctx context.Context, digest string) (models.AnalysisResult, bool) {
	var result models.AnalysisResult
	data, err := s.cache.Get(ctx, cacheKeyPrefix+digest)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("result cache lookup failed", slog.Any("error", err))
		}
		metrics.ObserveCacheLookup(false)
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("discarding undecodable cached result", slog.Any("error", err))
		_ = s.cache.Del(ctx, cacheKeyPrefix+digest)
		metrics.ObserveCacheLookup(false)
		return result, false
	}
	metrics.ObserveCacheLookup(true)
	return result, true
}

func (s *AnalyzerService) remember(ctx context.Context, digest string, result models.AnalysisResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode result for cache", slog.Any("error", err))
		return
	}
	// Instances sharing a cache may finish the same table concurrently; the
	// first stored result is kept.
	stored, err := s.cache.SetNX(ctx, cacheKeyPrefix+digest, data, s.cacheTTL)
	if err != nil {
		s.logger.Warn("failed to cache result", slog.Any("error", err))
		return
	}
	if !stored {
		s.logger.Debug("result already cached", slog.String("digest", digest))
	}
}
