package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/miradorstack/cgroup-analyzer/internal/api"
	"github.com/miradorstack/cgroup-analyzer/internal/cache"
	"github.com/miradorstack/cgroup-analyzer/internal/config"
	"github.com/miradorstack/cgroup-analyzer/internal/engine"
	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

type stubCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	hits   int
	total  int
	writes int
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	value, ok := s.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	s.hits++
	return value, nil
}

func (s *stubCache) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = append([]byte(nil), value...)
	s.writes++
	return true, nil
}

func (s *stubCache) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *stubCache) Close() error { return nil }

type stubStore struct {
	saved []models.AnalysisResult
	err   error
}

func (s *stubStore) Save(result models.AnalysisResult) error {
	s.saved = append(s.saved, result)
	return s.err
}

// collectorCSV renders n one-second samples for a single cgroup burning
// 10ms of CPU per second.
func collectorCSV(n int) []byte {
	var b strings.Builder
	b.WriteString("timestamp,elapsed_sec,web_cpu_usage_usec,web_memory_current\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%d,%d,%d\n", 1700000000+i, i, i*10000, 64<<20)
	}
	return []byte(b.String())
}

func newTestService(c cache.Provider, store ResultStore) *AnalyzerService {
	pipeline := engine.NewPipeline(nil, engine.PipelineOptions{Workers: 1})
	return NewAnalyzerService(nil, pipeline, c, time.Minute, store)
}

func TestAnalyzeUsesResultCache(t *testing.T) {
	c := newStubCache()
	store := &stubStore{}
	svc := newTestService(c, store)
	csv := collectorCSV(30)

	first, err := svc.Analyze(context.Background(), models.AnalysisRequest{Source: "first.csv", CSV: csv})
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	if first.Digest != Digest(csv) || first.Samples != 30 {
		t.Fatalf("unexpected first result: digest=%q samples=%d", first.Digest, first.Samples)
	}
	if c.hits != 0 {
		t.Fatalf("expected cold cache, got %d hits", c.hits)
	}

	second, err := svc.Analyze(context.Background(), models.AnalysisRequest{Source: "second.csv", CSV: csv})
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if c.hits != 1 || c.writes != 1 {
		t.Fatalf("expected one write then a hit on identical table, got %d writes and %d hits", c.writes, c.hits)
	}
	if second.Source != "second.csv" || len(second.Cgroups) != 1 || second.Cgroups[0].Name != "web" {
		t.Fatalf("unexpected cached result: %+v", second)
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected both results persisted, got %d", len(store.saved))
	}
	if svc.LatencyP95() <= 0 {
		t.Fatalf("expected latency to be recorded")
	}
}

func TestAnalyzeDiscardsCorruptCacheEntry(t *testing.T) {
	c := newStubCache()
	csv := collectorCSV(10)
	c.data[cacheKeyPrefix+Digest(csv)] = []byte("{not json")
	svc := newTestService(c, nil)

	result, err := svc.Analyze(context.Background(), models.AnalysisRequest{CSV: csv})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Samples != 10 {
		t.Fatalf("expected fresh analysis, got %+v", result)
	}
	if string(c.data[cacheKeyPrefix+Digest(csv)]) == "{not json" {
		t.Fatalf("corrupt entry should have been replaced")
	}
}

func TestAnalyzeKeepsFirstCachedResult(t *testing.T) {
	c := newStubCache()
	csv := collectorCSV(10)
	// Another instance stores its result between our lookup and our write.
	racing := &racingCache{stubCache: c, key: cacheKeyPrefix + Digest(csv), value: []byte(`{"samples":10,"digest":"theirs"}`)}
	svc := newTestService(racing, nil)

	if _, err := svc.Analyze(context.Background(), models.AnalysisRequest{CSV: csv}); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got := string(c.data[racing.key]); got != string(racing.value) {
		t.Fatalf("existing entry must not be overwritten, got %s", got)
	}
	if c.writes != 0 {
		t.Fatalf("expected no write of our own, got %d", c.writes)
	}
}

// racingCache plants value under key right after the first lookup misses.
type racingCache struct {
	*stubCache
	key   string
	value []byte
}

func (r *racingCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.stubCache.Get(ctx, key)
	if err == nil || key != r.key {
		return data, err
	}
	r.stubCache.mu.Lock()
	r.stubCache.data[key] = r.value
	r.stubCache.mu.Unlock()
	return nil, err
}

func TestAnalyzeStoreFailureIsNotFatal(t *testing.T) {
	store := &stubStore{err: errors.New("disk full")}
	svc := newTestService(nil, store)
	if _, err := svc.Analyze(context.Background(), models.AnalysisRequest{CSV: collectorCSV(5)}); err != nil {
		t.Fatalf("store failures must not fail the analysis: %v", err)
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.Analyze(context.Background(), models.AnalysisRequest{CSV: []byte("timestamp,web_cpu_usage_usec\n1,2\n")})
	if !utils.IsInputError(err) {
		t.Fatalf("expected input error, got %v", err)
	}

	_, err = svc.AnalyzeCSV(context.Background(), wrapperspb.Bytes([]byte("timestamp,elapsed_sec\n")))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for header-only table, got %v", err)
	}
	_, err = svc.AnalyzeCSV(context.Background(), &wrapperspb.BytesValue{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for empty request, got %v", err)
	}
}

func TestAnalyzeCSVCancelled(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.AnalyzeCSV(ctx, wrapperspb.Bytes(collectorCSV(10)))
	if status.Code(err) != codes.Canceled {
		t.Fatalf("expected Canceled, got %v", err)
	}
}

func TestAnalyzeOverGRPC(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	server := api.NewServerWithListener(config.ServerConfig{}, lis, nil, newTestService(nil, nil))
	go func() { _ = server.Start() }()
	defer server.Shutdown(context.Background())

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	result, err := api.NewAnalyzerClient(conn).Analyze(context.Background(), collectorCSV(20))
	if err != nil {
		t.Fatalf("remote analyze: %v", err)
	}
	if result.Samples != 20 || result.Source != "grpc" {
		t.Fatalf("unexpected remote result: samples=%d source=%q", result.Samples, result.Source)
	}
	if len(result.Cgroups) != 1 || result.Cgroups[0].Name != "web" || result.Cgroups[0].Summary.CPUTotalSeconds != 0.19 {
		t.Fatalf("unexpected reports: %+v", result.Cgroups)
	}
}
