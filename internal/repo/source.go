package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

// MaxSourceBytes bounds how much of a collector table is read.
const MaxSourceBytes = 256 << 20

// ErrSourceTooLarge is returned when a table exceeds MaxSourceBytes.
var ErrSourceTooLarge = errors.New("source exceeds size limit")

// SourceClient fetches collector tables from local paths or HTTP(S) URLs.
type SourceClient struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewSourceClient constructs a client whose HTTP requests time out after timeout.
func NewSourceClient(timeout time.Duration) *SourceClient {
	return &SourceClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBytes: MaxSourceBytes,
	}
}

// Fetch returns the raw bytes behind location.
func (c *SourceClient) Fetch(ctx context.Context, location string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("source client not initialised")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, utils.NewAppError("repo.Fetch", "empty source location", nil)
	}

	if u, err := url.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return c.fetchHTTP(ctx, u.String())
	}
	return c.fetchFile(ctx, location)
}

func (c *SourceClient) fetchFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewAppError("repo.Fetch", "open source file", err)
	}
	defer f.Close()
	return c.readLimited(f)
}

func (c *SourceClient) fetchHTTP(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError("repo.Fetch", "source request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError("repo.Fetch", fmt.Sprintf("source returned %s", resp.Status), nil)
	}
	return c.readLimited(resp.Body)
}

func (c *SourceClient) readLimited(r io.Reader) ([]byte, error) {
	limit := c.maxBytes
	if limit <= 0 {
		limit = MaxSourceBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrSourceTooLarge
	}
	return data, nil
}
