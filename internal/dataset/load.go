package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

const (
	timestampHeader = "timestamp"
	elapsedHeader   = "elapsed_sec"
)

// ErrNoSamples is returned when a table carries a header but no usable rows.
var ErrNoSamples = errors.New("no samples")

// Load parses a collector CSV. Rows whose elapsed_sec cannot be parsed (a
// truncated final line, typically) are skipped.
func Load(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, utils.NewInputError("dataset.Load", "empty input", ErrNoSamples)
		}
		return nil, utils.NewInputError("dataset.Load", "read header", err)
	}

	elapsedIdx, timestampIdx := -1, -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		switch header[i] {
		case elapsedHeader:
			elapsedIdx = i
		case timestampHeader:
			timestampIdx = i
		}
	}
	if elapsedIdx < 0 {
		return nil, utils.NewInputError("dataset.Load", "missing column", fmt.Errorf("header has no %q", elapsedHeader))
	}

	var samples []Sample
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, utils.NewInputError("dataset.Load", fmt.Sprintf("read line %d", line), err)
		}
		if elapsedIdx >= len(record) {
			continue
		}
		elapsed, err := strconv.ParseFloat(strings.TrimSpace(record[elapsedIdx]), 64)
		if err != nil {
			continue
		}

		sample := Sample{Elapsed: elapsed, Values: make(map[string]Value, len(header))}
		if timestampIdx >= 0 && timestampIdx < len(record) {
			sample.Timestamp = parseTimestamp(record[timestampIdx])
		}
		for i, name := range header {
			if i == elapsedIdx || i == timestampIdx || name == "" {
				continue
			}
			raw := ""
			if i < len(record) {
				raw = record[i]
			}
			sample.Values[name] = ParseValue(raw)
		}
		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		return nil, utils.NewInputError("dataset.Load", "no data rows", ErrNoSamples)
	}
	return New(samples), nil
}

func parseTimestamp(raw string) int64 {
	s := strings.TrimSpace(raw)
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
