package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/animus-labs/animus-indexer/internal/domain"
	"github.com/animus-labs/animus-indexer/internal/ingestspec"
)

const maxSegmentListBytes = 64 << 20

// HTTPLister looks up used segments through a metadata API deployment.
type HTTPLister struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLister(baseURL string, client *http.Client) (*HTTPLister, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("catalog base url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("catalog base url %q must be an absolute http(s) url", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPLister{baseURL: baseURL, client: client}, nil
}

// UsedSegmentsForInterval fetches every used segment of dataSource and keeps
// the ones overlapping interval. An unknown dataset yields an empty slice.
func (l *HTTPLister) UsedSegmentsForInterval(ctx context.Context, dataSource string, interval domain.Interval) ([]domain.Segment, error) {
	segments, err := l.fetch(ctx, dataSource)
	if err != nil {
		return nil, &ingestspec.LookupError{DataSource: dataSource, Interval: interval, Err: err}
	}

	out := make([]domain.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.Interval.Overlaps(interval) {
			out = append(out, seg)
		}
	}
	domain.SortSegments(out)
	return out, nil
}

func (l *HTTPLister) fetch(ctx context.Context, dataSource string) ([]domain.Segment, error) {
	endpoint := l.baseURL + "/datasources/" + url.PathEscape(dataSource) + "/segments?full"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// Only the metadata API's own not_found body means the dataset is
		// unknown. Any other 404 is a misrouted request.
		if resp.StatusCode == http.StatusNotFound && isNotFoundBody(body) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var segments []domain.Segment
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSegmentListBytes)).Decode(&segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	return segments, nil
}

func isNotFoundBody(body []byte) bool {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	return payload.Error == "not_found"
}
