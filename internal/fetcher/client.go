package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Minglarn/trafikinfo-sub001/internal/config"
	"github.com/Minglarn/trafikinfo-sub001/internal/constants"
	"github.com/Minglarn/trafikinfo-sub001/internal/event"
	apperrors "github.com/Minglarn/trafikinfo-sub001/pkg/errors"
	"github.com/Minglarn/trafikinfo-sub001/pkg/tracing"
)

// Query parameterizes a bulk snapshot request against the upstream traffic
// API.
type Query struct {
	Counties    []int
	MessageType string
	Limit       int
	Offset      int
	Date        string
}

// Client fetches the full set of currently active events for a filter. A
// successful fetch is a complete replacement set for the reconciler.
type Client interface {
	FetchSnapshot(ctx context.Context, q Query) ([]event.Event, error)
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(cfg config.UpstreamConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: tracing.WrapTransport(nil),
		},
	}
}

// FetchSnapshot performs the bulk retrieval. Every failure mode (dial,
// non-2xx, malformed body) comes back as a TRANSPORT_ERROR so callers treat
// it as a transient notice and keep their previous data.
func (c *HTTPClient) FetchSnapshot(ctx context.Context, q Query) ([]event.Event, error) {
	if q.Limit <= 0 {
		q.Limit = constants.DefaultSnapshotLimit
	}
	if q.MessageType == "" {
		q.MessageType = constants.MessageTypeRealtime
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(q), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTransport)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return nil, apperrors.Wrap(
			fmt.Errorf("upstream returned status %d", resp.StatusCode),
			apperrors.ErrTransport,
		)
	}

	var events []event.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("decode snapshot: %w", err), apperrors.ErrTransport)
	}

	return events, nil
}

func (c *HTTPClient) buildURL(q Query) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("type", q.MessageType)

	if len(q.Counties) > 0 {
		parts := make([]string, len(q.Counties))
		for i, county := range q.Counties {
			parts[i] = strconv.Itoa(county)
		}
		params.Set("counties", strings.Join(parts, ","))
	}

	if q.Date != "" {
		params.Set("date", q.Date)
	}

	return c.baseURL + "/events?" + params.Encode()
}
