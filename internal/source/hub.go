package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/record"
)

// MaxPageSize is the largest page the datasets-server rows endpoint serves.
const MaxPageSize = 100

// HubOptions configures a Hub.
type HubOptions struct {
	BaseURL     string
	Transport   Transport
	Token       string
	PageSize    int
	Concurrency int
	Logger      *zap.Logger
}

// Hub loads collections page by page from the datasets-server /rows API.
type Hub struct {
	baseURL     string
	client      *http.Client
	token       string
	pageSize    int
	concurrency int
	logger      *zap.Logger
}

// NewHub creates a Hub with its own HTTP client built from opts.Transport.
func NewHub(opts HubOptions) *Hub {
	h := &Hub{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		client:      opts.Transport.HTTPClient(),
		token:       opts.Token,
		pageSize:    opts.PageSize,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
	if h.pageSize <= 0 || h.pageSize > MaxPageSize {
		h.pageSize = MaxPageSize
	}
	if h.concurrency <= 0 {
		h.concurrency = 1
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if !opts.Transport.VerifyTLS {
		h.logger.Warn("TLS certificate verification disabled for dataset hub client", zap.String("hub", h.baseURL))
	}
	return h
}

// rowsResponse is the body of GET /rows.
type rowsResponse struct {
	Rows []struct {
		RowIdx int            `json:"row_idx"`
		Row    map[string]any `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Load fetches every row of ref. The first page reports the total; the
// remaining pages are fetched concurrently into their fixed positions.
func (h *Hub) Load(ctx context.Context, ref Ref) ([]record.Record, error) {
	name := ref.String()

	first, err := h.page(ctx, ref, 0)
	if err != nil {
		return nil, err
	}
	total := first.NumRowsTotal
	if len(first.Rows) > total {
		return nil, errors.NewFetchFailed(name, fmt.Errorf("first page has %d rows but total is %d", len(first.Rows), total))
	}

	recs := make([]record.Record, total)
	if err := fill(recs, first, 0, name); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for offset := len(first.Rows); offset < total; offset += h.pageSize {
		g.Go(func() error {
			resp, err := h.page(gctx, ref, offset)
			if err != nil {
				return err
			}
			if want := min(h.pageSize, total-offset); len(resp.Rows) != want {
				return errors.NewFetchFailed(name, fmt.Errorf("page at offset %d has %d rows, want %d", offset, len(resp.Rows), want))
			}
			return fill(recs, resp, offset, name)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h.logger.Info("dataset fetched", zap.String("dataset", name), zap.Int("rows", total))
	return recs, nil
}

// fill decodes a page into recs starting at offset.
func fill(recs []record.Record, resp *rowsResponse, offset int, name string) error {
	for i, row := range resp.Rows {
		r, err := record.FromFields(row.Row, name, offset+i)
		if err != nil {
			return err
		}
		recs[offset+i] = r
	}
	return nil
}

// page fetches one page of rows.
func (h *Hub) page(ctx context.Context, ref Ref, offset int) (*rowsResponse, error) {
	name := ref.String()

	q := url.Values{}
	q.Set("dataset", ref.Dataset)
	q.Set("config", ref.Config)
	q.Set("split", ref.Split)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(h.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/rows?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.NewFetchFailed(name, err)
	}
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.logger.Debug("fetching page", zap.String("dataset", name), zap.Int("offset", offset))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchFailed(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewFetchFailed(name, statusError(resp))
	}

	var out rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewFetchFailed(name, fmt.Errorf("decode rows: %w", err))
	}
	return &out, nil
}

// statusError summarizes a non-200 response, preferring the server's error message.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}
