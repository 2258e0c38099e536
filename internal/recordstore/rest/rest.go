// Package rest implements recordstore.Store against a Supabase project's
// PostgREST endpoint (/rest/v1/<table>).
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/httpclient"
)

const upstreamName = "supabase"

// Config holds the Supabase connection settings.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co.
	BaseURL string
	// APIKey is sent both as the apikey header and as a bearer token.
	APIKey  string
	Timeout time.Duration
	// MaxRetries bounds retries of network errors and 5xx responses.
	MaxRetries int
}

// Store talks to PostgREST through a retrying, circuit-broken HTTP client.
type Store struct {
	baseURL string
	client  *httpclient.Client
}

// New creates a REST store.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", cfg.BaseURL)
	}

	hcfg := httpclient.DefaultConfig(upstreamName)
	if cfg.Timeout > 0 {
		hcfg.Timeout = cfg.Timeout
	}
	hcfg.MaxRetries = cfg.MaxRetries
	hcfg.Headers = http.Header{}
	hcfg.Headers.Set("apikey", cfg.APIKey)
	hcfg.Headers.Set("Authorization", "Bearer "+cfg.APIKey)
	hcfg.Headers.Set("Accept", "application/json")

	return &Store{
		baseURL: u.String() + "/rest/v1/",
		client:  httpclient.New(hcfg, logger),
	}, nil
}

// Select implements recordstore.Store.
func (s *Store) Select(ctx context.Context, c recordstore.Collection, q recordstore.Query) ([]recordstore.Row, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", recordstore.ErrUnknownCollection, string(c))
	}
	if q.Empty() {
		return []recordstore.Row{}, nil
	}

	params := url.Values{}
	params.Set("select", "*")
	addFilters(params, q.Filters)
	if q.Search != nil && q.Search.Term != "" && len(q.Search.Columns) > 0 {
		params.Set("or", searchExpr(q.Search))
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		params.Set("order", q.OrderBy+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(c, params), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build select request: %w", err)
	}
	rows, err := s.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", c, err)
	}
	return rows, nil
}

// Insert implements recordstore.Store.
func (s *Store) Insert(ctx context.Context, c recordstore.Collection, row recordstore.Row) (recordstore.Row, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", recordstore.ErrUnknownCollection, string(c))
	}
	body, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("encode %s row: %w", c, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(c, nil), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	rows, err := s.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", c, err)
	}
	if len(rows) == 0 {
		return row.Clone(), nil
	}
	return rows[0], nil
}

// Delete implements recordstore.Store.
func (s *Store) Delete(ctx context.Context, c recordstore.Collection, filters ...recordstore.Filter) (int, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %q", recordstore.ErrUnknownCollection, string(c))
	}
	if len(filters) == 0 {
		return 0, recordstore.ErrUnfilteredDelete
	}
	if recordstore.Where(filters...).Empty() {
		return 0, nil
	}

	params := url.Values{}
	addFilters(params, filters)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.endpoint(c, params), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Prefer", "return=representation")

	rows, err := s.do(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c, err)
	}
	return len(rows), nil
}

func (s *Store) endpoint(c recordstore.Collection, params url.Values) string {
	u := s.baseURL + string(c)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (s *Store) do(ctx context.Context, req *http.Request) ([]recordstore.Row, error) {
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, httpclient.ParseResponseError(resp, upstreamName)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var rows []recordstore.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return rows, nil
}

// addFilters renders filters in PostgREST's column=op.value syntax.
func addFilters(params url.Values, filters []recordstore.Filter) {
	for _, f := range filters {
		switch f.Op {
		case recordstore.OpEq:
			params.Add(f.Column, "eq."+formatValue(f.Value))
		case recordstore.OpIn:
			quoted := make([]string, len(f.Values))
			for i, v := range f.Values {
				quoted[i] = quote(formatValue(v))
			}
			params.Add(f.Column, "in.("+strings.Join(quoted, ",")+")")
		}
	}
}

// searchExpr builds an or=(col.ilike."*term*",...) expression. PostgREST
// uses * as the ilike wildcard, so literal wildcards are removed from term.
func searchExpr(s *recordstore.Search) string {
	term := strings.NewReplacer("*", "", "%", "").Replace(s.Term)
	parts := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		parts[i] = col + ".ilike." + quote("*"+term+"*")
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func formatValue(v any) string {
	return recordstore.Row{"v": v}.String("v")
}

// quote wraps a value in double quotes so reserved characters such as commas
// and parentheses are taken literally.
func quote(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}
