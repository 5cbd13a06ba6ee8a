package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Client — HTTP клиент удалённого сервиса поиска и генерации.
//
// Все запросы идут POST на один endpoint, тип запроса передаётся в поле "type".
// Таймаут запроса задаётся через ctx; http.Client.Timeout — лишь верхняя граница.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig — конфигурация Client.
type ClientConfig struct {
	// URL — endpoint сервиса (обязательно).
	URL string

	// Token — bearer токен (опционально).
	Token string

	// HTTPClient — кастомный HTTP клиент (default: таймаут 60s).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// NewClient создаёт новый Client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		url:        cfg.URL,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// request — тело запроса к сервису.
type request struct {
	Type RequestType `json:"type"`
	Data any         `json:"data"`
}

// SearchFlights ищет перелёты.
func (c *Client) SearchFlights(ctx context.Context, req FlightSearch) (*Envelope[FlightsData], error) {
	return call[FlightsData](ctx, c, TypeFlights, req)
}

// SearchHotels ищет отели.
func (c *Client) SearchHotels(ctx context.Context, req HotelSearch) (*Envelope[HotelsData], error) {
	return call[HotelsData](ctx, c, TypeHotels, req)
}

// SearchActivities ищет активности.
func (c *Client) SearchActivities(ctx context.Context, req ActivitySearch) (*Envelope[ActivitiesData], error) {
	return call[ActivitiesData](ctx, c, TypeActivities, req)
}

// GenerateTravelPlan генерирует погоду, кухню, список вещей и места для посещения.
func (c *Client) GenerateTravelPlan(ctx context.Context, req PlanRequest) (*Envelope[Record], error) {
	return call[Record](ctx, c, TypeGeneratePlan, req)
}

// call выполняет запрос и декодирует конверт ответа в Envelope[T].
func call[T any](ctx context.Context, c *Client, typ RequestType, data any) (*Envelope[T], error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: search url is empty", ErrNotConfigured)
	}

	body, err := json.Marshal(request{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("provider request", "type", typ, "url", c.url)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequest, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRequest, err)
	}

	c.logger.Debug("provider response",
		"type", typ,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}

	// data разбирается только при success=true: при отказе провайдер
	// кладёт туда что угодно (строку, пустой массив).
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	env := Envelope[T]{Success: raw.Success}
	if !raw.Success || len(raw.Data) == 0 {
		return &env, nil
	}
	if err := json.Unmarshal(raw.Data, &env.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return &env, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
