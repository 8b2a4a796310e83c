package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client — общая основа HTTP/JSON клиентов внешних систем.
// Одна попытка на вызов; повторы, предохранитель и лимитер живут в Reliability.
type Client struct {
	http    *http.Client
	baseURL string
	rel     *Reliability
}

func NewClient(baseURL string, timeout time.Duration, rel *Reliability) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		rel:     rel,
	}
}

// call оборачивает один JSON-вызов в Reliability (если он задан)
func (c *Client) call(ctx context.Context, op, method, path string, in, out interface{}) error {
	if c.rel == nil {
		return c.doJSON(ctx, op, method, path, in, out)
	}
	return c.rel.Do(ctx, op, func(ctx context.Context) error {
		return c.doJSON(ctx, op, method, path, in, out)
	})
}

// doJSON — одна HTTP-попытка: сериализация, статус-коды, десериализация
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	// 429: вычитываем Retry-After и отдаем наверх типизированную ошибку,
	// чтобы retry-политика подождала ровно столько, сколько просят
	if resp.StatusCode == http.StatusTooManyRequests {
		return &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      fmt.Errorf("%s: rate limited", op),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date формат поддерживать не стали: наши коллабораторы шлют секунды
	return 5 * time.Second
}
