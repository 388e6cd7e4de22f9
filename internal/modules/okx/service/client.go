package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	passph    string
	demo      bool

	http    *http.Client
	limiter *rate.Limiter

	// net_mode выставляем один раз на процесс
	posModeSet atomic.Bool

	metaMu    sync.Mutex
	metaCache map[string]models.Instrument
}

func NewClient(cfg *config.Config) *Client {
	rl := cfg.OKX.RateLimit
	if rl <= 0 {
		rl = 8
	}
	burst := cfg.OKX.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.OKX.BaseURL, "/"),
		apiKey:    cfg.OKX.APIKey,
		apiSecret: cfg.OKX.APISecret,
		passph:    cfg.OKX.Passphrase,
		demo:      cfg.OKX.Demo,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rl), burst),
		metaCache: map[string]models.Instrument{},
	}
}

func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.apiSecret != "" && c.passph != ""
}

func (c *Client) IsDemoMode() bool { return c.demo }

// sign: HMAC-SHA256(ts+METHOD+path+body), base64. path — вместе с query.
func (c *Client) sign(ts, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + strings.ToUpper(method) + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// request прогоняет вызов через токен-бакет и ретраи, разбирает конверт
// {code,msg,data} и возвращает data. Повторяются только сетевые и
// rate-limit ошибки, отказы биржи отдаются сразу.
func (c *Client) request(ctx context.Context, method, path string, body []byte, private bool) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := retryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, &APIError{Kind: KindNetwork, Msg: ctx.Err().Error()}
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Kind: KindNetwork, Msg: err.Error()}
		}

		data, err := c.once(ctx, method, path, body, private)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, private bool) (json.RawMessage, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if private {
		ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, path, string(body)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.demo {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Msg: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &APIError{Kind: KindRateLimited, Code: strconv.Itoa(resp.StatusCode), Msg: strings.TrimSpace(string(raw))}
	case resp.StatusCode/100 == 5:
		return nil, &APIError{Kind: KindNetwork, Code: strconv.Itoa(resp.StatusCode), Msg: strings.TrimSpace(string(raw))}
	case resp.StatusCode/100 != 2:
		return nil, &APIError{Kind: KindExchange, Code: strconv.Itoa(resp.StatusCode), Msg: strings.TrimSpace(string(raw))}
	}

	var env struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w; body=%s", err, string(raw))
	}
	if env.Code != "0" {
		// 50011/50013 — лимиты на стороне OKX при HTTP 200
		if env.Code == "50011" || env.Code == "50013" {
			return nil, &APIError{Kind: KindRateLimited, Code: env.Code, Msg: env.Msg}
		}
		// отказ ордера приходит с общим code!=0, причина лежит в data[0].sCode
		var rows []struct {
			SCode string `json:"sCode"`
			SMsg  string `json:"sMsg"`
		}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &rows); err == nil && len(rows) > 0 && rows[0].SCode != "" && rows[0].SCode != "0" {
				return nil, &APIError{Kind: KindOrder, Code: rows[0].SCode, Msg: rows[0].SMsg}
			}
		}
		return nil, &APIError{Kind: KindExchange, Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}
