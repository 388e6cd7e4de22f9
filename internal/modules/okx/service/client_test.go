package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dev0xiinko/xiinko-trading-bot/internal/models"
	"github.com/dev0xiinko/xiinko-trading-bot/internal/modules/config"
)

func testClient(baseURL string, demo bool) *Client {
	cfg := &config.Config{}
	cfg.OKX.BaseURL = baseURL
	cfg.OKX.RateLimit = 1000
	cfg.OKX.RateBurst = 1000
	cfg.OKX.Demo = demo
	cfg.OKX.APIKey = "test-key"
	cfg.OKX.APISecret = "test-secret"
	cfg.OKX.Passphrase = "test-pass"
	return NewClient(cfg)
}

func recomputeSign(secret, ts, method, path, body string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(ts + method + path + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func writeEnvelope(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"code":"0","msg":"","data":` + data + `}`))
}

func TestGetCandlesReversesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// OKX отдаёт от новых к старым
		writeEnvelope(w, `[
			["3000","30","31","29","30.5","100","1","3050","1"],
			["2000","20","21","19","20.5","100","1","2050","1"],
			["1000","10","11","9","10.5","100","1","1050","1"]
		]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, false)
	candles, err := c.GetCandles(context.Background(), "BTC-USDT-SWAP", "5m", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	if candles[0].Ts.UnixMilli() != 1000 || candles[2].Ts.UnixMilli() != 3000 {
		t.Fatalf("expected oldest first, got %v .. %v", candles[0].Ts.UnixMilli(), candles[2].Ts.UnixMilli())
	}
	if candles[0].Close != 10.5 {
		t.Fatalf("expected close 10.5, got %v", candles[0].Close)
	}
	if candles[0].QuoteVolume != 1050 {
		t.Fatalf("expected quote volume 1050, got %v", candles[0].QuoteVolume)
	}
}

func TestRetryOn429ThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("Too Many Requests"))
			return
		}
		writeEnvelope(w, `[{"instId":"BTC-USDT-SWAP","last":"50000","bidPx":"49999","askPx":"50001","high24h":"51000","low24h":"49000","vol24h":"1000"}]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, false)
	ticker, err := c.GetTicker(context.Background(), "BTC-USDT-SWAP")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if ticker.Last != 50000 {
		t.Fatalf("expected last 50000, got %v", ticker.Last)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, false)
	_, err := c.GetTicker(context.Background(), "BTC-USDT-SWAP")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindRateLimited {
		t.Fatalf("expected rate_limited kind, got %v", err)
	}
	if got := calls.Load(); got != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, got)
	}
}

func TestOrderRejectIsNotRetried(t *testing.T) {
	var orderCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v5/account/set-position-mode", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[]`)
	})
	mux.HandleFunc("/api/v5/account/set-leverage", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[]`)
	})
	mux.HandleFunc("/api/v5/market/ticker", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[{"instId":"BTC-USDT-SWAP","last":"50000","bidPx":"49999","askPx":"50001","high24h":"51000","low24h":"49000","vol24h":"1000"}]`)
	})
	mux.HandleFunc("/api/v5/public/instruments", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[{"instId":"BTC-USDT-SWAP","lotSz":"1","minSz":"1","ctVal":"0.01","ctMult":"1","tickSz":"0.1","state":"live"}]`)
	})
	mux.HandleFunc("/api/v5/trade/order", func(w http.ResponseWriter, r *http.Request) {
		orderCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"1","msg":"Operation failed.","data":[{"ordId":"","clOrdId":"","sCode":"51008","sMsg":"insufficient balance"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL, false)
	_, err := c.PlaceMarketOrder(context.Background(), "BTC-USDT-SWAP", models.OrderBuy, 100, 5)
	if err == nil {
		t.Fatal("expected order rejection")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Kind != KindOrder || apiErr.Code != "51008" {
		t.Fatalf("expected order/51008, got %s/%s", apiErr.Kind, apiErr.Code)
	}
	if got := orderCalls.Load(); got != 1 {
		t.Fatalf("order reject must not be retried, got %d calls", got)
	}
}

func TestPlaceMarketOrderSignsAndSizes(t *testing.T) {
	var gotOrder map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v5/account/set-position-mode", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[]`)
	})
	mux.HandleFunc("/api/v5/account/set-leverage", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[]`)
	})
	mux.HandleFunc("/api/v5/market/ticker", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[{"instId":"BTC-USDT-SWAP","last":"50000","bidPx":"49999","askPx":"50001","high24h":"51000","low24h":"49000","vol24h":"1000"}]`)
	})
	mux.HandleFunc("/api/v5/public/instruments", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[{"instId":"BTC-USDT-SWAP","lotSz":"1","minSz":"1","ctVal":"0.01","ctMult":"1","tickSz":"0.1","state":"live"}]`)
	})
	mux.HandleFunc("/api/v5/trade/order", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts := r.Header.Get("OK-ACCESS-TIMESTAMP")
		if ts == "" {
			t.Error("missing OK-ACCESS-TIMESTAMP")
		}
		if r.Header.Get("OK-ACCESS-KEY") != "test-key" {
			t.Errorf("wrong api key %q", r.Header.Get("OK-ACCESS-KEY"))
		}
		if r.Header.Get("OK-ACCESS-PASSPHRASE") != "test-pass" {
			t.Errorf("wrong passphrase %q", r.Header.Get("OK-ACCESS-PASSPHRASE"))
		}
		want := recomputeSign("test-secret", ts, http.MethodPost, "/api/v5/trade/order", string(body))
		if got := r.Header.Get("OK-ACCESS-SIGN"); got != want {
			t.Errorf("signature mismatch: got %q want %q", got, want)
		}
		_ = json.Unmarshal(body, &gotOrder)
		writeEnvelope(w, `[{"ordId":"order-123","clOrdId":"`+gotOrder["clOrdId"]+`","sCode":"0","sMsg":""}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL, false)
	// margin 100 x5 = 500 USDT, контракт 0.01 BTC по 50000 = 500 USDT => 1 контракт
	res, err := c.PlaceMarketOrder(context.Background(), "BTC-USDT-SWAP", models.OrderBuy, 100, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "order-123" {
		t.Fatalf("expected order-123, got %s", res.OrderID)
	}
	if res.Contracts != 1 {
		t.Fatalf("expected 1 contract, got %v", res.Contracts)
	}
	if res.Simulated {
		t.Fatal("expected live order")
	}
	if gotOrder["sz"] != "1" {
		t.Fatalf("expected sz=1, got %q", gotOrder["sz"])
	}
	if gotOrder["tdMode"] != "cross" || gotOrder["ordType"] != "market" || gotOrder["side"] != "buy" {
		t.Fatalf("bad order body: %+v", gotOrder)
	}
	if gotOrder["clOrdId"] == "" {
		t.Fatal("expected client order id")
	}
}

func TestDemoModeHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-simulated-trading") != "1" {
			t.Errorf("missing demo header")
		}
		writeEnvelope(w, `[{"instId":"BTC-USDT-SWAP","last":"50000","bidPx":"1","askPx":"1","high24h":"1","low24h":"1","vol24h":"1"}]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, true)
	if !c.IsDemoMode() {
		t.Fatal("expected demo mode")
	}
	if _, err := c.GetTicker(context.Background(), "BTC-USDT-SWAP"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTopVolatileRanksBySwing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[
			{"instId":"ETH-USDT-SWAP","last":"100","high24h":"110","low24h":"100","vol24h":"1"},
			{"instId":"BTC-USDT-SWAP","last":"100","high24h":"120","low24h":"80","vol24h":"1"},
			{"instId":"DOGE-USD-SWAP","last":"100","high24h":"200","low24h":"50","vol24h":"1"},
			{"instId":"SOL-USDT-SWAP","last":"junk","high24h":"1","low24h":"1","vol24h":"1"}
		]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, false)
	got, err := c.TopVolatile(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"BTC-USDT-SWAP", "ETH-USDT-SWAP"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestGetBalanceParsesAvail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RequestURI() != "/api/v5/account/balance?ccy=USDT" {
			t.Errorf("unexpected uri %s", r.URL.RequestURI())
		}
		writeEnvelope(w, `[{"details":[{"ccy":"USDT","availBal":"123.45","cashBal":"200"}]}]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, false)
	got, err := c.GetBalance(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 123.45 {
		t.Fatalf("expected 123.45, got %v", got)
	}
}

func TestOpenPositionsNetMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[
			{"instId":"BTC-USDT-SWAP","posSide":"net","pos":"3","avgPx":"50000","upl":"12.5","lever":"5"},
			{"instId":"ETH-USDT-SWAP","posSide":"net","pos":"-2","avgPx":"3000","upl":"-1.1","lever":"10"},
			{"instId":"SOL-USDT-SWAP","posSide":"net","pos":"0","avgPx":"","upl":"","lever":""}
		]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, false)
	got, err := c.OpenPositions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 positions (zero pos skipped), got %+v", got)
	}
	if got[0].Side != models.PositionLong || got[0].Contracts != 3 || got[0].AvgPx != 50000 {
		t.Fatalf("bad long mapping: %+v", got[0])
	}
	if got[1].Side != models.PositionShort || got[1].Contracts != 2 || got[1].Leverage != 10 {
		t.Fatalf("bad short mapping: %+v", got[1])
	}
}

func TestNotConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.OKX.BaseURL = "http://127.0.0.1:1"
	c := NewClient(cfg)
	if c.IsConfigured() {
		t.Fatal("expected not configured")
	}
	if _, err := c.PlaceMarketOrder(context.Background(), "BTC-USDT-SWAP", models.OrderBuy, 100, 5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.GetBalance(context.Background(), "USDT"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestContractsSizing(t *testing.T) {
	meta := models.Instrument{InstID: "BTC-USDT-SWAP", CtVal: "0.01", LotSz: "1", MinSz: "1"}

	got, err := contractsForNotional(500, 50000, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 contract, got %v", got)
	}

	got, err = contractsForNotional(100000, 50000, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 200 {
		t.Fatalf("expected 200 contracts, got %v", got)
	}

	// ниже минимума — отказ, а не тихое округление вверх
	if _, err := contractsForNotional(450, 50000, meta); err == nil {
		t.Fatal("expected error below exchange minimum")
	}

	halfLot := models.Instrument{InstID: "X-USDT-SWAP", CtVal: "0.01", LotSz: "0.5", MinSz: "0.5"}
	got, err = contractsForNotional(525, 50000, halfLot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1.0 after lot rounding, got %v", got)
	}
}

func TestContractsForBaseRoundsUp(t *testing.T) {
	meta := models.Instrument{InstID: "BTC-USDT-SWAP", CtVal: "0.01", LotSz: "1", MinSz: "1"}
	got, err := contractsForBase(0.004, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected bump to min 1, got %v", got)
	}
	got, err = contractsForBase(0.025, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected ceil to 3, got %v", got)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		v     float64
		lotSz string
		want  string
	}{
		{1, "1", "1"},
		{12.34, "0.01", "12.34"},
		{1.0000000000000002, "0.1", "1.0"},
		{200, "1", "200"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.v, tc.lotSz); got != tc.want {
			t.Fatalf("formatSize(%v, %q): expected %q, got %q", tc.v, tc.lotSz, got, tc.want)
		}
	}
}
