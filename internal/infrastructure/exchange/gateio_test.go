package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pairRulesJSON = `{
	"id": "BTC_USDT",
	"base": "BTC",
	"quote": "USDT",
	"min_base_amount": "0.0001",
	"min_quote_amount": "3",
	"amount_precision": 4,
	"precision": 2
}`

func newTestAdapter(t *testing.T, handler http.Handler) *GateAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGateAdapter("test-key", "test-secret", server.URL, "", 5*time.Second)
}

func TestSignComponentsChangeSignature(t *testing.T) {
	g := NewGateAdapter("key", "secret", GateBaseURL, GateWSURL, 0)

	base := g.sign("GET", "/api/v4/spot/orders", "currency_pair=BTC_USDT", "", 1700000000)
	assert.Len(t, base, 128, "HMAC-SHA512 hex must be 128 chars")
	assert.Equal(t, base, g.sign("GET", "/api/v4/spot/orders", "currency_pair=BTC_USDT", "", 1700000000))

	assert.NotEqual(t, base, g.sign("POST", "/api/v4/spot/orders", "currency_pair=BTC_USDT", "", 1700000000))
	assert.NotEqual(t, base, g.sign("GET", "/api/v4/spot/tickers", "currency_pair=BTC_USDT", "", 1700000000))
	assert.NotEqual(t, base, g.sign("GET", "/api/v4/spot/orders", "", "", 1700000000))
	assert.NotEqual(t, base, g.sign("GET", "/api/v4/spot/orders", "currency_pair=BTC_USDT", `{"a":1}`, 1700000000))
	assert.NotEqual(t, base, g.sign("GET", "/api/v4/spot/orders", "currency_pair=BTC_USDT", "", 1700000001))

	other := NewGateAdapter("key", "other-secret", GateBaseURL, GateWSURL, 0)
	assert.NotEqual(t, base, other.sign("GET", "/api/v4/spot/orders", "currency_pair=BTC_USDT", "", 1700000000))
}

func TestFetchPrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/spot/tickers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC_USDT", r.URL.Query().Get("currency_pair"))
		w.Write([]byte(`[{"currency_pair":"BTC_USDT","last":"35123.4"}]`))
	})

	g := newTestAdapter(t, mux)
	price, err := g.FetchPrice(context.Background(), "BTC_USDT")
	require.NoError(t, err)
	assert.Equal(t, 35123.4, price)
}

func TestFetchCandlesReversesToChronological(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/spot/candlesticks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		// Newest first, as some endpoints deliver.
		w.Write([]byte(`[
			["1700000900","2000","35100","35200","35000","35050","0.06","true"],
			["1700000000","1000","35000","35100","34900","34950","0.05","true"]
		]`))
	})

	g := newTestAdapter(t, mux)
	candles, err := g.FetchCandles(context.Background(), "BTC_USDT", "15m", 200)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, int64(1700000000), candles[0].Time)
	assert.Equal(t, 35000.0, candles[0].Close)
	assert.Equal(t, 34950.0, candles[0].Open)
	assert.Equal(t, 0.05, candles[0].Volume)
	assert.Equal(t, int64(1700000900), candles[1].Time)
	assert.Equal(t, 35100.0, candles[1].Close)
}

func TestPlaceLimitOrderPayload(t *testing.T) {
	var got map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/spot/currency_pairs/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pairRulesJSON))
	})
	mux.HandleFunc("POST /api/v4/spot/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("KEY"))
		assert.NotEmpty(t, r.Header.Get("Timestamp"))
		assert.Len(t, r.Header.Get("SIGN"), 128)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"123456","status":"open"}`))
	})

	g := newTestAdapter(t, mux)
	id, err := g.PlaceLimitOrder(context.Background(), "BTC_USDT", domain.SideBuy, 0.05, 35000.5, "t-buy-abc1234567")
	require.NoError(t, err)
	assert.Equal(t, "123456", id)

	assert.Equal(t, "t-buy-abc1234567", got["text"])
	assert.Equal(t, "BTC_USDT", got["currency_pair"])
	assert.Equal(t, "limit", got["type"])
	assert.Equal(t, "spot", got["account"])
	assert.Equal(t, "buy", got["side"])
	assert.Equal(t, "0.0500", got["amount"])
	assert.Equal(t, "35000.50", got["price"])
	assert.Equal(t, "gtc", got["time_in_force"])
}

func TestPlaceMarketOrderPayload(t *testing.T) {
	var got map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/spot/currency_pairs/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pairRulesJSON))
	})
	mux.HandleFunc("POST /api/v4/spot/orders", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"789"}`))
	})

	g := newTestAdapter(t, mux)
	id, err := g.PlaceMarketOrder(context.Background(), "BTC_USDT", domain.SideSell, 0.1234567, "t-stop-abc1234567")
	require.NoError(t, err)
	assert.Equal(t, "789", id)

	assert.Equal(t, "market", got["type"])
	assert.Equal(t, "sell", got["side"])
	assert.Equal(t, "0.1235", got["amount"])
	assert.Equal(t, "ioc", got["time_in_force"])
	assert.Empty(t, got["price"])
}

func TestFetchRecentOrdersNormalizesAndSorts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/spot/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "finished", r.URL.Query().Get("status"))
		assert.Equal(t, "1700000000", r.URL.Query().Get("from"))
		assert.NotEmpty(t, r.Header.Get("SIGN"))
		// Newest first, mixed statuses, one partial fill.
		w.Write([]byte(`[
			{"text":"t-tp-ccc","side":"sell","status":"cancelled","amount":"0.05","left":"0.05","avg_deal_price":"0","update_time":"1700000900"},
			{"text":"t-tp-bbb","side":"sell","status":"closed","amount":"0.05","left":"0","avg_deal_price":"36000","update_time":"1700000700"},
			{"text":"t-buy-aaa","side":"buy","status":"closed","amount":"0.05","left":"0.01","avg_deal_price":"35000","update_time":"1700000100"}
		]`))
	})

	g := newTestAdapter(t, mux)
	since := time.Unix(1700000000, 0)
	reports, err := g.FetchRecentOrders(context.Background(), "BTC_USDT", since, 100)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "t-buy-aaa", reports[0].ClientID)
	assert.Equal(t, domain.OrderStatusFilled, reports[0].Status)
	assert.InDelta(t, 0.04, reports[0].FilledQty, 1e-9)
	assert.Equal(t, 35000.0, reports[0].AvgFillPrice)

	assert.Equal(t, "t-tp-bbb", reports[1].ClientID)
	assert.Equal(t, domain.OrderStatusFilled, reports[1].Status)
	assert.Equal(t, 0.05, reports[1].FilledQty)

	assert.Equal(t, "t-tp-ccc", reports[2].ClientID)
	assert.Equal(t, domain.OrderStatusCancelled, reports[2].Status)
}

func TestCancelOrderUsesClientText(t *testing.T) {
	var gotPath, gotMethod string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/spot/orders/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		assert.Equal(t, "BTC_USDT", r.URL.Query().Get("currency_pair"))
		w.Write([]byte(`{"id":"123456","status":"cancelled"}`))
	})

	g := newTestAdapter(t, mux)
	err := g.CancelOrder(context.Background(), "BTC_USDT", "t-buy-abc1234567")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/v4/spot/orders/t-buy-abc1234567", gotPath)
}

func TestPairRulesCached(t *testing.T) {
	var hits int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/spot/currency_pairs/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(pairRulesJSON))
	})

	g := newTestAdapter(t, mux)
	ctx := context.Background()

	amount, err := g.RoundAmount(ctx, "BTC_USDT", 0.123456789)
	require.NoError(t, err)
	assert.Equal(t, 0.1234, amount)

	price, err := g.RoundPrice(ctx, "BTC_USDT", 35000.567)
	require.NoError(t, err)
	assert.Equal(t, 35000.56, price)

	minNotional, err := g.MinNotional(ctx, "BTC_USDT")
	require.NoError(t, err)
	assert.Equal(t, 3.0, minNotional)

	minAmount, err := g.MinAmount(ctx, "BTC_USDT")
	require.NoError(t, err)
	assert.Equal(t, 0.0001, minAmount)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestTruncateTo(t *testing.T) {
	assert.Equal(t, 0.1234, truncateTo(0.123456, 4))
	assert.Equal(t, 0.99, truncateTo(0.99999, 2))
	assert.Equal(t, 35000.0, truncateTo(35000.567, 0))
}

func TestAPIErrorIncludesBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/spot/tickers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"label":"INVALID_CURRENCY_PAIR","message":"invalid currency pair"}`))
	})

	g := newTestAdapter(t, mux)
	_, err := g.FetchPrice(context.Background(), "NOPE_USDT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_CURRENCY_PAIR")
}
