package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	GateBaseURL = "https://api.gateio.ws"
	GateWSURL   = "wss://api.gateio.ws/ws/v4/"

	apiPrefix = "/api/v4"
)

// GateAdapter talks to the Gate.io v4 spot API. Client order ids are
// passed in the "text" field and must carry the t- prefix enforced by
// domain.NewClientOrderID.
type GateAdapter struct {
	apiKey    string
	apiSecret string
	baseURL   string
	wsURL     string
	client    *http.Client
	wsConn    *websocket.Conn
	wsDone    chan struct{}
	callbacks []func(symbol string, price float64)
	rules     map[string]domain.PairRules
	mu        sync.Mutex
}

func NewGateAdapter(apiKey, apiSecret, baseURL, wsURL string, timeout time.Duration) *GateAdapter {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &GateAdapter{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		wsURL:     wsURL,
		client:    &http.Client{Timeout: timeout},
		wsDone:    make(chan struct{}),
		rules:     make(map[string]domain.PairRules),
	}
}

// --- REST API ---

func (g *GateAdapter) sign(method, path, query, body string, timestamp int64) string {
	bodyHash := sha512.Sum512([]byte(body))
	payload := fmt.Sprintf("%s\n%s\n%s\n%s\n%d",
		method, path, query, hex.EncodeToString(bodyHash[:]), timestamp)
	h := hmac.New(sha512.New, []byte(g.apiSecret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func (g *GateAdapter) sendRequest(ctx context.Context, method, path string, query url.Values, payload interface{}, auth bool) ([]byte, error) {
	var body []byte
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = jsonBody
	}

	queryStr := query.Encode()
	fullURL := g.baseURL + path
	if queryStr != "" {
		fullURL += "?" + queryStr
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if auth {
		timestamp := time.Now().Unix()
		signature := g.sign(method, path, queryStr, string(body), timestamp)
		req.Header.Set("KEY", g.apiKey)
		req.Header.Set("Timestamp", strconv.FormatInt(timestamp, 10))
		req.Header.Set("SIGN", signature)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gate api error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func (g *GateAdapter) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	query := url.Values{}
	query.Set("currency_pair", symbol)
	resp, err := g.sendRequest(ctx, "GET", apiPrefix+"/spot/tickers", query, nil, false)
	if err != nil {
		return 0, err
	}

	var result []struct {
		CurrencyPair string `json:"currency_pair"`
		Last         string `json:"last"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, fmt.Errorf("symbol %s not found", symbol)
	}

	return strconv.ParseFloat(result[0].Last, 64)
}

func (g *GateAdapter) FetchTickers(ctx context.Context) ([]domain.Ticker, error) {
	resp, err := g.sendRequest(ctx, "GET", apiPrefix+"/spot/tickers", nil, nil, false)
	if err != nil {
		return nil, err
	}

	var result []struct {
		CurrencyPair     string `json:"currency_pair"`
		Last             string `json:"last"`
		HighestBid       string `json:"highest_bid"`
		LowestAsk        string `json:"lowest_ask"`
		ChangePercentage string `json:"change_percentage"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	var tickers []domain.Ticker
	for _, t := range result {
		last, _ := strconv.ParseFloat(t.Last, 64)
		bid, _ := strconv.ParseFloat(t.HighestBid, 64)
		ask, _ := strconv.ParseFloat(t.LowestAsk, 64)
		change, _ := strconv.ParseFloat(t.ChangePercentage, 64)
		tickers = append(tickers, domain.Ticker{
			Symbol:       t.CurrencyPair,
			LastPrice:    last,
			HighestBid:   bid,
			LowestAsk:    ask,
			ChangePct24h: change,
		})
	}
	return tickers, nil
}

func (g *GateAdapter) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	query := url.Values{}
	query.Set("currency_pair", symbol)
	query.Set("interval", timeframe)
	query.Set("limit", strconv.Itoa(limit))

	resp, err := g.sendRequest(ctx, "GET", apiPrefix+"/spot/candlesticks", query, nil, false)
	if err != nil {
		return nil, err
	}

	// Format per row: [ts, quote_volume, close, high, low, open, base_volume, closed]
	var result [][]string
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	var candles []domain.Candle
	for _, raw := range result {
		if len(raw) < 7 {
			continue
		}
		ts, _ := strconv.ParseInt(raw[0], 10, 64)
		closePrice, _ := strconv.ParseFloat(raw[2], 64)
		high, _ := strconv.ParseFloat(raw[3], 64)
		low, _ := strconv.ParseFloat(raw[4], 64)
		open, _ := strconv.ParseFloat(raw[5], 64)
		volume, _ := strconv.ParseFloat(raw[6], 64)

		candles = append(candles, domain.Candle{
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	// Indicators expect chronological order (oldest first).
	if len(candles) > 1 && candles[0].Time > candles[len(candles)-1].Time {
		for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
			candles[i], candles[j] = candles[j], candles[i]
		}
	}

	return candles, nil
}

func (g *GateAdapter) PlaceLimitOrder(ctx context.Context, symbol, side string, amount, price float64, clientID string) (string, error) {
	rules, err := g.pairRules(ctx, symbol)
	if err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"text":          clientID,
		"currency_pair": symbol,
		"type":          "limit",
		"account":       "spot",
		"side":          side,
		"amount":        strconv.FormatFloat(amount, 'f', rules.AmountPrecision, 64),
		"price":         strconv.FormatFloat(price, 'f', rules.PricePrecision, 64),
		"time_in_force": "gtc",
	}

	resp, err := g.sendRequest(ctx, "POST", apiPrefix+"/spot/orders", nil, payload, true)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (g *GateAdapter) PlaceMarketOrder(ctx context.Context, symbol, side string, amount float64, clientID string) (string, error) {
	rules, err := g.pairRules(ctx, symbol)
	if err != nil {
		return "", err
	}

	// Gate expects market sell amounts in base currency and market buy
	// amounts in quote currency.
	amountStr := strconv.FormatFloat(amount, 'f', rules.AmountPrecision, 64)
	if side == domain.SideBuy {
		amountStr = strconv.FormatFloat(amount, 'f', rules.PricePrecision, 64)
	}

	payload := map[string]interface{}{
		"text":          clientID,
		"currency_pair": symbol,
		"type":          "market",
		"account":       "spot",
		"side":          side,
		"amount":        amountStr,
		"time_in_force": "ioc",
	}

	resp, err := g.sendRequest(ctx, "POST", apiPrefix+"/spot/orders", nil, payload, true)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (g *GateAdapter) FetchRecentOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.OrderReport, error) {
	query := url.Values{}
	query.Set("currency_pair", symbol)
	query.Set("status", "finished")
	query.Set("limit", strconv.Itoa(limit))
	if !since.IsZero() {
		query.Set("from", strconv.FormatInt(since.Unix(), 10))
	}

	resp, err := g.sendRequest(ctx, "GET", apiPrefix+"/spot/orders", query, nil, true)
	if err != nil {
		return nil, err
	}

	var result []struct {
		Text         string `json:"text"`
		Side         string `json:"side"`
		Status       string `json:"status"`
		Amount       string `json:"amount"`
		Left         string `json:"left"`
		AvgDealPrice string `json:"avg_deal_price"`
		UpdateTime   string `json:"update_time"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	var reports []domain.OrderReport
	for _, o := range result {
		amount, _ := strconv.ParseFloat(o.Amount, 64)
		left, _ := strconv.ParseFloat(o.Left, 64)
		price, _ := strconv.ParseFloat(o.AvgDealPrice, 64)
		finished, _ := strconv.ParseInt(o.UpdateTime, 10, 64)

		status := domain.OrderStatusOpen
		switch o.Status {
		case "closed":
			status = domain.OrderStatusFilled
		case "cancelled":
			status = domain.OrderStatusCancelled
		}

		reports = append(reports, domain.OrderReport{
			ClientID:     o.Text,
			Side:         o.Side,
			Status:       status,
			FilledQty:    amount - left,
			AvgFillPrice: price,
			FinishedAt:   finished,
		})
	}

	// Gate returns newest first; reconciliation applies fills in
	// chronological order.
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].FinishedAt < reports[j].FinishedAt
	})

	return reports, nil
}

func (g *GateAdapter) CancelOrder(ctx context.Context, symbol, clientID string) error {
	query := url.Values{}
	query.Set("currency_pair", symbol)

	// Gate accepts the t- client text in place of the numeric order id.
	_, err := g.sendRequest(ctx, "DELETE", apiPrefix+"/spot/orders/"+clientID, query, nil, true)
	return err
}

// --- Pair metadata ---

func (g *GateAdapter) pairRules(ctx context.Context, symbol string) (domain.PairRules, error) {
	g.mu.Lock()
	cached, ok := g.rules[symbol]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := g.sendRequest(ctx, "GET", apiPrefix+"/spot/currency_pairs/"+symbol, nil, nil, false)
	if err != nil {
		return domain.PairRules{}, err
	}

	var result struct {
		ID              string `json:"id"`
		MinBaseAmount   string `json:"min_base_amount"`
		MinQuoteAmount  string `json:"min_quote_amount"`
		AmountPrecision int    `json:"amount_precision"`
		Precision       int    `json:"precision"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return domain.PairRules{}, err
	}

	minAmount, _ := strconv.ParseFloat(result.MinBaseAmount, 64)
	minNotional, _ := strconv.ParseFloat(result.MinQuoteAmount, 64)

	rules := domain.PairRules{
		Symbol:          symbol,
		PricePrecision:  result.Precision,
		AmountPrecision: result.AmountPrecision,
		MinNotionalUSD:  minNotional,
		MinAmount:       minAmount,
	}

	g.mu.Lock()
	g.rules[symbol] = rules
	g.mu.Unlock()

	return rules, nil
}

func (g *GateAdapter) RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error) {
	rules, err := g.pairRules(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return truncateTo(amount, rules.AmountPrecision), nil
}

func (g *GateAdapter) RoundPrice(ctx context.Context, symbol string, price float64) (float64, error) {
	rules, err := g.pairRules(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return truncateTo(price, rules.PricePrecision), nil
}

func (g *GateAdapter) MinNotional(ctx context.Context, symbol string) (float64, error) {
	rules, err := g.pairRules(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return rules.MinNotionalUSD, nil
}

func (g *GateAdapter) MinAmount(ctx context.Context, symbol string) (float64, error) {
	rules, err := g.pairRules(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return rules.MinAmount, nil
}

// truncateTo cuts value down to the given number of decimals. Truncation
// rather than rounding keeps order amounts within the available balance.
func truncateTo(value float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Trunc(value*p) / p
}

// --- WebSocket ---

func (g *GateAdapter) OnPriceUpdate(callback func(symbol string, price float64)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = append(g.callbacks, callback)
}

func (g *GateAdapter) SubscribeTickers(symbols []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.wsConn == nil {
		c, _, err := websocket.DefaultDialer.Dial(g.wsURL, nil)
		if err != nil {
			return err
		}
		g.wsConn = c
		go g.readLoop()
	}

	return g.subscribe(symbols)
}

func (g *GateAdapter) subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	subMsg := map[string]interface{}{
		"time":    time.Now().Unix(),
		"channel": "spot.tickers",
		"event":   "subscribe",
		"payload": symbols,
	}
	return g.wsConn.WriteJSON(subMsg)
}

func (g *GateAdapter) readLoop() {
	defer func() {
		g.wsConn.Close()
		g.mu.Lock()
		g.wsConn = nil
		g.mu.Unlock()
	}()

	for {
		_, message, err := g.wsConn.ReadMessage()
		if err != nil {
			log.Println("WS Read error:", err)
			close(g.wsDone)
			return
		}

		var event struct {
			Channel string          `json:"channel"`
			Event   string          `json:"event"`
			Result  json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			log.Println("WS Unmarshal error:", err)
			continue
		}

		if event.Channel != "spot.tickers" || event.Event != "update" {
			continue
		}

		var ticker struct {
			CurrencyPair string `json:"currency_pair"`
			Last         string `json:"last"`
		}
		if err := json.Unmarshal(event.Result, &ticker); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(ticker.Last, 64)
		if err != nil || price <= 0 {
			continue
		}

		g.mu.Lock()
		callbacks := make([]func(string, float64), len(g.callbacks))
		copy(callbacks, g.callbacks)
		g.mu.Unlock()

		for _, cb := range callbacks {
			cb(ticker.CurrencyPair, price)
		}
	}
}
