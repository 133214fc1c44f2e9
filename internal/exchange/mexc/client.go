package mexc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

const (
	defaultBaseURL = "https://api.mexc.com"
	recvWindowMs   = 5000
)

// Client is the MEXC spot REST client. Public endpoints go out unsigned;
// account and order endpoints carry an HMAC signature over the query string.
type Client struct {
	baseURL string
	signer  *Signer
	http    *http.Client
}

// NewClient creates a client with the given credentials. baseURL may be
// empty to use the production endpoint.
func NewClient(apiKey, secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  NewSigner(apiKey, secretKey),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Close wipes the credentials.
func (c *Client) Close() {
	c.signer.Wipe()
}

func (c *Client) GetBookTicker(ctx context.Context, symbol string) (domain.BookTicker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.public(ctx, http.MethodGet, "/api/v3/ticker/bookTicker", params)
	if err != nil {
		return domain.BookTicker{}, err
	}

	res := gjson.ParseBytes(body)
	t := domain.BookTicker{
		Symbol:   symbol,
		BidPrice: res.Get("bidPrice").Float(),
		BidQty:   res.Get("bidQty").Float(),
		AskPrice: res.Get("askPrice").Float(),
		AskQty:   res.Get("askQty").Float(),
		TsUnixMs: time.Now().UnixMilli(),
	}
	if t.BidPrice <= 0 || t.AskPrice <= 0 {
		return domain.BookTicker{}, fmt.Errorf("empty book ticker for %s", symbol)
	}
	return t, nil
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.public(ctx, http.MethodGet, "/api/v3/ticker/price", params)
	if err != nil {
		return 0, err
	}

	price := gjson.GetBytes(body, "price").Float()
	if price <= 0 {
		return 0, fmt.Errorf("invalid price for %s: %s", symbol, body)
	}
	return price, nil
}

func (c *Client) GetMyTrades(ctx context.Context, symbol string, limit int) ([]domain.Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.signed(ctx, http.MethodGet, "/api/v3/myTrades", params)
	if err != nil {
		return nil, err
	}

	var fills []domain.Fill
	gjson.ParseBytes(body).ForEach(func(_, item gjson.Result) bool {
		side := domain.SideSell
		if item.Get("isBuyer").Bool() {
			side = domain.SideBuy
		}
		fills = append(fills, domain.Fill{
			TradeID:       item.Get("id").String(),
			OrderID:       item.Get("orderId").String(),
			ClientOrderID: item.Get("clientOrderId").String(),
			Symbol:        symbol,
			Side:          side,
			Price:         item.Get("price").Float(),
			Qty:           item.Get("qty").Float(),
			TsUnixMs:      item.Get("time").Int(),
		})
		return true
	})
	return fills, nil
}

func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.signed(ctx, http.MethodGet, "/api/v3/openOrders", params)
	if err != nil {
		return nil, err
	}

	var orders []domain.Order
	gjson.ParseBytes(body).ForEach(func(_, item gjson.Result) bool {
		orders = append(orders, parseOrder(item))
		return true
	})
	return orders, nil
}

func (c *Client) PlaceOrder(ctx context.Context, symbol, side, orderType string, qty, price float64, clientOrderID string) (domain.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", orderType)
	params.Set("quantity", formatFloat(qty))
	if orderType == domain.TypeLimit {
		params.Set("price", formatFloat(price))
	}
	if clientOrderID != "" {
		params.Set("newClientOrderId", clientOrderID)
	}

	body, err := c.signed(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return domain.Order{}, err
	}

	o := parseOrder(gjson.ParseBytes(body))
	if o.ID == "" {
		return domain.Order{}, fmt.Errorf("place order: no order id in response: %s", body)
	}
	// The ack may omit fields the request carried.
	if o.Symbol == "" {
		o.Symbol = symbol
	}
	if o.Side == "" {
		o.Side = side
	}
	if o.Type == "" {
		o.Type = orderType
	}
	if o.Price == 0 {
		o.Price = price
	}
	if o.Qty == 0 {
		o.Qty = qty
	}
	if o.Status == "" {
		o.Status = domain.StatusNew
	}
	return o, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID, clientOrderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	if orderID != "" {
		params.Set("orderId", orderID)
	} else if clientOrderID != "" {
		params.Set("origClientOrderId", clientOrderID)
	} else {
		return fmt.Errorf("cancel order: no order id given")
	}

	_, err := c.signed(ctx, http.MethodDelete, "/api/v3/order", params)
	return err
}

func (c *Client) GetAccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	body, err := c.signed(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return domain.AccountInfo{}, err
	}

	res := gjson.ParseBytes(body)
	info := domain.AccountInfo{CanTrade: res.Get("canTrade").Bool()}
	res.Get("balances").ForEach(func(_, item gjson.Result) bool {
		info.Balances = append(info.Balances, domain.Balance{
			Asset:  item.Get("asset").String(),
			Free:   item.Get("free").Float(),
			Locked: item.Get("locked").Float(),
		})
		return true
	})
	return info, nil
}

func (c *Client) GetExchangeInfo(ctx context.Context, symbol string) ([]domain.Instrument, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	body, err := c.public(ctx, http.MethodGet, "/api/v3/exchangeInfo", params)
	if err != nil {
		return nil, err
	}

	var insts []domain.Instrument
	gjson.GetBytes(body, "symbols").ForEach(func(_, item gjson.Result) bool {
		insts = append(insts, parseInstrument(item))
		return true
	})
	if symbol != "" && len(insts) == 0 {
		return nil, fmt.Errorf("symbol %s not in exchange info", symbol)
	}
	return insts, nil
}

// public performs an unsigned request.
func (c *Client) public(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, method, path, params.Encode(), false)
}

// signed appends timestamp/recvWindow, signs the query string, and performs
// the request with the API key header.
func (c *Client) signed(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.Itoa(recvWindowMs))

	query := params.Encode()
	query += "&signature=" + c.signer.Sign(query)
	return c.do(ctx, method, path, query, true)
}

func (c *Client) do(ctx context.Context, method, path, query string, auth bool) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != "" {
		reqURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if auth {
		req.Header.Set("X-MEXC-APIKEY", c.signer.APIKey())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		code := gjson.GetBytes(body, "code").Int()
		msg := gjson.GetBytes(body, "msg").String()
		slog.Warn("exchange request rejected",
			slog.String("path", path),
			slog.Int("http", resp.StatusCode),
			slog.Int64("code", code),
			slog.String("msg", msg))
		return nil, fmt.Errorf("%s %s: http %d code %d: %s", method, path, resp.StatusCode, code, msg)
	}
	return body, nil
}

func parseOrder(res gjson.Result) domain.Order {
	o := domain.Order{
		ID:            res.Get("orderId").String(),
		ClientOrderID: res.Get("clientOrderId").String(),
		Symbol:        res.Get("symbol").String(),
		Side:          res.Get("side").String(),
		Type:          res.Get("type").String(),
		Price:         res.Get("price").Float(),
		Qty:           res.Get("origQty").Float(),
		FilledQty:     res.Get("executedQty").Float(),
		Status:        res.Get("status").String(),
		CreatedUnixMs: res.Get("time").Int(),
		UpdatedUnixMs: res.Get("updateTime").Int(),
	}
	if o.ClientOrderID == "" {
		o.ClientOrderID = res.Get("origClientOrderId").String()
	}
	if o.CreatedUnixMs == 0 {
		o.CreatedUnixMs = res.Get("transactTime").Int()
	}
	if o.UpdatedUnixMs == 0 {
		o.UpdatedUnixMs = o.CreatedUnixMs
	}
	return o
}

// parseInstrument maps an exchangeInfo symbol entry to trading rules.
// Filters win when present; otherwise tick and step derive from the
// precision fields.
func parseInstrument(res gjson.Result) domain.Instrument {
	inst := domain.Instrument{
		Symbol:     res.Get("symbol").String(),
		BaseAsset:  res.Get("baseAsset").String(),
		QuoteAsset: res.Get("quoteAsset").String(),
	}

	res.Get("filters").ForEach(func(_, f gjson.Result) bool {
		switch f.Get("filterType").String() {
		case "PRICE_FILTER":
			inst.TickSize = f.Get("tickSize").Float()
			inst.MaxPrice = f.Get("maxPrice").Float()
		case "LOT_SIZE":
			inst.StepSize = f.Get("stepSize").Float()
			inst.MaxQty = f.Get("maxQty").Float()
		case "MIN_NOTIONAL", "NOTIONAL":
			inst.MinNotional = f.Get("minNotional").Float()
		}
		return true
	})

	if inst.TickSize == 0 {
		if p := res.Get("quotePrecision").Int(); p > 0 {
			inst.TickSize = math.Pow10(-int(p))
		}
	}
	if inst.StepSize == 0 {
		if p := res.Get("baseAssetPrecision").Int(); p > 0 {
			inst.StepSize = math.Pow10(-int(p))
		}
	}
	if inst.MinNotional == 0 {
		inst.MinNotional = res.Get("quoteAmountPrecision").Float()
	}
	return inst
}

// formatFloat renders a price or quantity without exponent notation.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
