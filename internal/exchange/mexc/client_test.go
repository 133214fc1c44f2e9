package mexc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

// MockRoundTripper allows us to mock HTTP responses.
type MockRoundTripper struct {
	Func func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Func(req)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newMockClient(fn func(req *http.Request) (*http.Response, error)) *Client {
	client := NewClient("test_access", "test_secret", "")
	client.http.Transport = &MockRoundTripper{Func: fn}
	return client
}

func TestClient_GetBookTicker(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v3/ticker/bookTicker" {
			t.Errorf("Unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("symbol") != "ETHUSDC" {
			t.Errorf("Unexpected symbol: %s", req.URL.Query().Get("symbol"))
		}
		return jsonResponse(`{"symbol":"ETHUSDC","bidPrice":"4319.98","bidQty":"1.2","askPrice":"4320.02","askQty":"0.8"}`), nil
	})

	ticker, err := client.GetBookTicker(context.Background(), "ETHUSDC")
	if err != nil {
		t.Fatalf("GetBookTicker failed: %v", err)
	}
	if ticker.BidPrice != 4319.98 || ticker.AskPrice != 4320.02 {
		t.Errorf("Unexpected prices: bid=%v ask=%v", ticker.BidPrice, ticker.AskPrice)
	}
	if ticker.Mid() != 4320.0 {
		t.Errorf("Expected mid 4320.0, got %v", ticker.Mid())
	}
}

func TestClient_PlaceOrder_Signed(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v3/order" {
			t.Errorf("Unexpected path: %s", req.URL.Path)
		}
		if req.Method != "POST" {
			t.Errorf("Unexpected method: %s", req.Method)
		}
		if req.Header.Get("X-MEXC-APIKEY") != "test_access" {
			t.Errorf("Missing API key header")
		}
		q := req.URL.Query()
		if q.Get("signature") == "" {
			t.Error("signature should not be empty")
		}
		if q.Get("timestamp") == "" {
			t.Error("timestamp should not be empty")
		}
		if q.Get("quantity") != "0.01" {
			t.Errorf("Unexpected quantity: %s", q.Get("quantity"))
		}
		if q.Get("price") != "4314.3" {
			t.Errorf("Unexpected price: %s", q.Get("price"))
		}
		return jsonResponse(`{"symbol":"ETHUSDC","orderId":"12345","transactTime":1700000000000}`), nil
	})

	order, err := client.PlaceOrder(context.Background(), "ETHUSDC", domain.SideBuy, domain.TypeLimit, 0.01, 4314.30, "hh-b-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if order.ID != "12345" {
		t.Errorf("Expected order id 12345, got %s", order.ID)
	}
	if order.Status != domain.StatusNew {
		t.Errorf("Expected NEW status backfilled, got %s", order.Status)
	}
	if order.Price != 4314.30 || order.Qty != 0.01 {
		t.Errorf("Expected request fields backfilled, got price=%v qty=%v", order.Price, order.Qty)
	}
}

func TestClient_GetOpenOrders(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v3/openOrders" {
			t.Errorf("Unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(`[
			{"orderId":"1","clientOrderId":"hh-b-1","symbol":"ETHUSDC","side":"BUY","type":"LIMIT","price":"4314.30","origQty":"0.01","executedQty":"0","status":"NEW","time":1700000000000,"updateTime":1700000000000},
			{"orderId":"2","clientOrderId":"hh-s-1","symbol":"ETHUSDC","side":"SELL","type":"LIMIT","price":"4325.70","origQty":"0.01","executedQty":"0.005","status":"PARTIALLY_FILLED","time":1700000001000,"updateTime":1700000002000}
		]`), nil
	})

	orders, err := client.GetOpenOrders(context.Background(), "ETHUSDC")
	if err != nil {
		t.Fatalf("GetOpenOrders failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(orders))
	}
	if orders[1].RemainingQty() != 0.005 {
		t.Errorf("Expected remaining 0.005, got %v", orders[1].RemainingQty())
	}
}

func TestClient_GetMyTrades(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(`[
			{"id":"t1","orderId":"1","price":"4314.30","qty":"0.01","isBuyer":true,"time":1700000000000},
			{"id":"t2","orderId":"2","price":"4325.70","qty":"0.01","isBuyer":false,"time":1700000001000}
		]`), nil
	})

	fills, err := client.GetMyTrades(context.Background(), "ETHUSDC", 10)
	if err != nil {
		t.Fatalf("GetMyTrades failed: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("Expected 2 fills, got %d", len(fills))
	}
	if fills[0].Side != domain.SideBuy || fills[1].Side != domain.SideSell {
		t.Errorf("Side mapping wrong: %s / %s", fills[0].Side, fills[1].Side)
	}
}

func TestClient_ErrorResponse(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		resp := jsonResponse(`{"code":700002,"msg":"Signature for this request is not valid."}`)
		resp.StatusCode = 400
		return resp, nil
	})

	_, err := client.GetAccountInfo(context.Background())
	if err == nil {
		t.Fatal("Expected error for HTTP 400")
	}
}

func TestClient_GetExchangeInfo_Filters(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(`{"symbols":[{
			"symbol":"ETHUSDC","baseAsset":"ETH","quoteAsset":"USDC",
			"filters":[
				{"filterType":"PRICE_FILTER","tickSize":"0.01","maxPrice":"1000000"},
				{"filterType":"LOT_SIZE","stepSize":"0.0001","maxQty":"9000"},
				{"filterType":"MIN_NOTIONAL","minNotional":"1"}
			]}]}`), nil
	})

	insts, err := client.GetExchangeInfo(context.Background(), "ETHUSDC")
	if err != nil {
		t.Fatalf("GetExchangeInfo failed: %v", err)
	}
	if len(insts) != 1 {
		t.Fatalf("Expected 1 instrument, got %d", len(insts))
	}
	inst := insts[0]
	if inst.TickSize != 0.01 || inst.StepSize != 0.0001 || inst.MinNotional != 1 {
		t.Errorf("Filter parsing wrong: %+v", inst)
	}
}

func TestClient_GetExchangeInfo_PrecisionFallback(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(`{"symbols":[{
			"symbol":"ETHUSDC","baseAsset":"ETH","quoteAsset":"USDC",
			"quotePrecision":2,"baseAssetPrecision":4,"quoteAmountPrecision":"1",
			"filters":[]}]}`), nil
	})

	insts, err := client.GetExchangeInfo(context.Background(), "ETHUSDC")
	if err != nil {
		t.Fatalf("GetExchangeInfo failed: %v", err)
	}
	inst := insts[0]
	if inst.TickSize != 0.01 {
		t.Errorf("Expected tick 0.01 from quotePrecision, got %v", inst.TickSize)
	}
	if inst.StepSize != 0.0001 {
		t.Errorf("Expected step 0.0001 from baseAssetPrecision, got %v", inst.StepSize)
	}
}
