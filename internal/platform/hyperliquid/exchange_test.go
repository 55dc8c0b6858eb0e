package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hlcopy/hlcopybot/internal/domain"
)

// well-known throwaway key, never funded
const testKeyHex = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

// exchangeHandler serves enough of the info and exchange endpoints to place
// one order: meta, allMids, and two exchange actions (updateLeverage, order).
type exchangeHandler struct {
	t              *testing.T
	leverageStatus int
	exchangeCalls  atomic.Int64
	lastOrder      map[string]any
}

func (h *exchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/info":
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		switch payload["type"] {
		case "meta":
			_, _ = w.Write([]byte(`{"universe": [
				{"name": "BTC", "szDecimals": 5, "maxLeverage": 50},
				{"name": "ETH", "szDecimals": 4, "maxLeverage": 50}
			]}`))
		case "allMids":
			_, _ = w.Write([]byte(`{"BTC": "50000", "ETH": "2500"}`))
		default:
			h.t.Errorf("unexpected info type %q", payload["type"])
		}
	case "/exchange":
		n := h.exchangeCalls.Add(1)
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		action, _ := req["action"].(map[string]any)

		if n == 1 {
			// updateLeverage comes first
			if action["type"] != "updateLeverage" {
				h.t.Errorf("expected updateLeverage first, got %v", action["type"])
			}
			if h.leverageStatus != 0 {
				w.WriteHeader(h.leverageStatus)
				return
			}
			_, _ = w.Write([]byte(`{"status": "ok", "response": {"type": "default", "data": {"statuses": []}}}`))
			return
		}

		if action["type"] != "order" {
			h.t.Errorf("expected order action, got %v", action["type"])
		}
		h.lastOrder = action
		_, _ = w.Write([]byte(`{"status": "ok", "response": {"type": "order",
			"data": {"statuses": [{"filled": {"oid": 77, "totalSz": "0.01", "avgPx": "50001"}}]}}}`))
	default:
		h.t.Errorf("unexpected path %s", r.URL.Path)
	}
}

func newExchangeClient(t *testing.T, handler *exchangeHandler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, 5*time.Second, testLogger())
	if err := client.SetPrivateKey(testKeyHex); err != nil {
		t.Fatalf("SetPrivateKey: %v", err)
	}
	return client
}

func TestSubmitPlacesIOCOrder(t *testing.T) {
	handler := &exchangeHandler{t: t}
	client := newExchangeClient(t, handler)

	res, err := client.Submit(context.Background(), domain.OrderRequest{
		Coin:        "BTC",
		Side:        domain.SideLong,
		NotionalUSD: 500,
		Leverage:    10,
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if res.OrderID != "77" {
		t.Fatalf("unexpected order id %q", res.OrderID)
	}
	if res.FilledSize != 0.01 || res.AvgPrice != 50001 {
		t.Fatalf("unexpected fill: %+v", res)
	}
	if !strings.HasPrefix(res.ClientOrder, "0x") || len(res.ClientOrder) != 34 {
		t.Fatalf("unexpected cloid %q", res.ClientOrder)
	}

	orders, _ := handler.lastOrder["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("expected one order wire, got %v", handler.lastOrder)
	}
	wire, _ := orders[0].(map[string]any)
	if wire["b"] != true {
		t.Fatalf("LONG must map to buy, got %v", wire["b"])
	}
	// 500 USD at mid 50000 with szDecimals 5
	if wire["s"] != "0.01" {
		t.Fatalf("unexpected size %v", wire["s"])
	}
	if tif, _ := wire["t"].(map[string]any); tif != nil {
		limit, _ := tif["limit"].(map[string]any)
		if limit["tif"] != "Ioc" {
			t.Fatalf("expected Ioc tif, got %v", limit["tif"])
		}
	} else {
		t.Fatalf("missing order type wire: %v", wire)
	}
}

func TestSubmitShortMapsToSell(t *testing.T) {
	handler := &exchangeHandler{t: t}
	client := newExchangeClient(t, handler)

	_, err := client.Submit(context.Background(), domain.OrderRequest{
		Coin:        "ETH",
		Side:        domain.SideShort,
		NotionalUSD: 250,
		Leverage:    5,
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	orders, _ := handler.lastOrder["orders"].([]any)
	wire, _ := orders[0].(map[string]any)
	if wire["b"] != false {
		t.Fatalf("SHORT must map to sell, got %v", wire["b"])
	}
}

func TestSubmitLeverageFailureIsBestEffort(t *testing.T) {
	handler := &exchangeHandler{t: t, leverageStatus: http.StatusBadRequest}
	client := newExchangeClient(t, handler)

	_, err := client.Submit(context.Background(), domain.OrderRequest{
		Coin:        "BTC",
		Side:        domain.SideLong,
		NotionalUSD: 500,
		Leverage:    10,
	})
	if err != nil {
		t.Fatalf("Submit must survive a leverage rejection, got: %v", err)
	}
	if handler.lastOrder == nil {
		t.Fatal("order was never placed")
	}
}

func TestSubmitRejectedOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/info" {
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			if payload["type"] == "meta" {
				_, _ = w.Write([]byte(`{"universe": [{"name": "BTC", "szDecimals": 5, "maxLeverage": 50}]}`))
			} else {
				_, _ = w.Write([]byte(`{"BTC": "50000"}`))
			}
			return
		}
		_, _ = w.Write([]byte(`{"status": "ok", "response": {"type": "order",
			"data": {"statuses": [{"error": "Insufficient margin"}]}}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, testLogger())
	if err := client.SetPrivateKey(testKeyHex); err != nil {
		t.Fatalf("SetPrivateKey: %v", err)
	}

	_, err := client.Submit(context.Background(), domain.OrderRequest{
		Coin:        "BTC",
		Side:        domain.SideLong,
		NotionalUSD: 500,
		Leverage:    10,
	})
	if err == nil || !strings.Contains(err.Error(), "Insufficient margin") {
		t.Fatalf("expected venue rejection error, got %v", err)
	}
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	client := NewClient("http://localhost:1", time.Second, testLogger())
	if err := client.SetPrivateKey(testKeyHex); err != nil {
		t.Fatalf("SetPrivateKey: %v", err)
	}

	if _, err := client.Submit(context.Background(), domain.OrderRequest{
		Coin: "BTC", Side: "SIDEWAYS", NotionalUSD: 500, Leverage: 10,
	}); err == nil {
		t.Fatal("expected error for invalid side")
	}

	if _, err := client.Submit(context.Background(), domain.OrderRequest{
		Coin: "BTC", Side: domain.SideLong, NotionalUSD: 0, Leverage: 10,
	}); err == nil {
		t.Fatal("expected error for zero notional")
	}
}

func TestSlippagePrice(t *testing.T) {
	tests := []struct {
		name       string
		mid        string
		isBuy      bool
		slippage   float64
		szDecimals int
		want       string
	}{
		{name: "buy pays up", mid: "50000", isBuy: true, slippage: 5, szDecimals: 5, want: "52500"},
		{name: "sell pays down", mid: "50000", isBuy: false, slippage: 5, szDecimals: 5, want: "47500"},
		{name: "five significant figures", mid: "1234.56", isBuy: true, slippage: 5, szDecimals: 1, want: "1296.3"},
		{name: "decimal cap from szDecimals", mid: "0.123456", isBuy: false, slippage: 5, szDecimals: 2, want: "0.1173"},
		{name: "zero slippage is identity", mid: "2500", isBuy: true, slippage: 0, szDecimals: 4, want: "2500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mid, err := decimal.NewFromString(tt.mid)
			if err != nil {
				t.Fatalf("bad mid: %v", err)
			}
			got := slippagePrice(mid, tt.isBuy, tt.slippage, tt.szDecimals)
			if got.String() != tt.want {
				t.Fatalf("slippagePrice(%s, buy=%v) = %s, want %s", tt.mid, tt.isBuy, got, tt.want)
			}
		})
	}
}
