package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"stockfighter/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient("test-key", Option{BaseURL: server.URL + "/"})
	require.NoError(t, err)
	return server, client
}

func TestNewClientRejectsEmptyKey(t *testing.T) {
	_, err := NewClient("  \n", Option{})
	assert.ErrorIs(t, err, exception.ErrAPIEmptyKey)
}

func TestNewClientFromKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistent_key")
	require.NoError(t, os.WriteFile(path, []byte("file-key\n"), 0o600))

	client, err := NewClientFromKeyFile(path, Option{})
	require.NoError(t, err)
	assert.Equal(t, "file-key", client.APIKey())

	_, err = NewClientFromKeyFile(filepath.Join(t.TempDir(), "missing"), Option{})
	assert.ErrorIs(t, err, exception.ErrAPIKeyFile)
}

func TestHeartbeatSendsAuthHeader(t *testing.T) {
	var gotAuth string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Starfighter-Authorization")
		assert.Equal(t, "/heartbeat", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"error":""}`))
	})

	hb, err := client.Heartbeat(context.Background())
	require.NoError(t, err)
	assert.True(t, hb.OK)
	assert.Equal(t, "test-key", gotAuth)
}

func TestDoSurfacesHTTPStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Heartbeat(context.Background())
	assert.ErrorIs(t, err, exception.ErrAPIStatus)
}

func TestDoSurfacesBadBody(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.Heartbeat(context.Background())
	assert.ErrorIs(t, err, exception.ErrAPIDecodeBody)
}

func TestPlaceOrderRequestShape(t *testing.T) {
	var got map[string]any
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/venues/TESTEX/stocks/FOOB/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"ok": true, "venue": "TESTEX", "symbol": "FOOB",
			"direction": "buy", "originalQty": 100, "qty": 100,
			"price": 5000, "orderType": "limit", "id": 42,
			"account": "EXB123456", "fills": [], "totalFilled": 0, "open": true
		}`))
	})

	venue := client.Venue("EXB123456", "TESTEX")
	order, err := venue.PlaceOrder(context.Background(), "FOOB", 5000, 100, DirectionBuy, OrderTypeLimit)
	require.NoError(t, err)

	assert.Equal(t, 42, order.ID)
	assert.True(t, order.Open)
	assert.Equal(t, "EXB123456", got["account"])
	assert.Equal(t, "TESTEX", got["venue"])
	assert.Equal(t, "FOOB", got["stock"])
	assert.Equal(t, "buy", got["direction"])
	assert.Equal(t, "limit", got["orderType"])
	assert.EqualValues(t, 5000, got["price"])
	assert.EqualValues(t, 100, got["qty"])
}

func TestPlaceOrderValidatesInput(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server")
	})
	venue := client.Venue("EXB123456", "TESTEX")

	_, err := venue.PlaceOrder(context.Background(), "FOOB", 100, 0, DirectionBuy, OrderTypeLimit)
	assert.ErrorIs(t, err, exception.ErrAPIInvalidOrder)
	_, err = venue.PlaceOrder(context.Background(), "FOOB", -1, 10, DirectionBuy, OrderTypeLimit)
	assert.ErrorIs(t, err, exception.ErrAPIInvalidOrder)
}

func TestPlaceOrderOkFalse(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error": "market closed"}`))
	})
	venue := client.Venue("EXB123456", "TESTEX")

	_, err := venue.PlaceOrder(context.Background(), "FOOB", 100, 10, DirectionSell, OrderTypeLimit)
	require.ErrorIs(t, err, exception.ErrAPINotOK)
	assert.Contains(t, err.Error(), "market closed")
}

func TestCancelOrderPath(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/venues/TESTEX/stocks/FOOB/orders/42", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"ok": true, "id": 42, "open": false,
			"fills": [{"price": 4990, "qty": 30, "ts": "2015-07-05T22:16:18.410Z"}]
		}`))
	})
	venue := client.Venue("EXB123456", "TESTEX")

	order, err := venue.CancelOrder(context.Background(), "FOOB", 42)
	require.NoError(t, err)
	assert.False(t, order.Open)
	assert.Equal(t, 30, order.FilledQty())
	assert.Equal(t, int64(4990*30), order.FilledNotional())
}

func TestQuoteDecodesAbsentSides(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/venues/TESTEX/stocks/FOOB/quote", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"ok": true, "symbol": "FOOB", "venue": "TESTEX",
			"ask": 5100, "askSize": 300, "askDepth": 1200,
			"last": 5000, "lastSize": 20,
			"lastTrade": "2015-07-08T19:21:32.961Z",
			"quoteTime": "2015-07-08T19:21:33.021Z"
		}`))
	})
	venue := client.Venue("EXB123456", "TESTEX")

	quote, err := venue.Quote(context.Background(), "FOOB")
	require.NoError(t, err)

	_, ok := quote.BestBid()
	assert.False(t, ok, "bid side is empty")
	ask, ok := quote.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 5100, ask)
	assert.Equal(t, 5000, quote.LastTradePrice)
	assert.False(t, quote.LastTradeTime.IsZero())
}

func TestQuoteZeroBidIsPresent(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true, "symbol": "FOOB", "bid": 0}`))
	})
	venue := client.Venue("EXB123456", "TESTEX")

	quote, err := venue.Quote(context.Background(), "FOOB")
	require.NoError(t, err)

	bid, ok := quote.BestBid()
	require.True(t, ok, "an explicit zero bid is a real price")
	assert.Zero(t, bid)
}

func TestStocksAndOrderBook(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/venues/TESTEX/stocks":
			_, _ = w.Write([]byte(`{"ok": true, "symbols": [{"name": "Foreign Owned Bning", "symbol": "FOOB"}]}`))
		case "/venues/TESTEX/stocks/FOOB":
			_, _ = w.Write([]byte(`{
				"ok": true, "venue": "TESTEX", "symbol": "FOOB",
				"bids": [{"price": 5000, "qty": 100, "isBuy": true}],
				"asks": []
			}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	venue := client.Venue("EXB123456", "TESTEX")

	stocks, err := venue.Stocks(context.Background())
	require.NoError(t, err)
	require.Len(t, stocks.Symbols, 1)
	assert.Equal(t, "FOOB", stocks.Symbols[0].Symbol)

	book, err := venue.OrderBook(context.Background(), "FOOB")
	require.NoError(t, err)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, 5000, book.Bids[0].Price)
	assert.True(t, book.Bids[0].IsBuy)
	assert.Empty(t, book.Asks)
}
