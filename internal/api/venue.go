package api

import (
	"context"
	"fmt"
	"net/http"

	"stockfighter/pkg/exception"
)

// Venue is one exchange instance scoped to a single trading account. All
// operations are single round trips; a non-200 status or ok:false payload is
// surfaced as a typed error to the caller.
type Venue struct {
	client  *Client
	Account string
	Name    string
}

// Heartbeat checks the venue is up.
func (v *Venue) Heartbeat(ctx context.Context) (VenueHeartbeat, error) {
	var hb VenueHeartbeat
	path := fmt.Sprintf("venues/%s/heartbeat", v.Name)
	if err := v.client.do(ctx, http.MethodGet, path, nil, &hb); err != nil {
		return hb, err
	}
	return hb, okError(hb.OK, hb.Error)
}

// Stocks lists the symbols this venue trades.
func (v *Venue) Stocks(ctx context.Context) (Stocks, error) {
	var stocks Stocks
	path := fmt.Sprintf("venues/%s/stocks", v.Name)
	if err := v.client.do(ctx, http.MethodGet, path, nil, &stocks); err != nil {
		return stocks, err
	}
	return stocks, okError(stocks.OK, stocks.Error)
}

// OrderBook fetches the resting interest for a symbol.
func (v *Venue) OrderBook(ctx context.Context, symbol string) (OrderBook, error) {
	var book OrderBook
	path := fmt.Sprintf("venues/%s/stocks/%s", v.Name, symbol)
	if err := v.client.do(ctx, http.MethodGet, path, nil, &book); err != nil {
		return book, err
	}
	return book, okError(book.OK, book.Error)
}

// Quote fetches the current market snapshot for a symbol.
func (v *Venue) Quote(ctx context.Context, symbol string) (Quote, error) {
	var quote Quote
	path := fmt.Sprintf("venues/%s/stocks/%s/quote", v.Name, symbol)
	if err := v.client.do(ctx, http.MethodGet, path, nil, &quote); err != nil {
		return quote, err
	}
	return quote, okError(quote.OK, quote.Error)
}

// PlaceOrder submits a limit-style order for a symbol and returns the venue's
// snapshot of it. The snapshot may already carry fills, or even arrive closed
// for order types that sweep the book immediately.
func (v *Venue) PlaceOrder(ctx context.Context, symbol string, price, qty int, direction Direction, orderType OrderType) (Order, error) {
	var order Order
	if qty <= 0 || price < 0 {
		return order, exception.ErrAPIInvalidOrder
	}
	if orderType == "" {
		orderType = OrderTypeLimit
	}

	body := placeOrderRequest{
		Account:   v.Account,
		Venue:     v.Name,
		Stock:     symbol,
		Price:     price,
		Qty:       qty,
		Direction: direction,
		Type:      orderType,
	}
	path := fmt.Sprintf("venues/%s/stocks/%s/orders", v.Name, symbol)
	if err := v.client.do(ctx, http.MethodPost, path, body, &order); err != nil {
		return order, err
	}
	return order, okError(order.OK, order.Error)
}

// CancelOrder requests cancellation of an order. The returned snapshot is the
// post-cancel state and may report fills that landed before the cancel took
// effect; callers must reconcile those, not discard them.
func (v *Venue) CancelOrder(ctx context.Context, symbol string, id int) (Order, error) {
	var order Order
	path := fmt.Sprintf("venues/%s/stocks/%s/orders/%d", v.Name, symbol, id)
	if err := v.client.do(ctx, http.MethodDelete, path, nil, &order); err != nil {
		return order, err
	}
	return order, okError(order.OK, order.Error)
}
