package engine

import (
	"context"

	"stockfighter/internal/api"
	"stockfighter/pkg/exception"

	"github.com/yanun0323/errors"
)

// quoteHistory holds the most recent quotes for one symbol, oldest first.
type quoteHistory struct {
	buf []api.Quote
	max int
}

func newQuoteHistory(max int) *quoteHistory {
	return &quoteHistory{buf: make([]api.Quote, 0, max), max: max}
}

func (h *quoteHistory) push(q api.Quote) {
	if len(h.buf) == h.max {
		copy(h.buf, h.buf[1:])
		h.buf[len(h.buf)-1] = q
		return
	}
	h.buf = append(h.buf, q)
}

// TrackQuotes subscribes to the ticker tape for a symbol. Every quote is
// recorded in the history ring before the callback sees it, so a callback
// that queries the engine observes a history including the quote it was
// handed. Tracking the same symbol twice is a programming error and panics.
func (e *Engine) TrackQuotes(ctx context.Context, symbol string, callback func(api.Quote)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return exception.ErrEngineClosed
	}
	if _, ok := e.quoteFeeds[symbol]; ok {
		e.mu.Unlock()
		panic("engine: already tracking quotes for " + symbol)
	}
	e.quoteFeeds[symbol] = nil // reserve the slot while the socket dials
	e.mu.Unlock()

	feed, err := e.feeds.TickerTape(ctx, symbol, func(q api.Quote) {
		e.onQuote(symbol, q, callback)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		delete(e.quoteFeeds, symbol)
		return errors.Wrap(err, "open tickertape feed").With("symbol", symbol)
	}
	e.quoteFeeds[symbol] = feed
	return nil
}

// onQuote runs on the feed goroutine; the callback fires after the lock is
// released so it can issue engine commands.
func (e *Engine) onQuote(symbol string, quote api.Quote, callback func(api.Quote)) {
	e.mu.Lock()
	h := e.history[symbol]
	if h == nil {
		h = newQuoteHistory(e.historySize)
		e.history[symbol] = h
	}
	h.push(quote)
	e.lastQuote[symbol] = quote
	e.mu.Unlock()

	e.metrics.IncQuoteSeen()
	if callback != nil {
		callback(quote)
	}
}

// LastQuote returns the most recent quote for a symbol, if any was seen.
func (e *Engine) LastQuote(symbol string) (api.Quote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.lastQuote[symbol]
	return q, ok
}

// QuoteHistory returns a copy of the retained quotes for a symbol, oldest
// first.
func (e *Engine) QuoteHistory(symbol string) []api.Quote {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.history[symbol]
	if h == nil {
		return nil
	}
	return append([]api.Quote(nil), h.buf...)
}

// MapReduceLastQuotes projects a value out of each of the newest quotes and
// folds the projections. The scan walks newest to oldest and stops once count
// projections succeeded; quotes the projection declines are skipped. It
// returns false when fewer than count quotes qualify.
func (e *Engine) MapReduceLastQuotes(symbol string, count int, project func(api.Quote) (int, bool), fold func([]int) int) (int, bool) {
	if count <= 0 || project == nil || fold == nil {
		return 0, false
	}

	e.mu.Lock()
	var quotes []api.Quote
	if h := e.history[symbol]; h != nil {
		quotes = append([]api.Quote(nil), h.buf...)
	}
	e.mu.Unlock()

	selected := make([]int, 0, count)
	for i := len(quotes) - 1; i >= 0 && len(selected) < count; i-- {
		if v, ok := project(quotes[i]); ok {
			selected = append(selected, v)
		}
	}
	if len(selected) < count {
		return 0, false
	}
	return fold(selected), true
}

// NetAssetValue marks every nonzero position at its symbol's last observed
// trade price and adds the cash balance. It returns false when any held
// symbol has not traded while tracked, since marking it would be a guess.
func (e *Engine) NetAssetValue() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nav := e.balance
	for symbol, qty := range e.position {
		if qty == 0 {
			continue
		}
		quote, ok := e.lastQuote[symbol]
		if !ok || quote.LastTradeTime.IsZero() {
			return 0, false
		}
		nav += int64(qty) * int64(quote.LastTradePrice)
	}
	return nav, true
}

// referencePriceLocked is the price the risk engine bands new orders
// against: the last trade when one exists, otherwise the best bid or ask.
func (e *Engine) referencePriceLocked(symbol string) int {
	quote, ok := e.lastQuote[symbol]
	if !ok {
		return 0
	}
	if !quote.LastTradeTime.IsZero() {
		return quote.LastTradePrice
	}
	if bid, ok := quote.BestBid(); ok {
		return bid
	}
	if ask, ok := quote.BestAsk(); ok {
		return ask
	}
	return 0
}
