// Package engine owns all mutable trading state for one (account, venue)
// pair: outstanding orders, position, cash balance and quote history. It
// reconciles locally-initiated orders against asynchronously-arriving
// execution reports and exposes commands and queries to strategies.
package engine

import (
	"context"
	"os"
	"sync"
	"time"

	"stockfighter/internal/api"
	"stockfighter/internal/journal"
	"stockfighter/internal/obs"
	"stockfighter/internal/risk"
	"stockfighter/internal/state"
	"stockfighter/pkg/exception"

	"github.com/yanun0323/logs"
)

// DefaultHistorySize is how many quotes are retained per symbol.
const DefaultHistorySize = 20

// Gateway is the synchronous order entry surface of a venue. Each call is a
// single round trip that can fail and is never retried here.
type Gateway interface {
	PlaceOrder(ctx context.Context, symbol string, price, qty int, direction api.Direction, orderType api.OrderType) (api.Order, error)
	CancelOrder(ctx context.Context, symbol string, id int) (api.Order, error)
}

// FeedHandle is an open push subscription.
type FeedHandle interface {
	Close()
}

// FeedSource opens the two push streams for a symbol.
type FeedSource interface {
	TickerTape(ctx context.Context, symbol string, handler func(api.Quote)) (FeedHandle, error)
	Executions(ctx context.Context, symbol string, handler func(api.Order)) (FeedHandle, error)
}

// Order is an engine-tracked outstanding order. Qty is the original quantity;
// records are replaced wholesale on state transition, never mutated in place.
type Order struct {
	ID        int
	Symbol    string
	Price     int
	Qty       int
	Direction api.Direction
}

// PendingOrder is a command in flight to the gateway, before an exchange
// identifier is known.
type PendingOrder struct {
	PendingID int64
	Symbol    string
	Price     int
	Qty       int
	Direction api.Direction
}

// Config wires an engine instance. Gateway and Feeds are required; the rest
// are optional.
type Config struct {
	Account      string
	Venue        string
	Gateway      Gateway
	Feeds        FeedSource
	Risk         *risk.Engine
	Metrics      *obs.Metrics
	Journal      *journal.Journal
	SnapshotPath string
	HistorySize  int
}

// Engine reconciles orders against feed events and gateway responses. One
// mutex serializes every state mutation; gateway round trips run with the
// lock released so a slow network call never stalls feed delivery.
type Engine struct {
	account      string
	venue        string
	gateway      Gateway
	feeds        FeedSource
	riskEngine   *risk.Engine
	metrics      *obs.Metrics
	journal      *journal.Journal
	snapshotPath string
	historySize  int

	mu            sync.Mutex
	closed        bool
	nextPendingID int64
	pending       map[int64]PendingOrder
	open          map[int]Order
	cancelling    map[int]Order
	timers        map[int]*time.Timer
	position      map[string]int
	balance       int64
	history       map[string]*quoteHistory
	lastQuote     map[string]api.Quote
	quoteFeeds    map[string]FeedHandle
	execFeeds     map[string]FeedHandle
}

// New creates an engine for one (account, venue) pair, restoring balance and
// positions from the snapshot file when one is configured and matches the
// venue.
func New(cfg Config) (*Engine, error) {
	if cfg.Gateway == nil {
		return nil, exception.ErrEngineNilGateway
	}
	if cfg.Feeds == nil {
		return nil, exception.ErrEngineNilFeeds
	}
	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}

	e := &Engine{
		account:      cfg.Account,
		venue:        cfg.Venue,
		gateway:      cfg.Gateway,
		feeds:        cfg.Feeds,
		riskEngine:   cfg.Risk,
		metrics:      cfg.Metrics,
		journal:      cfg.Journal,
		snapshotPath: cfg.SnapshotPath,
		historySize:  historySize,
		pending:      make(map[int64]PendingOrder),
		open:         make(map[int]Order),
		cancelling:   make(map[int]Order),
		timers:       make(map[int]*time.Timer),
		position:     make(map[string]int),
		history:      make(map[string]*quoteHistory),
		lastQuote:    make(map[string]api.Quote),
		quoteFeeds:   make(map[string]FeedHandle),
		execFeeds:    make(map[string]FeedHandle),
	}

	if cfg.SnapshotPath != "" {
		snap, err := state.ReadSnapshot(cfg.SnapshotPath)
		switch {
		case err == nil:
			balance, positions := snap.Restore(cfg.Venue)
			e.balance = balance
			for symbol, qty := range positions {
				e.position[symbol] = qty
			}
			logs.Infof("engine: restored snapshot, venue: %s, balance: %d, positions: %d",
				cfg.Venue, balance, len(positions))
		case os.IsNotExist(err):
			// first run, nothing to restore
		default:
			logs.Warnf("engine: read snapshot, err: %+v", err)
		}
	}

	return e, nil
}

// Position returns the signed share count for a symbol; negative is short.
func (e *Engine) Position(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position[symbol]
}

// Positions returns a copy of all nonzero positions.
func (e *Engine) Positions() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	positions := make(map[string]int, len(e.position))
	for symbol, qty := range e.position {
		if qty == 0 {
			continue
		}
		positions[symbol] = qty
	}
	return positions
}

// Balance returns the cash accumulated so far: sells credit it, buys debit
// it. With a zero starting balance this is the realized cash flow.
func (e *Engine) Balance() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// NetProfit is the realized cash flow: with a zero opening balance it is the
// profit of everything bought and sold so far, ignoring open positions.
func (e *Engine) NetProfit() int64 {
	return e.Balance()
}

// OutstandingOrders returns the confirmed-open orders for a symbol.
func (e *Engine) OutstandingOrders(symbol string) []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	orders := make([]Order, 0, len(e.open))
	for _, order := range e.open {
		if order.Symbol == symbol {
			orders = append(orders, order)
		}
	}
	return orders
}

// OutstandingBuyCount counts buys in flight for a symbol: confirmed-open,
// awaiting a gateway response, or awaiting cancel confirmation. Counting the
// in-flight ones keeps a strategy from double-placing during a round trip.
func (e *Engine) OutstandingBuyCount(symbol string) int {
	return e.outstandingCount(symbol, api.DirectionBuy)
}

// OutstandingSellCount is OutstandingBuyCount for the sell side.
func (e *Engine) OutstandingSellCount(symbol string) int {
	return e.outstandingCount(symbol, api.DirectionSell)
}

func (e *Engine) outstandingCount(symbol string, direction api.Direction) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, order := range e.open {
		if order.Symbol == symbol && order.Direction == direction {
			count++
		}
	}
	for _, order := range e.cancelling {
		if order.Symbol == symbol && order.Direction == direction {
			count++
		}
	}
	for _, order := range e.pending {
		if order.Symbol == symbol && order.Direction == direction {
			count++
		}
	}
	return count
}

// Close shuts the engine down: best-effort cancels every open order, detaches
// all feed subscriptions, flushes the journal and persists the snapshot when
// configured. Cancel failures are logged, not retried; shutdown completes
// regardless.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true

	orders := make([]Order, 0, len(e.open))
	for _, order := range e.open {
		orders = append(orders, order)
	}
	for id, timer := range e.timers {
		timer.Stop()
		delete(e.timers, id)
	}
	feeds := make([]FeedHandle, 0, len(e.quoteFeeds)+len(e.execFeeds))
	for _, feed := range e.quoteFeeds {
		if feed != nil {
			feeds = append(feeds, feed)
		}
	}
	for _, feed := range e.execFeeds {
		if feed != nil {
			feeds = append(feeds, feed)
		}
	}
	e.quoteFeeds = make(map[string]FeedHandle)
	e.execFeeds = make(map[string]FeedHandle)
	e.mu.Unlock()

	for _, order := range orders {
		if _, err := e.gateway.CancelOrder(context.Background(), order.Symbol, order.ID); err != nil {
			logs.Errorf("engine: shutdown cancel, order: %d, err: %+v", order.ID, err)
		}
	}
	for _, feed := range feeds {
		feed.Close()
	}
	e.journal.Close()

	if e.snapshotPath != "" {
		e.mu.Lock()
		snap := state.Snapshot{
			Timestamp: time.Now().UTC(),
			Venue:     e.venue,
			Balance:   e.balance,
			Positions: make(map[string]int, len(e.position)),
		}
		for symbol, qty := range e.position {
			if qty != 0 {
				snap.Positions[symbol] = qty
			}
		}
		e.mu.Unlock()
		if err := state.WriteSnapshot(e.snapshotPath, snap); err != nil {
			logs.Errorf("engine: write snapshot, err: %+v", err)
		}
	}

	m := e.metrics.Snapshot()
	logs.Infof("engine: closed, placed: %d, cancelled: %d, timed out: %d, fills: %d, quotes: %d, ignored: %d",
		m.OrdersPlaced, m.OrdersCancelled, m.OrdersTimedOut, m.FillsReconciled, m.QuotesSeen, m.EventsIgnored)
}

// VenueFeeds adapts an api.Venue to the FeedSource interface.
func VenueFeeds(v *api.Venue) FeedSource {
	return venueFeeds{v: v}
}

type venueFeeds struct {
	v *api.Venue
}

func (f venueFeeds) TickerTape(ctx context.Context, symbol string, handler func(api.Quote)) (FeedHandle, error) {
	feed, err := f.v.TickerTape(ctx, symbol, handler)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

func (f venueFeeds) Executions(ctx context.Context, symbol string, handler func(api.Order)) (FeedHandle, error) {
	feed, err := f.v.Executions(ctx, symbol, handler)
	if err != nil {
		return nil, err
	}
	return feed, nil
}
