package engine

import (
	"context"
	"time"

	"stockfighter/internal/api"
	"stockfighter/internal/journal"
	"stockfighter/internal/risk"
	"stockfighter/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Buy places a limit buy. A positive timeout arms an automatic cancel that
// fires if the order is still open when it elapses; zero means no timeout.
func (e *Engine) Buy(ctx context.Context, symbol string, price, qty int, timeout time.Duration) (Order, error) {
	return e.submit(ctx, api.DirectionBuy, symbol, price, qty, timeout)
}

// Sell places a limit sell. See Buy for timeout semantics.
func (e *Engine) Sell(ctx context.Context, symbol string, price, qty int, timeout time.Duration) (Order, error) {
	return e.submit(ctx, api.DirectionSell, symbol, price, qty, timeout)
}

func (e *Engine) submit(ctx context.Context, direction api.Direction, symbol string, price, qty int, timeout time.Duration) (Order, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Order{}, exception.ErrEngineClosed
	}
	if e.riskEngine != nil {
		decision := e.riskEngine.Evaluate(
			risk.Intent{Symbol: symbol, Direction: direction, Price: price, Qty: qty},
			risk.StateView{
				Position:       e.position[symbol],
				ReferencePrice: e.referencePriceLocked(symbol),
				Now:            time.Now().UTC().UnixNano(),
			})
		if decision.Action == risk.ActionDeny {
			e.mu.Unlock()
			e.metrics.IncOrderRejected()
			return Order{}, errors.Wrapf(exception.ErrEngineRiskReject, "%s %s, reason: %s", direction, symbol, decision.Reason)
		}
	}
	e.nextPendingID++
	pendingID := e.nextPendingID
	e.pending[pendingID] = PendingOrder{
		PendingID: pendingID,
		Symbol:    symbol,
		Price:     price,
		Qty:       qty,
		Direction: direction,
	}
	e.mu.Unlock()

	started := time.Now()
	resp, err := e.gateway.PlaceOrder(ctx, symbol, price, qty, direction, api.OrderTypeLimit)
	e.metrics.ObservePlace(time.Since(started))

	e.mu.Lock()
	delete(e.pending, pendingID)
	if err != nil {
		e.mu.Unlock()
		e.metrics.IncOrderRejected()
		return Order{}, errors.Wrapf(err, "place %s %s", direction, symbol)
	}

	order := Order{
		ID:        resp.ID,
		Symbol:    resp.Symbol,
		Price:     resp.Price,
		Qty:       resp.OriginalQty,
		Direction: resp.Direction,
	}
	if e.closed {
		// shutdown won the race with the round trip; don't track, unwind
		e.mu.Unlock()
		if resp.Open {
			if _, cerr := e.gateway.CancelOrder(context.Background(), order.Symbol, order.ID); cerr != nil {
				logs.Errorf("engine: unwind late placement, id: %d, err: %+v", order.ID, cerr)
			}
		}
		return Order{}, exception.ErrEngineClosed
	}
	e.open[order.ID] = order
	if !resp.Open {
		// Filled or killed within the round trip. The execution feed is not
		// guaranteed to repeat a report we already hold, so fold it in now;
		// if the feed did race us here, its copy found nothing tracked and
		// was ignored.
		e.reconcileLocked(resp)
		e.mu.Unlock()
		e.metrics.IncOrderPlaced()
		return order, nil
	}
	if timeout > 0 {
		id := order.ID
		e.timers[id] = time.AfterFunc(timeout, func() { e.autoCancel(id) })
	}
	e.mu.Unlock()

	e.metrics.IncOrderPlaced()
	return order, nil
}

// Cancel requests cancellation of an order. Cancelling an order the engine no
// longer tracks is a no-op: it already closed, and its report already settled
// the books. The cancel response is reconciled like any close report, so a
// fill that raced the cancel is still captured exactly once.
func (e *Engine) Cancel(ctx context.Context, order Order) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return exception.ErrEngineClosed
	}
	tracked, ok := e.open[order.ID]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	delete(e.open, order.ID)
	e.cancelling[order.ID] = tracked
	if timer, ok := e.timers[order.ID]; ok {
		timer.Stop()
		delete(e.timers, order.ID)
	}
	e.mu.Unlock()

	started := time.Now()
	resp, err := e.gateway.CancelOrder(ctx, tracked.Symbol, tracked.ID)
	e.metrics.ObserveCancel(time.Since(started))

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		// The venue may still hold the order open. Put it back, unless a
		// feed report closed it during the round trip.
		if _, still := e.cancelling[order.ID]; still {
			delete(e.cancelling, order.ID)
			e.open[order.ID] = tracked
		}
		return errors.Wrap(err, "cancel order").With("id", tracked.ID)
	}

	if e.reconcileLocked(resp) && len(resp.Fills) > 0 {
		logs.Infof("engine: cancel raced a fill, order: %d, filled: %d", resp.ID, resp.FilledQty())
	}
	e.metrics.IncOrderCancelled()
	return nil
}

// CancelWhere cancels every confirmed-open order for a symbol that matches
// the predicate, returning the orders it issued cancels for. It stops at the
// first gateway failure.
func (e *Engine) CancelWhere(ctx context.Context, symbol string, predicate func(Order) bool) ([]Order, error) {
	e.mu.Lock()
	matched := make([]Order, 0, len(e.open))
	for _, order := range e.open {
		if order.Symbol == symbol && (predicate == nil || predicate(order)) {
			matched = append(matched, order)
		}
	}
	e.mu.Unlock()

	cancelled := make([]Order, 0, len(matched))
	for _, order := range matched {
		if err := e.Cancel(ctx, order); err != nil {
			return cancelled, err
		}
		cancelled = append(cancelled, order)
	}
	return cancelled, nil
}

// CancelAll cancels every confirmed-open order for a symbol.
func (e *Engine) CancelAll(ctx context.Context, symbol string) ([]Order, error) {
	return e.CancelWhere(ctx, symbol, nil)
}

// TrackOrders subscribes to the execution feed for a symbol. Every report is
// forwarded to the callback after the engine has applied it; close reports
// settle the books first. Tracking the same symbol twice is a programming
// error and panics.
func (e *Engine) TrackOrders(ctx context.Context, symbol string, callback func(api.Order)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return exception.ErrEngineClosed
	}
	if _, ok := e.execFeeds[symbol]; ok {
		e.mu.Unlock()
		panic("engine: already tracking orders for " + symbol)
	}
	e.execFeeds[symbol] = nil // reserve the slot while the socket dials
	e.mu.Unlock()

	feed, err := e.feeds.Executions(ctx, symbol, func(report api.Order) {
		e.onOrderEvent(report, callback)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		delete(e.execFeeds, symbol)
		return errors.Wrap(err, "open execution feed").With("symbol", symbol)
	}
	e.execFeeds[symbol] = feed
	return nil
}

// onOrderEvent runs on the feed goroutine. The callback is invoked after the
// lock is released so strategies can issue engine commands from inside it;
// events stay ordered because one goroutine delivers them.
func (e *Engine) onOrderEvent(report api.Order, callback func(api.Order)) {
	if !report.Open {
		e.mu.Lock()
		if !e.reconcileLocked(report) {
			e.metrics.IncEventIgnored()
		}
		e.mu.Unlock()
	}
	if callback != nil {
		callback(report)
	}
}

// reconcileLocked applies a close report to the books: buys debit the balance
// and add to the position, sells the reverse, each fill at its own price. The
// order is looked up in the open and cancelling sets and deleted on apply, so
// a duplicate report finds nothing and changes nothing.
func (e *Engine) reconcileLocked(report api.Order) bool {
	tracked, ok := e.open[report.ID]
	if !ok {
		tracked, ok = e.cancelling[report.ID]
	}
	if !ok {
		return false
	}

	filled := report.FilledQty()
	notional := report.FilledNotional()
	switch tracked.Direction {
	case api.DirectionBuy:
		e.balance -= notional
		e.position[tracked.Symbol] += filled
	case api.DirectionSell:
		e.balance += notional
		e.position[tracked.Symbol] -= filled
	}
	delete(e.open, report.ID)
	delete(e.cancelling, report.ID)
	if timer, ok := e.timers[report.ID]; ok {
		timer.Stop()
		delete(e.timers, report.ID)
	}
	e.metrics.IncFillReconciled()
	e.journalFills(tracked, report)
	return true
}

func (e *Engine) journalFills(tracked Order, report api.Order) {
	if e.journal == nil || len(report.Fills) == 0 {
		return
	}
	entries := make([]journal.Entry, 0, len(report.Fills))
	for _, fill := range report.Fills {
		entries = append(entries, journal.Entry{
			OrderID:   report.ID,
			Venue:     e.venue,
			Symbol:    tracked.Symbol,
			Direction: string(tracked.Direction),
			Price:     fill.Price,
			Qty:       fill.Qty,
			FilledAt:  fill.Timestamp,
		})
	}
	e.journal.Record(entries...)
}

// autoCancel fires from an order timeout timer. By the time it runs the
// order may already have closed; the lookup decides.
func (e *Engine) autoCancel(id int) {
	e.mu.Lock()
	order, ok := e.open[id]
	delete(e.timers, id)
	closed := e.closed
	e.mu.Unlock()
	if !ok || closed {
		return
	}

	e.metrics.IncOrderTimedOut()
	logs.Infof("engine: order timed out, cancelling, symbol: %s, id: %d", order.Symbol, order.ID)
	if err := e.Cancel(context.Background(), order); err != nil {
		logs.Errorf("engine: timeout cancel, id: %d, err: %+v", order.ID, err)
	}
}
