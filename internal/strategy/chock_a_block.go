package strategy

import (
	"context"
	"time"

	"stockfighter/internal/api"
	"stockfighter/internal/engine"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	_chockTargetQty    = 100_000
	_chockMaxClipQty   = 1000
	_chockDefaultLimit = 99999
)

// ChockABlock accumulates a large position without spooking the market: on
// every quote it lifts the best ask for at most a clip of shares, one order
// in flight at a time, until the target position is reached.
type ChockABlock struct {
	engine   *engine.Engine
	symbol   string
	target   int
	maxPrice int
	timeout  time.Duration

	done chan struct{}
}

// NewChockABlock builds the strategy; a zero TargetQty accumulates 100k
// shares and a zero PriceOffset disables the price ceiling.
func NewChockABlock(params Params) *ChockABlock {
	target := params.TargetQty
	if target <= 0 {
		target = _chockTargetQty
	}
	maxPrice := params.PriceOffset
	if maxPrice <= 0 {
		maxPrice = _chockDefaultLimit
	}
	return &ChockABlock{
		engine:   params.Engine,
		symbol:   params.Symbol,
		target:   target,
		maxPrice: maxPrice,
		timeout:  params.Timeout,
		done:     make(chan struct{}),
	}
}

func (s *ChockABlock) Name() string { return "chock_a_block" }

func (s *ChockABlock) Run(ctx context.Context) error {
	if err := s.engine.TrackOrders(ctx, s.symbol, s.onReport); err != nil {
		return errors.Wrap(err, "track orders")
	}
	if err := s.engine.TrackQuotes(ctx, s.symbol, s.onQuote); err != nil {
		return errors.Wrap(err, "track quotes")
	}

	select {
	case <-s.done:
		logs.Infof("chock_a_block: target reached, position: %d", s.engine.Position(s.symbol))
	case <-ctx.Done():
	}

	cancelled, err := s.engine.CancelAll(context.Background(), s.symbol)
	if err != nil {
		logs.Warnf("chock_a_block: cancel leftovers, err: %+v", err)
	}
	for _, order := range cancelled {
		logs.Infof("chock_a_block: cancelled unfilled order, id: %d", order.ID)
	}
	return nil
}

func (s *ChockABlock) onReport(report api.Order) {
	if report.Open {
		if filled := report.FilledQty(); filled > 0 {
			logs.Infof("chock_a_block: partial fill %d, waiting", filled)
		}
		return
	}
	remaining := s.target - s.engine.Position(s.symbol)
	logs.Infof("chock_a_block: %d in %d fills, %d remaining",
		report.FilledQty(), len(report.Fills), remaining)
	if remaining <= 0 {
		select {
		case s.done <- struct{}{}:
		default:
		}
	}
}

func (s *ChockABlock) onQuote(quote api.Quote) {
	remaining := s.target - s.engine.Position(s.symbol)
	if remaining <= 0 {
		return
	}
	ask, ok := quote.BestAsk()
	if !ok {
		return
	}
	// one order in flight at a time
	if s.engine.OutstandingBuyCount(s.symbol) > 0 {
		return
	}

	qty := chockClipQty(quote.AskDepth, remaining)
	if qty <= 0 {
		return
	}
	price := minInt(ask, s.maxPrice)

	logs.Infof("chock_a_block: %d remaining, ordering %d at %d", remaining, qty, price)
	if _, err := s.engine.Buy(context.Background(), s.symbol, price, qty, s.timeout); err != nil {
		logs.Warnf("chock_a_block: place buy, err: %+v", err)
	}
}

// chockClipQty sizes one clip: no more than the visible ask depth, the clip
// cap, or what is still needed.
func chockClipQty(askDepth, remaining int) int {
	return minInt(minInt(askDepth, _chockMaxClipQty), remaining)
}
