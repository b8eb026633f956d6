package strategy

import (
	"context"
	"time"

	"stockfighter/internal/api"
	"stockfighter/internal/engine"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const _bulldozerMinClip = 5

// DuelingBulldozers makes markets symmetrically inside the profiled spread.
// It buys and sells in small, short-lived blocks and slews the order size
// toward zero as the position drifts toward either side of the exposure
// buffer, so it never runs far long or short.
type DuelingBulldozers struct {
	engine    *engine.Engine
	symbol    string
	margin    int
	blockSize int
	buffer    int
	timeout   time.Duration
}

// NewDuelingBulldozers builds the strategy. Defaults: 50-share blocks, a
// 500-share exposure buffer, a 50-cent margin and a 6s order timeout.
func NewDuelingBulldozers(params Params) *DuelingBulldozers {
	blockSize := params.OrderQty
	if blockSize <= 0 {
		blockSize = 50
	}
	buffer := params.TargetQty
	if buffer <= 0 {
		buffer = 500
	}
	margin := params.PriceOffset
	if margin <= 0 {
		margin = 50
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &DuelingBulldozers{
		engine:    params.Engine,
		symbol:    params.Symbol,
		margin:    margin,
		blockSize: blockSize,
		buffer:    buffer,
		timeout:   timeout,
	}
}

func (s *DuelingBulldozers) Name() string { return "dueling_bulldozers" }

func (s *DuelingBulldozers) Run(ctx context.Context) error {
	err := s.engine.TrackOrders(ctx, s.symbol, func(report api.Order) {
		if report.Open {
			return
		}
		logs.Infof("bulldozers: completed a %s, position: %d",
			report.Direction, s.engine.Position(s.symbol))
	})
	if err != nil {
		return errors.Wrap(err, "track orders")
	}
	if err := s.engine.TrackQuotes(ctx, s.symbol, s.onQuote); err != nil {
		return errors.Wrap(err, "track quotes")
	}

	<-ctx.Done()
	return nil
}

func (s *DuelingBulldozers) onQuote(api.Quote) {
	bid, ask, ok := profileMarket(s.engine, s.symbol)
	if !ok {
		return
	}
	if ask-bid < _minSpread {
		return
	}

	// go inside the spread
	buyPrice := bid + s.margin
	sellPrice := ask - s.margin
	ctx := context.Background()

	if _, err := s.engine.CancelWhere(ctx, s.symbol, func(o engine.Order) bool {
		return o.Direction == api.DirectionBuy && o.Price > buyPrice
	}); err != nil {
		logs.Warnf("bulldozers: cancel rich bids, err: %+v", err)
	}
	if _, err := s.engine.CancelWhere(ctx, s.symbol, func(o engine.Order) bool {
		return o.Direction == api.DirectionSell && o.Price < sellPrice
	}); err != nil {
		logs.Warnf("bulldozers: cancel cheap asks, err: %+v", err)
	}

	position := s.engine.Position(s.symbol)

	if s.engine.OutstandingBuyCount(s.symbol) == 0 && position < s.buffer {
		qty := slewedQty(s.blockSize, position, s.buffer)
		logs.Infof("bulldozers: placing bid for %d at %d", qty, buyPrice)
		if _, err := s.engine.Buy(ctx, s.symbol, buyPrice, qty, s.timeout); err != nil {
			logs.Warnf("bulldozers: place bid, err: %+v", err)
		}
	}
	if s.engine.OutstandingSellCount(s.symbol) == 0 && position > -s.buffer {
		qty := slewedQty(s.blockSize, -position, s.buffer)
		logs.Infof("bulldozers: placing ask for %d at %d", qty, sellPrice)
		if _, err := s.engine.Sell(ctx, s.symbol, sellPrice, qty, s.timeout); err != nil {
			logs.Warnf("bulldozers: place ask, err: %+v", err)
		}
	}
}

// slewedQty shrinks a block as the exposure in the order's direction grows,
// hitting the minimum clip as the position approaches the buffer. A flat or
// opposite-side position gets the full block.
func slewedQty(block, exposure, buffer int) int {
	if exposure <= 0 {
		return block
	}
	scaled := int(float64(block) * (1 - float64(exposure)/float64(buffer)))
	if scaled < _bulldozerMinClip {
		return _bulldozerMinClip
	}
	return scaled
}
