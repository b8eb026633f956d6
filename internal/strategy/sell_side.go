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
	_profileQuotes = 7
	_minSpread     = 50
)

// profileMarket folds the recent quotes into a conservative floor bid and
// ceiling ask. It reports false until enough quotes carry both sides.
func profileMarket(eng *engine.Engine, symbol string) (bid, ask int, ok bool) {
	bid, ok = eng.MapReduceLastQuotes(symbol, _profileQuotes,
		func(q api.Quote) (int, bool) { return q.BestBid() }, minOf)
	if !ok {
		return 0, 0, false
	}
	ask, ok = eng.MapReduceLastQuotes(symbol, _profileQuotes,
		func(q api.Quote) (int, bool) { return q.BestAsk() }, maxOf)
	if !ok {
		return 0, 0, false
	}
	return bid, ask, true
}

// SellSide is a simple market maker: it quotes both sides just off the
// profiled market, caps its long exposure and never sells shares it does not
// hold.
type SellSide struct {
	engine      *engine.Engine
	symbol      string
	margin      int
	blockSize   int
	maxPosition int
	timeout     time.Duration
}

// NewSellSide builds the strategy. Defaults: 250-share blocks, a 700-share
// long cap, zero margin and a 30s order timeout.
func NewSellSide(params Params) *SellSide {
	blockSize := params.OrderQty
	if blockSize <= 0 {
		blockSize = 250
	}
	maxPosition := params.TargetQty
	if maxPosition <= 0 {
		maxPosition = 700
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SellSide{
		engine:      params.Engine,
		symbol:      params.Symbol,
		margin:      params.PriceOffset,
		blockSize:   blockSize,
		maxPosition: maxPosition,
		timeout:     timeout,
	}
}

func (s *SellSide) Name() string { return "sell_side" }

func (s *SellSide) Run(ctx context.Context) error {
	err := s.engine.TrackOrders(ctx, s.symbol, func(report api.Order) {
		if report.Open {
			return
		}
		logs.Infof("sell_side: completed a %s, position: %d, balance: %d",
			report.Direction, s.engine.Position(s.symbol), s.engine.Balance())
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

func (s *SellSide) onQuote(api.Quote) {
	bid, ask, ok := profileMarket(s.engine, s.symbol)
	if !ok {
		return
	}

	buyPrice := bid + s.margin
	sellPrice := ask - s.margin
	ctx := context.Background()

	// drop quotes the market has moved away from
	if _, err := s.engine.CancelWhere(ctx, s.symbol, func(o engine.Order) bool {
		return o.Direction == api.DirectionBuy && o.Price < buyPrice
	}); err != nil {
		logs.Warnf("sell_side: cancel stale bids, err: %+v", err)
	}
	if _, err := s.engine.CancelWhere(ctx, s.symbol, func(o engine.Order) bool {
		return o.Direction == api.DirectionSell && o.Price > sellPrice
	}); err != nil {
		logs.Warnf("sell_side: cancel stale asks, err: %+v", err)
	}

	if ask-bid < _minSpread {
		return
	}

	position := s.engine.Position(s.symbol)
	if s.engine.OutstandingBuyCount(s.symbol) == 0 && position < s.maxPosition {
		logs.Infof("sell_side: placing bid at %d", buyPrice)
		if _, err := s.engine.Buy(ctx, s.symbol, buyPrice, s.blockSize, s.timeout); err != nil {
			logs.Warnf("sell_side: place bid, err: %+v", err)
		}
	}
	if s.engine.OutstandingSellCount(s.symbol) == 0 && position > 0 {
		logs.Infof("sell_side: placing ask at %d", sellPrice)
		if _, err := s.engine.Sell(ctx, s.symbol, sellPrice, s.blockSize, s.timeout); err != nil {
			logs.Warnf("sell_side: place ask, err: %+v", err)
		}
	}
}
