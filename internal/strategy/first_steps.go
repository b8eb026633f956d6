package strategy

import (
	"context"

	"stockfighter/internal/api"
	"stockfighter/internal/engine"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	_firstStepsQty   = 100
	_firstStepsLimit = 10000 // generous limit so the order crosses immediately
)

// FirstSteps buys a fixed block of shares and waits for the fill report.
type FirstSteps struct {
	engine *engine.Engine
	symbol string
	qty    int
}

// NewFirstSteps builds the strategy; a zero OrderQty buys 100 shares.
func NewFirstSteps(params Params) *FirstSteps {
	qty := params.OrderQty
	if qty <= 0 {
		qty = _firstStepsQty
	}
	return &FirstSteps{
		engine: params.Engine,
		symbol: params.Symbol,
		qty:    qty,
	}
}

func (s *FirstSteps) Name() string { return "first_steps" }

// Run places one aggressive limit buy and returns once the engine has
// reconciled the close report for it.
func (s *FirstSteps) Run(ctx context.Context) error {
	done := make(chan struct{})
	err := s.engine.TrackOrders(ctx, s.symbol, func(report api.Order) {
		if report.Open {
			return
		}
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return errors.Wrap(err, "track orders")
	}

	order, err := s.engine.Buy(ctx, s.symbol, _firstStepsLimit, s.qty, 0)
	if err != nil {
		return errors.Wrap(err, "place buy")
	}
	logs.Infof("first_steps: placed buy, id: %d, qty: %d", order.ID, s.qty)

	if s.engine.Position(s.symbol) >= s.qty {
		// filled within the placement round trip
		logs.Infof("first_steps: done, position: %d", s.engine.Position(s.symbol))
		return nil
	}

	select {
	case <-done:
		logs.Infof("first_steps: done, position: %d", s.engine.Position(s.symbol))
		return nil
	case <-ctx.Done():
		return nil
	}
}
