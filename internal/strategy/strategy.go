// Package strategy implements the trading algorithms for the game levels.
// Each strategy drives one engine for one symbol and runs until its goal is
// met or the context ends.
package strategy

import (
	"context"
	"time"

	"stockfighter/internal/engine"
	"stockfighter/internal/ops"

	"github.com/yanun0323/errors"
)

// Strategy is a level algorithm.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// Run blocks until the strategy finishes or ctx is cancelled. A cancelled
	// context is a normal stop, not an error.
	Run(ctx context.Context) error
}

// Params wires a strategy to an engine. Zero tuning values select the
// strategy's own defaults.
type Params struct {
	Engine      *engine.Engine
	Symbol      string
	OrderQty    int
	TargetQty   int
	PriceOffset int
	Timeout     time.Duration
}

// FromSpec builds the strategy a config file selected.
func FromSpec(spec ops.StrategySpec, eng *engine.Engine, symbol string) (Strategy, error) {
	params := Params{
		Engine:      eng,
		Symbol:      symbol,
		OrderQty:    spec.OrderQty,
		TargetQty:   spec.TargetQty,
		PriceOffset: spec.PriceOffset,
		Timeout:     spec.Timeout,
	}
	return New(spec.Name, params)
}

// New builds a strategy by name.
func New(name string, params Params) (Strategy, error) {
	if params.Engine == nil {
		return nil, errors.New("strategy: nil engine")
	}
	if params.Symbol == "" {
		return nil, errors.New("strategy: empty symbol")
	}
	switch name {
	case "first_steps":
		return NewFirstSteps(params), nil
	case "chock_a_block":
		return NewChockABlock(params), nil
	case "sell_side":
		return NewSellSide(params), nil
	case "dueling_bulldozers":
		return NewDuelingBulldozers(params), nil
	default:
		return nil, errors.Errorf("strategy: unknown name: %s", name)
	}
}

func minOf(values []int) int {
	low := values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
	}
	return low
}

func maxOf(values []int) int {
	high := values[0]
	for _, v := range values[1:] {
		if v > high {
			high = v
		}
	}
	return high
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
