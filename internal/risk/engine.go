package risk

import (
	"time"

	"stockfighter/internal/api"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Config defines client-side pre-trade limits. Zero values disable a check.
type Config struct {
	KillSwitch           bool          `json:"killSwitch"`
	MaxOrderQty          int           `json:"maxOrderQty"`
	MaxOrderNotional     int64         `json:"maxOrderNotional"`
	MaxPosition          int           `json:"maxPosition"`
	MaxPriceDeviationBps int64         `json:"maxPriceDeviationBps"`
	OrderRateLimit       int           `json:"orderRateLimit"`
	OrderRateWindow      time.Duration `json:"orderRateWindow"`
}

// Intent is the order a strategy is about to place.
type Intent struct {
	Symbol    string
	Direction api.Direction
	Price     int
	Qty       int
}

// StateView provides the engine-owned state a check needs.
type StateView struct {
	Position       int
	ReferencePrice int
	Now            int64
}

// Action is the outcome of an evaluation.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason explains a denial.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxQty
	ReasonPriceBand
	ReasonMaxNotional
	ReasonPositionLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill switch"
	case ReasonRateLimit:
		return "order rate limit"
	case ReasonMaxQty:
		return "max order qty"
	case ReasonPriceBand:
		return "price band"
	case ReasonMaxNotional:
		return "max order notional"
	case ReasonPositionLimit:
		return "position limit"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating one intent.
type Decision struct {
	Action Action
	Reason Reason
}

// Engine evaluates pre-trade checks. Not safe for concurrent use; the trading
// engine calls it while holding its own lock.
type Engine struct {
	cfg             Config
	rateWindowStart int64
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate applies the configured checks to an order intent.
func (e *Engine) Evaluate(intent Intent, state StateView) Decision {
	now := state.Now
	if now == 0 {
		now = time.Now().UTC().UnixNano()
	}

	if e.cfg.KillSwitch {
		return Decision{Action: ActionDeny, Reason: ReasonKillSwitch}
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		window := int64(e.cfg.OrderRateWindow)
		if e.rateWindowStart == 0 || now-e.rateWindowStart >= window {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return Decision{Action: ActionDeny, Reason: ReasonRateLimit}
		}
	}

	if e.cfg.MaxOrderQty > 0 && intent.Qty > e.cfg.MaxOrderQty {
		return Decision{Action: ActionDeny, Reason: ReasonMaxQty}
	}

	if e.cfg.MaxPriceDeviationBps > 0 && intent.Price > 0 && state.ReferencePrice > 0 {
		diff := absInt64(int64(intent.Price) - int64(state.ReferencePrice))
		if exceedsDeviation(diff, int64(state.ReferencePrice), e.cfg.MaxPriceDeviationBps) {
			return Decision{Action: ActionDeny, Reason: ReasonPriceBand}
		}
	}

	notional, overflow := mulNotional(intent.Price, intent.Qty)
	if overflow {
		return Decision{Action: ActionDeny, Reason: ReasonMaxNotional}
	}
	if e.cfg.MaxOrderNotional > 0 && notional > e.cfg.MaxOrderNotional {
		return Decision{Action: ActionDeny, Reason: ReasonMaxNotional}
	}

	nextPos := applyDirection(state.Position, intent.Direction, intent.Qty)
	if e.cfg.MaxPosition > 0 && absInt(nextPos) > e.cfg.MaxPosition {
		return Decision{Action: ActionDeny, Reason: ReasonPositionLimit}
	}

	return Decision{Action: ActionAllow, Reason: ReasonNone}
}

func mulNotional(price, qty int) (int64, bool) {
	p := int64(price)
	q := int64(qty)
	if p == 0 || q == 0 {
		return 0, false
	}
	if p < 0 {
		p = -p
	}
	if q < 0 {
		q = -q
	}
	if p > maxInt64/q {
		return 0, true
	}
	return int64(price) * int64(qty), false
}

func applyDirection(pos int, direction api.Direction, qty int) int {
	switch direction {
	case api.DirectionBuy:
		return pos + qty
	case api.DirectionSell:
		return pos - qty
	default:
		return pos
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func exceedsDeviation(diff, ref, bps int64) bool {
	if diff <= 0 || ref <= 0 || bps <= 0 {
		return false
	}
	if diff > maxInt64/10000 {
		return true
	}
	if ref > maxInt64/bps {
		return true
	}
	return diff*10000 > ref*bps
}
