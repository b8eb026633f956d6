package risk

import (
	"testing"
	"time"

	"stockfighter/internal/api"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateChecks(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		intent Intent
		state  StateView
		want   Decision
	}{
		{
			name:   "zero config allows everything",
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 1_000_000, Qty: 1_000_000},
			want:   Decision{Action: ActionAllow, Reason: ReasonNone},
		},
		{
			name:   "kill switch denies first",
			cfg:    Config{KillSwitch: true, MaxOrderQty: 1},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 100, Qty: 10},
			want:   Decision{Action: ActionDeny, Reason: ReasonKillSwitch},
		},
		{
			name:   "qty over limit",
			cfg:    Config{MaxOrderQty: 100},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 100, Qty: 101},
			want:   Decision{Action: ActionDeny, Reason: ReasonMaxQty},
		},
		{
			name:   "qty at limit allowed",
			cfg:    Config{MaxOrderQty: 100},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 100, Qty: 100},
			want:   Decision{Action: ActionAllow, Reason: ReasonNone},
		},
		{
			name:   "notional over limit",
			cfg:    Config{MaxOrderNotional: 10_000},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionSell, Price: 101, Qty: 100},
			want:   Decision{Action: ActionDeny, Reason: ReasonMaxNotional},
		},
		{
			name:   "price outside band",
			cfg:    Config{MaxPriceDeviationBps: 500}, // 5%
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 5300, Qty: 10},
			state:  StateView{ReferencePrice: 5000},
			want:   Decision{Action: ActionDeny, Reason: ReasonPriceBand},
		},
		{
			name:   "price inside band",
			cfg:    Config{MaxPriceDeviationBps: 500},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 5200, Qty: 10},
			state:  StateView{ReferencePrice: 5000},
			want:   Decision{Action: ActionAllow, Reason: ReasonNone},
		},
		{
			name:   "band skipped without reference price",
			cfg:    Config{MaxPriceDeviationBps: 1},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 5300, Qty: 10},
			want:   Decision{Action: ActionAllow, Reason: ReasonNone},
		},
		{
			name:   "buy through position limit",
			cfg:    Config{MaxPosition: 500},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 100, Qty: 200},
			state:  StateView{Position: 400},
			want:   Decision{Action: ActionDeny, Reason: ReasonPositionLimit},
		},
		{
			name:   "sell reduces long position",
			cfg:    Config{MaxPosition: 500},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionSell, Price: 100, Qty: 200},
			state:  StateView{Position: 400},
			want:   Decision{Action: ActionAllow, Reason: ReasonNone},
		},
		{
			name:   "short side of position limit",
			cfg:    Config{MaxPosition: 500},
			intent: Intent{Symbol: "FOOB", Direction: api.DirectionSell, Price: 100, Qty: 200},
			state:  StateView{Position: -400},
			want:   Decision{Action: ActionDeny, Reason: ReasonPositionLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.cfg)
			assert.Equal(t, tt.want, e.Evaluate(tt.intent, tt.state))
		})
	}
}

func TestEvaluateRateLimit(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 2, OrderRateWindow: time.Second})
	intent := Intent{Symbol: "FOOB", Direction: api.DirectionBuy, Price: 100, Qty: 1}

	base := time.Now().UTC().UnixNano()
	assert.Equal(t, ActionAllow, e.Evaluate(intent, StateView{Now: base}).Action)
	assert.Equal(t, ActionAllow, e.Evaluate(intent, StateView{Now: base + 1}).Action)

	third := e.Evaluate(intent, StateView{Now: base + 2})
	assert.Equal(t, Decision{Action: ActionDeny, Reason: ReasonRateLimit}, third)

	// a fresh window resets the counter
	later := base + int64(2*time.Second)
	assert.Equal(t, ActionAllow, e.Evaluate(intent, StateView{Now: later}).Action)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "kill switch", ReasonKillSwitch.String())
	assert.Equal(t, "unknown", Reason(250).String())
}
