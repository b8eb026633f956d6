package api

import (
	"context"
	"fmt"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"
)

// Feed is one persistent push subscription. Events are decoded and delivered
// to the handler from a single dedicated goroutine, in arrival order.
type Feed struct {
	wss    *ws.WebSocket
	cancel func()
}

// Close detaches the subscription and tears the socket down.
func (f *Feed) Close() {
	f.cancel()
	f.wss.Close()
}

// TickerTape subscribes to the quote stream for a symbol. Malformed envelopes
// are logged and dropped, never surfaced as errors.
func (v *Venue) TickerTape(ctx context.Context, symbol string, handler func(Quote)) (*Feed, error) {
	url := fmt.Sprintf("%s%s/venues/%s/tickertape/stocks/%s?apiKey=%s",
		v.client.baseWsURL, v.Account, v.Name, symbol, v.client.apiKey)

	wss := ws.New(ctx, url)
	if err := wss.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "start tickertape wss").With("symbol", symbol)
	}

	ch, cancel := wss.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				env, ok := ws.ReadMessage[quoteEnvelope](m)
				if !ok {
					logs.Warnf("tickertape: drop undecodable envelope, symbol: %s", symbol)
					continue
				}
				if !env.OK {
					logs.Warnf("tickertape: drop envelope with ok false, symbol: %s", symbol)
					continue
				}

				handler(env.Quote)
			}
		}
	}()

	return &Feed{wss: wss, cancel: cancel}, nil
}

// Executions subscribes to the order-update stream for a symbol. Malformed
// envelopes are logged and dropped, never surfaced as errors.
func (v *Venue) Executions(ctx context.Context, symbol string, handler func(Order)) (*Feed, error) {
	url := fmt.Sprintf("%s%s/venues/%s/executions/stocks/%s?apiKey=%s",
		v.client.baseWsURL, v.Account, v.Name, symbol, v.client.apiKey)

	wss := ws.New(ctx, url)
	if err := wss.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "start executions wss").With("symbol", symbol)
	}

	ch, cancel := wss.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				env, ok := ws.ReadMessage[orderEnvelope](m)
				if !ok {
					logs.Warnf("executions: drop undecodable envelope, symbol: %s", symbol)
					continue
				}
				if !env.OK {
					logs.Warnf("executions: drop envelope with ok false, symbol: %s", symbol)
					continue
				}

				handler(env.Order)
			}
		}
	}()

	return &Feed{wss: wss, cancel: cancel}, nil
}
