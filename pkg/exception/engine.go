package exception

import "errors"

var (
	ErrEngineClosed     = errors.New("engine: closed")
	ErrEngineNilGateway = errors.New("engine: nil gateway")
	ErrEngineNilFeeds   = errors.New("engine: nil feed source")
	ErrEngineRiskReject = errors.New("engine: order rejected by risk check")
)

var (
	ErrGMNoVenues  = errors.New("gm: level has no venues")
	ErrGMNoTickers = errors.New("gm: level has no tickers")
)
