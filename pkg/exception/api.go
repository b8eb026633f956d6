package exception

import "errors"

// API errors
var (
	ErrAPIStatus       = errors.New("api: unexpected status code")
	ErrAPINotOK        = errors.New("api: response ok is false")
	ErrAPIDecodeBody   = errors.New("api: decode response body")
	ErrAPIEmptyKey     = errors.New("api: empty api key")
	ErrAPIKeyFile      = errors.New("api: read key file")
	ErrAPIInvalidOrder = errors.New("api: invalid order parameters")
)
