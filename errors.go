package hxglue

import "errors"

// Sentinel errors for runtime operations.
var (
	ErrTokenFetch     = errors.New("hxglue: token fetch failed")
	ErrTokenDecode    = errors.New("hxglue: token response malformed")
	ErrResponseStatus = errors.New("hxglue: response status not ok")
	ErrNoTarget       = errors.New("hxglue: swap target not found")
	ErrUnknownSwap    = errors.New("hxglue: unknown swap style")
	ErrNoPage         = errors.New("hxglue: no page loaded")
)

// IsTokenError checks if err came from fetching or decoding a token.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenFetch) || errors.Is(err, ErrTokenDecode)
}

// IsResponseError checks if err reports a failed (non-2xx, non-422) response.
func IsResponseError(err error) bool {
	return errors.Is(err, ErrResponseStatus)
}
