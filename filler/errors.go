package filler

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// reconstruction failures -- the transaction is skipped
var (
	ErrMissingOpenEvent  = errors.New("logs have no open event")
	ErrMalformedPayload  = errors.New("malformed event payload")
	ErrNoFillInstruction = errors.New("resolved order has no fill instructions")
	ErrBadAuthorization  = errors.New("bad authorization")
)

// credential conversion failures, surfaced as the cause of ErrBadAuthorization
var (
	ErrMalformedSignature = errors.New("malformed authorization signature")
	ErrNonceOverflow      = errors.New("authorization nonce overflows uint64")
	ErrChainIDOverflow    = errors.New("authorization chain id overflows uint256")
)

// fill failures
var (
	ErrSubmissionRejected = errors.New("transaction rejected")
	ErrTransport          = errors.New("transport error")
)

func HttpCodeCheck(httpCode int) string {
	// 429 Too Many Requests
	if httpCode == 429 {
		return "Too Many Requests, code:429"
	}
	// 503 Service Unavailable
	if httpCode == 503 {
		return "Service Unavailable, code:503"
	}
	// 504 Gateway Timeout
	if httpCode == 504 {
		return "Gateway Timeout, code:504"
	}
	return ""
}

// classifySubmitError maps a SendTransaction failure onto the fill error kinds.
// A JSON-RPC error response means the node received and refused the transaction;
// anything else never got an answer from the node.
func classifySubmitError(err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return transportError(err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	return transportError(err)
}

func transportError(err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if msg := HttpCodeCheck(httpErr.StatusCode); msg != "" {
			return fmt.Errorf("%w: %s: %w", ErrTransport, msg, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
