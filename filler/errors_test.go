package filler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
)

func TestHttpCodeCheck(t *testing.T) {
	assert.Equal(t, "Too Many Requests, code:429", HttpCodeCheck(http.StatusTooManyRequests))
	assert.Equal(t, "Service Unavailable, code:503", HttpCodeCheck(http.StatusServiceUnavailable))
	assert.Equal(t, "Gateway Timeout, code:504", HttpCodeCheck(http.StatusGatewayTimeout))
	assert.Equal(t, "", HttpCodeCheck(http.StatusInternalServerError))
}

func TestClassifySubmitError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantErr  error
		otherErr error
	}{
		{
			name:     "node error response",
			err:      &jsonRPCError{code: -32000, msg: "replacement transaction underpriced"},
			wantErr:  ErrSubmissionRejected,
			otherErr: ErrTransport,
		},
		{
			name:     "wrapped node error response",
			err:      fmt.Errorf("send: %w", &jsonRPCError{code: -32003, msg: "authorization invalid"}),
			wantErr:  ErrSubmissionRejected,
			otherErr: ErrTransport,
		},
		{
			name:     "http status",
			err:      rpc.HTTPError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"},
			wantErr:  ErrTransport,
			otherErr: ErrSubmissionRejected,
		},
		{
			name:     "no answer",
			err:      errors.New("context deadline exceeded"),
			wantErr:  ErrTransport,
			otherErr: ErrSubmissionRejected,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifySubmitError(tc.err)
			assert.ErrorIs(t, got, tc.wantErr)
			assert.NotErrorIs(t, got, tc.otherErr)
			assert.Contains(t, got.Error(), tc.err.Error())
		})
	}
}

func TestTransportErrorAddsStatusHint(t *testing.T) {
	err := transportError(rpc.HTTPError{StatusCode: http.StatusGatewayTimeout, Status: "504 Gateway Timeout"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "Gateway Timeout, code:504")

	err = transportError(errors.New("EOF"))
	assert.Equal(t, "transport error: EOF", err.Error())
}
