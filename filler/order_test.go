package filler

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTxHash = common.HexToHash("0xfeed")

func TestReconstructOpenOnly(t *testing.T) {
	r := newTestReconstructor()
	logs := []types.Log{openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0xde, 0xad}))}

	order, err := r.Reconstruct(logs)
	require.NoError(t, err)
	assert.Equal(t, testOrderID, order.ID)
	assert.Equal(t, []byte{0xde, 0xad}, order.FillData)
	assert.NotNil(t, order.AuthList)
	assert.Empty(t, order.AuthList)
}

func TestReconstructWithDelegation(t *testing.T) {
	r := newTestReconstructor()
	credA := signedAuth(t, newTestKey(t), 31337, 0)

	testCases := []struct {
		name string
		logs []types.Log
	}{
		{
			name: "open then delegation",
			logs: []types.Log{
				openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0xde, 0xad})),
				delegationLog(t, testTxHash, ToWire(credA)),
			},
		},
		{
			name: "delegation then open",
			logs: []types.Log{
				delegationLog(t, testTxHash, ToWire(credA)),
				openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0xde, 0xad})),
			},
		},
		{
			name: "unrelated logs in between",
			logs: []types.Log{
				{Address: common.HexToAddress("0x1234"), Topics: []common.Hash{common.HexToHash("0x99")}},
				openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0xde, 0xad})),
				{Address: testOriginSettler},
				delegationLog(t, testTxHash, ToWire(credA)),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order, err := r.Reconstruct(tc.logs)
			require.NoError(t, err)
			assert.Equal(t, Order{
				ID:       testOrderID,
				FillData: []byte{0xde, 0xad},
				AuthList: []types.SetCodeAuthorization{credA},
			}, order)
		})
	}
}

func TestReconstructMissingOpenEvent(t *testing.T) {
	r := newTestReconstructor()
	credA := signedAuth(t, newTestKey(t), 1, 0)

	foreignOpen := openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0x01}))
	foreignOpen.Address = common.HexToAddress("0xbad")

	testCases := []struct {
		name string
		logs []types.Log
	}{
		{name: "no logs", logs: nil},
		{name: "delegation only", logs: []types.Log{delegationLog(t, testTxHash, ToWire(credA))}},
		{name: "logs without topics", logs: []types.Log{{Address: testOriginSettler}}},
		{name: "open from another emitter", logs: []types.Log{foreignOpen}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Reconstruct(tc.logs)
			assert.ErrorIs(t, err, ErrMissingOpenEvent)
			assert.NotErrorIs(t, err, ErrMalformedPayload)
			assert.NotErrorIs(t, err, ErrBadAuthorization)
		})
	}
}

func TestReconstructDecodeFailures(t *testing.T) {
	r := newTestReconstructor()
	key := newTestKey(t)

	noTopic := openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0x01}))
	noTopic.Topics = noTopic.Topics[:1]

	truncated := openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0x01}))
	truncated.Data = truncated.Data[:40]

	badDelegation := delegationLog(t, testTxHash)
	badDelegation.Data = []byte{0x01, 0x02}

	shortSig := ToWire(signedAuth(t, key, 1, 0))
	shortSig.Signature = shortSig.Signature[:10]

	bigNonce := ToWire(signedAuth(t, key, 1, 0))
	bigNonce.Nonce = new(big.Int).Lsh(big.NewInt(1), 100)

	open := openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0x01}))

	testCases := []struct {
		name     string
		logs     []types.Log
		wantErrs []error
	}{
		{
			name:     "open without order id topic",
			logs:     []types.Log{noTopic},
			wantErrs: []error{ErrMalformedPayload},
		},
		{
			name:     "truncated open payload",
			logs:     []types.Log{truncated},
			wantErrs: []error{ErrMalformedPayload},
		},
		{
			name:     "no fill instructions",
			logs:     []types.Log{openLog(t, testTxHash, testOrderID, testResolvedOrder())},
			wantErrs: []error{ErrNoFillInstruction},
		},
		{
			name:     "undecodable delegation",
			logs:     []types.Log{open, badDelegation},
			wantErrs: []error{ErrMalformedPayload},
		},
		{
			name:     "malformed signature",
			logs:     []types.Log{open, delegationLog(t, testTxHash, ToWire(signedAuth(t, key, 1, 0)), shortSig)},
			wantErrs: []error{ErrBadAuthorization, ErrMalformedSignature},
		},
		{
			name:     "nonce overflow",
			logs:     []types.Log{open, delegationLog(t, testTxHash, bigNonce)},
			wantErrs: []error{ErrBadAuthorization, ErrNonceOverflow},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order, err := r.Reconstruct(tc.logs)
			for _, want := range tc.wantErrs {
				assert.ErrorIs(t, err, want)
			}
			assert.Equal(t, Order{}, order)
		})
	}
}

func TestReconstructTakesFirstFillInstruction(t *testing.T) {
	r := newTestReconstructor()
	logs := []types.Log{openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0xaa}, []byte{0xbb}, []byte{0xcc}))}

	order, err := r.Reconstruct(logs)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, order.FillData)
}

func TestReconstructUsesFirstOpenEvent(t *testing.T) {
	r := newTestReconstructor()
	second := common.HexToHash("0x02")
	logs := []types.Log{
		openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0x01})),
		openLog(t, testTxHash, second, testResolvedOrder([]byte{0x02})),
	}

	order, err := r.Reconstruct(logs)
	require.NoError(t, err)
	assert.Equal(t, testOrderID, order.ID)
	assert.Equal(t, []byte{0x01}, order.FillData)
}

func TestReconstructIsDeterministic(t *testing.T) {
	r := newTestReconstructor()
	credA := signedAuth(t, newTestKey(t), 1, 7)
	logs := []types.Log{
		openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0xde, 0xad})),
		delegationLog(t, testTxHash, ToWire(credA)),
	}

	first, err := r.Reconstruct(logs)
	require.NoError(t, err)
	second, err := r.Reconstruct(logs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconstructWithoutDelegationNeverAuthorizes(t *testing.T) {
	r := newTestReconstructor()
	for i := 1; i <= 16; i++ {
		id := common.BigToHash(big.NewInt(int64(i)))
		data := make([]byte, i*7)
		for j := range data {
			data[j] = byte(i + j)
		}

		order, err := r.Reconstruct([]types.Log{openLog(t, testTxHash, id, testResolvedOrder(data))})
		require.NoError(t, err)
		assert.Equal(t, id, order.ID)
		assert.Equal(t, data, order.FillData)
		assert.Empty(t, order.AuthList)
	}
}

func TestReconstructAnyEmitter(t *testing.T) {
	b := MustInitBindings()
	r := NewReconstructor(b, b.Topics(common.Address{}), newTestLogger())

	open := openLog(t, testTxHash, testOrderID, testResolvedOrder([]byte{0x01}))
	open.Address = common.HexToAddress("0xabc")

	order, err := r.Reconstruct([]types.Log{open})
	require.NoError(t, err)
	assert.Equal(t, testOrderID, order.ID)
}
