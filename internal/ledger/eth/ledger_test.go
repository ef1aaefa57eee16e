package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicledger/internal/ledger"
)

const contractAddress = "0xebADA26Ad64297D9ADcaD288f6f4319c2281C7dB"

func TestParseABI(t *testing.T) {
	parsed, err := ParseABI()
	require.NoError(t, err)

	for _, m := range []string{
		"requestService", "acceptServiceRequest", "updateServiceStatus", "getServiceRequest",
		"getTotalRequests", "departments", "addDepartment", "removeDepartment", "admin",
	} {
		_, ok := parsed.Methods[m]
		assert.True(t, ok, "method %s", m)
	}
	_, ok := parsed.Events[eventServiceRequested]
	assert.True(t, ok)
}

func TestDecodeRecord(t *testing.T) {
	parsed, err := ParseABI()
	require.NoError(t, err)
	outputs := parsed.Methods["getServiceRequest"].Outputs

	citizen := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	packed, err := outputs.Pack(serviceRequest{
		RequestId:       big.NewInt(5),
		Citizen:         citizen,
		ServiceCategory: "CALL:Health",
		ServiceName:     "Clinic Callback",
		Department:      common.Address{},
		Status:          1,
		CreatedAt:       big.NewInt(1_700_000_000),
		UpdatedAt:       big.NewInt(1_700_000_100),
	})
	require.NoError(t, err)

	out, err := outputs.Unpack(packed)
	require.NoError(t, err)

	rec, err := decodeRecord("getServiceRequest", out[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(5), rec.ID)
	assert.Equal(t, citizen.Hex(), rec.Owner)
	assert.Equal(t, "CALL:Health", rec.Category)
	assert.Equal(t, ledger.StatusProcessing, rec.Status)
	assert.False(t, rec.Assigned())
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), rec.CreatedAt)
}

func TestDecodeRecord_ZeroIDIsNotFound(t *testing.T) {
	_, err := decodeRecord("getServiceRequest", serviceRequest{RequestId: big.NewInt(0)})
	assert.True(t, ledger.IsNotFound(err))
}

func TestParseAssignedID(t *testing.T) {
	parsed, err := ParseABI()
	require.NoError(t, err)
	contract := bind.NewBoundContract(common.HexToAddress(contractAddress), parsed, nil, nil, nil)
	event := parsed.Events[eventServiceRequested]

	data, err := event.Inputs.NonIndexed().Pack("Identity", "Passport Renewal")
	require.NoError(t, err)
	citizen := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	t.Run("extracts id from ServiceRequested", func(t *testing.T) {
		logs := []*types.Log{
			{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Unrelated()"))}},
			{
				Topics: []common.Hash{event.ID, common.BigToHash(big.NewInt(42)), common.BytesToHash(citizen.Bytes())},
				Data:   data,
			},
		}
		id, ok := parseAssignedID(contract, parsed, logs)
		require.True(t, ok)
		assert.Equal(t, uint64(42), id)
	})

	t.Run("missing event", func(t *testing.T) {
		_, ok := parseAssignedID(contract, parsed, nil)
		assert.False(t, ok)
	})
}

type rpcDataError struct {
	msg  string
	data string
}

func (e rpcDataError) Error() string          { return e.msg }
func (e rpcDataError) ErrorData() interface{} { return e.data }

func encodeRevert(t *testing.T, reason string) string {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	payload, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, payload...))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ledger.ErrorCategory
		reason   string
	}{
		{
			name:     "revert with encoded reason",
			err:      rpcDataError{msg: "execution reverted", data: encodeRevert(t, "Request already assigned")},
			category: ledger.ErrorRejected,
			reason:   "Request already assigned",
		},
		{
			name:     "revert reason in message",
			err:      errors.New("execution reverted: Only assigned department can update status"),
			category: ledger.ErrorUnauthorized,
			reason:   "Only assigned department can update status",
		},
		{
			name:     "wrong chain",
			err:      errors.New("invalid chain id for signer"),
			category: ledger.ErrorWrongNetwork,
		},
		{
			name:     "insufficient funds",
			err:      errors.New("insufficient funds for gas * price + value"),
			category: ledger.ErrorRejected,
		},
		{
			name:     "transport failure",
			err:      fmt.Errorf("Post \"https://rpc\": %w", errors.New("connection refused")),
			category: ledger.ErrorUnavailable,
		},
		{
			name:     "abandoned",
			err:      context.Canceled,
			category: ledger.ErrorUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le := classify("op", tt.err)
			assert.Equal(t, tt.category, le.Category)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, le.Reason)
			}
			assert.ErrorIs(t, le, tt.err)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("rejects malformed contract address", func(t *testing.T) {
		_, err := New(nil, "not-an-address", nil, 11155111)
		require.Error(t, err)
	})

	t.Run("read-only client refuses writes", func(t *testing.T) {
		l, err := New(nil, contractAddress, nil, 11155111)
		require.NoError(t, err)

		_, err = l.SubmitRequest(context.Background(), "Identity", "Passport Renewal")
		assert.Equal(t, ledger.ErrorUnavailable, ledger.CategoryOf(err))
	})

	t.Run("keyed client signs as the key's address", func(t *testing.T) {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)

		l, err := New(nil, contractAddress, key, 11155111)
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), l.from)
	})
}
