package chains

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/pkg/config"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newTestSolanaAdapter(serverURL string) *SolanaAdapter {
	return NewSolanaAdapter(
		config.SolanaConfig{BaseURL: serverURL, APIKey: "test-key", Timeout: time.Second},
		map[string]string{"USDC": usdcMint},
		zerolog.Nop(),
	)
}

func solanaServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/transactions", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(response))
	}))
}

func TestSolanaVerifyNativeTransferAccepted(t *testing.T) {
	server := solanaServer(t, `[{
		"signature": "sig1",
		"slot": 250000000,
		"nativeTransfers": [
			{"fromUserAccount": "Payer111", "toUserAccount": "PayAddr111", "amount": 2500000000}
		]
	}]`)
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	verdict, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		SessionID:      "sess-1",
		PayAddress:     "PayAddr111",
		ExpectedAmount: decimal.RequireFromString("2.5"),
		TokenSymbol:    "SOL",
		Proof:          "sig1",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.VerdictAccepted, verdict.Result)
	assert.True(t, verdict.ActualAmount.Equal(decimal.RequireFromString("2.5")), "got %s", verdict.ActualAmount)
	assert.Equal(t, "SOL", verdict.ActualToken)
	assert.Equal(t, int64(250000000), verdict.ConfirmationHeight)
	assert.Equal(t, "sig1", verdict.TxID)
}

func TestSolanaVerifyTokenTransferAccepted(t *testing.T) {
	server := solanaServer(t, `[{
		"signature": "sig1",
		"slot": 250000000,
		"tokenTransfers": [
			{"fromUserAccount": "Payer111", "toUserAccount": "PayAddr111", "mint": "`+usdcMint+`", "tokenAmount": 9.95}
		]
	}]`)
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	verdict, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		PayAddress:     "PayAddr111",
		ExpectedAmount: decimal.RequireFromString("10"),
		TokenSymbol:    "USDC",
		Proof:          "sig1",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.VerdictAccepted, verdict.Result)
	assert.True(t, verdict.ActualAmount.Equal(decimal.RequireFromString("9.95")), "got %s", verdict.ActualAmount)
	assert.Equal(t, "USDC", verdict.ActualToken)
}

func TestSolanaVerifyTokenAmountKeepsFullPrecision(t *testing.T) {
	// An amount with more significant digits than float64 can hold must
	// arrive in the verdict digit for digit.
	server := solanaServer(t, `[{
		"signature": "sig1",
		"slot": 250000000,
		"tokenTransfers": [
			{"fromUserAccount": "Payer111", "toUserAccount": "PayAddr111", "mint": "`+usdcMint+`", "tokenAmount": 123456789.123456789}
		]
	}]`)
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	verdict, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		PayAddress:     "PayAddr111",
		ExpectedAmount: decimal.RequireFromString("123456789.123456789"),
		TokenSymbol:    "USDC",
		Proof:          "sig1",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.VerdictAccepted, verdict.Result)
	assert.True(t, verdict.ActualAmount.Equal(decimal.RequireFromString("123456789.123456789")), "got %s", verdict.ActualAmount)
}

func TestSolanaVerifyUnknownSignatureIsUnconfirmed(t *testing.T) {
	server := solanaServer(t, `[]`)
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	verdict, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		PayAddress:  "PayAddr111",
		TokenSymbol: "SOL",
		Proof:       "sig1",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.VerdictUnconfirmed, verdict.Result)
}

func TestSolanaVerifyFailedTransactionIsNotFound(t *testing.T) {
	server := solanaServer(t, `[{
		"signature": "sig1",
		"transactionError": {"InstructionError": [0, "Custom"]}
	}]`)
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	verdict, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		PayAddress:  "PayAddr111",
		TokenSymbol: "SOL",
		Proof:       "sig1",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.VerdictNotFound, verdict.Result)
}

func TestSolanaVerifyWrongRecipientIsAddressMismatch(t *testing.T) {
	server := solanaServer(t, `[{
		"signature": "sig1",
		"slot": 250000000,
		"nativeTransfers": [
			{"fromUserAccount": "Payer111", "toUserAccount": "SomeoneElse", "amount": 2500000000}
		]
	}]`)
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	verdict, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		PayAddress:  "PayAddr111",
		TokenSymbol: "SOL",
		Proof:       "sig1",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.VerdictAddressMismatch, verdict.Result)
}

func TestSolanaVerifyUpstreamErrorIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	_, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		PayAddress:  "PayAddr111",
		TokenSymbol: "SOL",
		Proof:       "sig1",
	})
	assert.Error(t, err)
}

func TestSolanaVerifyUnknownMintIsError(t *testing.T) {
	server := solanaServer(t, `[{"signature": "sig1", "slot": 1}]`)
	defer server.Close()

	adapter := newTestSolanaAdapter(server.URL)
	_, err := adapter.VerifyPayment(context.Background(), VerifyParams{
		PayAddress:  "PayAddr111",
		TokenSymbol: "SHIB",
		Proof:       "sig1",
	})
	assert.Error(t, err)
}

func TestSolanaAllocateAddressUsesMerchantReceivingAddress(t *testing.T) {
	adapter := newTestSolanaAdapter("http://unused")

	addr, err := adapter.AllocateAddress(context.Background(), domain.Merchant{
		ID: "m1", ReceivingAddress: "RecvAddr111",
	})
	assert.NoError(t, err)
	assert.Equal(t, "RecvAddr111", addr)

	_, err = adapter.AllocateAddress(context.Background(), domain.Merchant{ID: "m2"})
	assert.Error(t, err)
}

func TestRegistryResolvesByChain(t *testing.T) {
	adapter := newTestSolanaAdapter("http://unused")
	registry := NewRegistry(adapter)

	got, err := registry.Get(domain.ChainSolana)
	assert.NoError(t, err)
	assert.Equal(t, adapter, got)

	_, err = registry.Get(domain.ChainMonero)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}
