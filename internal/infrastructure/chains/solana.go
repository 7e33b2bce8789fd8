package chains

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/pkg/config"
)

const solDecimals = 9

// SolanaAdapter resolves a transaction signature through an enhanced
// transactions API and matches transfers against the session's pay address.
type SolanaAdapter struct {
	baseURL       string
	apiKey        string
	mintAddresses map[string]string
	httpClient    *http.Client
	logger        zerolog.Logger
}

type solanaTransaction struct {
	Signature        string `json:"signature"`
	Type             string `json:"type"`
	Fee              int64  `json:"fee"`
	Slot             int64  `json:"slot"`
	Timestamp        int64  `json:"timestamp"`
	TransactionError any    `json:"transactionError"`
	NativeTransfers  []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Amount          int64  `json:"amount"`
	} `json:"nativeTransfers"`
	TokenTransfers []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Mint            string `json:"mint"`
		// Decoded as json.Number so high-decimal amounts survive intact.
		TokenAmount json.Number `json:"tokenAmount"`
	} `json:"tokenTransfers"`
}

func NewSolanaAdapter(cfg config.SolanaConfig, mintAddresses map[string]string, logger zerolog.Logger) *SolanaAdapter {
	return &SolanaAdapter{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		mintAddresses: mintAddresses,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

func (a *SolanaAdapter) Chain() domain.Chain {
	return domain.ChainSolana
}

// AllocateAddress reuses the merchant's registered receiving address; the
// session terms carry amount and token, so no per-session address is needed.
func (a *SolanaAdapter) AllocateAddress(ctx context.Context, merchant domain.Merchant) (string, error) {
	if merchant.ReceivingAddress == "" {
		return "", fmt.Errorf("merchant %s has no receiving address configured", merchant.ID)
	}
	return merchant.ReceivingAddress, nil
}

func (a *SolanaAdapter) VerifyPayment(ctx context.Context, params VerifyParams) (domain.Verdict, error) {
	tx, found, err := a.fetchTransaction(ctx, params.Proof)
	if err != nil {
		return domain.Verdict{}, err
	}

	// The enhanced API only indexes finalized transactions, so an unknown
	// signature is treated as not-yet-confirmed rather than missing; the
	// session stays eligible for a later attempt until it expires.
	if !found {
		a.logger.Info().
			Str("session_id", params.SessionID).
			Str("signature", params.Proof).
			Msg("Signature not indexed yet")
		return domain.Verdict{Result: domain.VerdictUnconfirmed}, nil
	}

	if tx.TransactionError != nil {
		a.logger.Warn().
			Str("session_id", params.SessionID).
			Str("signature", tx.Signature).
			Msg("Transaction failed on-chain")
		return domain.Verdict{Result: domain.VerdictNotFound, TxID: tx.Signature}, nil
	}

	if params.TokenSymbol == "SOL" {
		return a.matchNativeTransfer(tx, params), nil
	}
	return a.matchTokenTransfer(tx, params)
}

func (a *SolanaAdapter) fetchTransaction(ctx context.Context, signature string) (solanaTransaction, bool, error) {
	url := fmt.Sprintf("%s/v0/transactions?api-key=%s", a.baseURL, a.apiKey)
	requestBody := map[string][]string{"transactions": {signature}}
	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return solanaTransaction{}, false, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return solanaTransaction{}, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return solanaTransaction{}, false, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(resp.Body)
		a.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("response_body", string(responseBody)).
			Msg("Solana API request failed")
		return solanaTransaction{}, false, fmt.Errorf("API request failed with status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return solanaTransaction{}, false, fmt.Errorf("failed to read response body: %w", err)
	}

	var transactions []solanaTransaction
	if err := json.Unmarshal(body, &transactions); err != nil {
		return solanaTransaction{}, false, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if len(transactions) == 0 {
		return solanaTransaction{}, false, nil
	}
	return transactions[0], true, nil
}

func (a *SolanaAdapter) matchNativeTransfer(tx solanaTransaction, params VerifyParams) domain.Verdict {
	var received decimal.Decimal
	toPayAddress := false
	for _, transfer := range tx.NativeTransfers {
		if transfer.ToUserAccount != params.PayAddress {
			continue
		}
		toPayAddress = true
		received = received.Add(decimal.NewFromInt(transfer.Amount).Shift(-solDecimals))
	}

	if !toPayAddress {
		return domain.Verdict{Result: domain.VerdictAddressMismatch, TxID: tx.Signature}
	}

	// Amount judgment (including the tolerance rule) belongs to the
	// verification engine; the adapter reports what actually arrived.
	return domain.Verdict{
		Result:             domain.VerdictAccepted,
		ActualAmount:       received,
		ActualToken:        "SOL",
		ConfirmationHeight: tx.Slot,
		TxID:               tx.Signature,
	}
}

func (a *SolanaAdapter) matchTokenTransfer(tx solanaTransaction, params VerifyParams) (domain.Verdict, error) {
	targetMint, ok := a.mintAddresses[params.TokenSymbol]
	if !ok {
		return domain.Verdict{}, fmt.Errorf("no mint address configured for token %s", params.TokenSymbol)
	}

	var received decimal.Decimal
	toPayAddress := false
	for _, transfer := range tx.TokenTransfers {
		if transfer.ToUserAccount != params.PayAddress || transfer.Mint != targetMint {
			continue
		}
		amount, err := decimal.NewFromString(transfer.TokenAmount.String())
		if err != nil {
			return domain.Verdict{}, fmt.Errorf("failed to parse token amount %q: %w", transfer.TokenAmount, err)
		}
		toPayAddress = true
		received = received.Add(amount)
	}

	if !toPayAddress {
		return domain.Verdict{Result: domain.VerdictAddressMismatch, TxID: tx.Signature}, nil
	}

	return domain.Verdict{
		Result:             domain.VerdictAccepted,
		ActualAmount:       received,
		ActualToken:        params.TokenSymbol,
		ConfirmationHeight: tx.Slot,
		TxID:               tx.Signature,
	}, nil
}
