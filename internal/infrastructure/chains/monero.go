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

// Monero amounts are denominated in piconero (1e-12 XMR).
const xmrDecimals = 12

// MoneroAdapter talks to monero-wallet-rpc. Each session gets a fresh
// subaddress, so incoming transfers are scoped to exactly one session and
// verification is an address-scoped sum over confirmed transfers.
type MoneroAdapter struct {
	rpcURL           string
	accountIndex     uint32
	minConfirmations int64
	httpClient       *http.Client
	logger           zerolog.Logger
}

type walletRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type walletRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type walletRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *walletRPCError `json:"error"`
}

type createAddressResult struct {
	Address      string `json:"address"`
	AddressIndex uint32 `json:"address_index"`
}

type addressIndexResult struct {
	Index struct {
		Major uint32 `json:"major"`
		Minor uint32 `json:"minor"`
	} `json:"index"`
}

type moneroTransfer struct {
	TxID          string `json:"txid"`
	Amount        int64  `json:"amount"`
	Confirmations int64  `json:"confirmations"`
	Height        int64  `json:"height"`
	Address       string `json:"address"`
}

type getTransfersResult struct {
	In   []moneroTransfer `json:"in"`
	Pool []moneroTransfer `json:"pool"`
}

func NewMoneroAdapter(cfg config.MoneroConfig, minConfirmations int64, logger zerolog.Logger) *MoneroAdapter {
	return &MoneroAdapter{
		rpcURL:           cfg.WalletRPCURL,
		accountIndex:     cfg.AccountIndex,
		minConfirmations: minConfirmations,
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

func (a *MoneroAdapter) Chain() domain.Chain {
	return domain.ChainMonero
}

// AllocateAddress requests a fresh subaddress from the wallet so each
// session has its own payment destination.
func (a *MoneroAdapter) AllocateAddress(ctx context.Context, merchant domain.Merchant) (string, error) {
	params := map[string]any{
		"account_index": a.accountIndex,
		"label":         fmt.Sprintf("merchant:%s", merchant.ID),
	}

	var result createAddressResult
	if err := a.call(ctx, "create_address", params, &result); err != nil {
		return "", fmt.Errorf("failed to create subaddress: %w", err)
	}

	a.logger.Info().
		Str("merchant_id", merchant.ID).
		Uint32("address_index", result.AddressIndex).
		Msg("Allocated Monero subaddress")
	return result.Address, nil
}

func (a *MoneroAdapter) VerifyPayment(ctx context.Context, params VerifyParams) (domain.Verdict, error) {
	// Monero sessions only ever carry XMR; anything else is broken session
	// terms, not an on-chain verdict.
	if params.TokenSymbol != "XMR" {
		return domain.Verdict{}, fmt.Errorf("unsupported token %s for monero session", params.TokenSymbol)
	}

	var idx addressIndexResult
	if err := a.call(ctx, "get_address_index", map[string]any{"address": params.PayAddress}, &idx); err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to resolve subaddress index: %w", err)
	}

	transferParams := map[string]any{
		"in":              true,
		"pool":            true,
		"account_index":   idx.Index.Major,
		"subaddr_indices": []uint32{idx.Index.Minor},
	}
	var transfers getTransfersResult
	if err := a.call(ctx, "get_transfers", transferParams, &transfers); err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to list transfers: %w", err)
	}

	var confirmed decimal.Decimal
	var height int64
	var txID string
	unconfirmedSeen := len(transfers.Pool) > 0

	for _, transfer := range transfers.In {
		if params.Proof != "" && transfer.TxID != params.Proof {
			continue
		}
		if transfer.Confirmations < a.minConfirmations {
			unconfirmedSeen = true
			continue
		}
		confirmed = confirmed.Add(decimal.NewFromInt(transfer.Amount).Shift(-xmrDecimals))
		if transfer.Height > height {
			height = transfer.Height
		}
		txID = transfer.TxID
	}

	if confirmed.IsZero() {
		if unconfirmedSeen {
			a.logger.Info().
				Str("session_id", params.SessionID).
				Str("pay_address", params.PayAddress).
				Msg("Transfer seen but not yet confirmed")
			return domain.Verdict{Result: domain.VerdictUnconfirmed}, nil
		}
		return domain.Verdict{Result: domain.VerdictNotFound}, nil
	}

	return domain.Verdict{
		Result:             domain.VerdictAccepted,
		ActualAmount:       confirmed,
		ActualToken:        "XMR",
		ConfirmationHeight: height,
		TxID:               txID,
	}, nil
}

func (a *MoneroAdapter) call(ctx context.Context, method string, params any, out any) error {
	reqBody, err := json.Marshal(walletRPCRequest{
		JSONRPC: "2.0",
		ID:      "0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rpcURL+"/json_rpc", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wallet RPC call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(resp.Body)
		a.logger.Error().
			Str("method", method).
			Int("status_code", resp.StatusCode).
			Str("response_body", string(responseBody)).
			Msg("Wallet RPC request failed")
		return fmt.Errorf("wallet RPC request failed with status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var rpcResp walletRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("wallet RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to parse RPC result: %w", err)
	}
	return nil
}
