package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Chain string

const (
	ChainSolana Chain = "solana"
	ChainMonero Chain = "monero"
)

func ParseChain(s string) (Chain, bool) {
	switch Chain(s) {
	case ChainSolana, ChainMonero:
		return Chain(s), true
	default:
		return "", false
	}
}

type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
	SessionStatusExpired    SessionStatus = "expired"
)

// Terminal reports whether no further transitions are permitted from s.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusExpired
}

type PaymentSession struct {
	ID             string          `json:"session_id" db:"session_id"`
	MerchantID     string          `json:"merchant_id" db:"merchant_id"`
	CustomerEmail  string          `json:"email" db:"customer_email"`
	PlanID         string          `json:"plan_id" db:"plan_id"`
	Chain          Chain           `json:"chain" db:"chain"`
	PayAddress     string          `json:"pay_address" db:"pay_address"`
	ExpectedAmount decimal.Decimal `json:"amount" db:"expected_amount"`
	TokenSymbol    string          `json:"currency" db:"token_symbol"`
	Status         SessionStatus   `json:"status" db:"status"`
	Proof          string          `json:"-" db:"proof"`
	Metadata       json.RawMessage `json:"-" db:"metadata"`
	ErrorMessage   string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at" db:"expires_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

func (s *PaymentSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
