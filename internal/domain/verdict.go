package domain

import "github.com/shopspring/decimal"

// VerdictResult is the chain adapter's answer for one proof lookup.
type VerdictResult string

const (
	VerdictAccepted        VerdictResult = "accepted"
	VerdictInsufficient    VerdictResult = "insufficient"
	VerdictUnconfirmed     VerdictResult = "unconfirmed"
	VerdictNotFound        VerdictResult = "not_found"
	VerdictAddressMismatch VerdictResult = "address_mismatch"
)

type Verdict struct {
	Result             VerdictResult
	ActualAmount       decimal.Decimal
	ActualToken        string
	ConfirmationHeight int64
	TxID               string
}
