package verificationservice

import (
	"context"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
)

// Outcome reports the authoritative session status after a proof submission.
type Outcome struct {
	SessionID string
	Status    domain.SessionStatus
	Retryable bool
}

type IVerificationService interface {
	// SubmitProof drives the session state machine forward: it claims the
	// session, asks the chain adapter what happened on-chain and lands the
	// terminal outcome. Exactly one concurrent caller per session gets past
	// the claim; the rest receive domain.ErrAlreadyProcessing.
	SubmitProof(ctx context.Context, sessionID, proof string) (*Outcome, error)
}

// TxRunner is the transactional boundary the completion path runs under.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ex database.Execer) error) error
}

// Broadcaster pushes session snapshots to subscribed SDK clients.
type Broadcaster interface {
	BroadcastSession(session domain.PaymentSession)
}
