package sessionrepo

import (
	"context"
	"time"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
)

type ISessionRepository interface {
	Create(ctx context.Context, session domain.PaymentSession) error
	GetByID(ctx context.Context, id string) (domain.PaymentSession, error)

	// ClaimProcessing is the mutual-exclusion gate: a conditional
	// pending -> processing transition. Returns false when the session is
	// not currently pending (someone else won the race, or it is terminal).
	ClaimProcessing(ctx context.Context, id string) (bool, error)

	// ReleaseToPending reverts processing -> pending after an indeterminate
	// verification attempt.
	ReleaseToPending(ctx context.Context, id string) error

	// Complete performs processing -> completed inside the caller's
	// transaction so that the status write and the notification enqueue
	// land together or not at all.
	Complete(ctx context.Context, ex database.Execer, id, proof string, metadata []byte) error

	// Fail performs processing -> failed.
	Fail(ctx context.Context, id, proof, reason string) error

	// MarkExpired transitions a claimed (processing) session to expired when
	// a proof arrives after the deadline.
	MarkExpired(ctx context.Context, id string) error

	// ReleaseStaleProcessing returns processing sessions untouched since
	// before to pending. Covers claim holders that died mid-verification.
	ReleaseStaleProcessing(ctx context.Context, before time.Time) (int64, error)

	// ExpirePending is the sweep: conditional update of pending sessions
	// past their deadline. Safe to run from concurrent instances.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}
