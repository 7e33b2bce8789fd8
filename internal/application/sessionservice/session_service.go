package sessionservice

import (
	"context"

	"github.com/whiskypay/gateway/internal/domain"
)

type CreateSessionResult struct {
	Session domain.PaymentSession
	Token   string
}

type ISessionService interface {
	// CreateSession validates the merchant and terms, allocates the pay
	// address for the requested chain and persists a pending session.
	CreateSession(ctx context.Context, req domain.CreateSessionRequest) (*CreateSessionResult, error)

	// GetSession is a read: callers must not infer payment completion from
	// mere existence.
	GetSession(ctx context.Context, id string) (domain.PaymentSession, error)

	// ExpireStale sweeps pending sessions past their deadline. Idempotent
	// and safe under concurrent instances.
	ExpireStale(ctx context.Context) error
}
