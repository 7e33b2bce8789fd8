package sessionrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
)

type sessionRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ISessionRepository {
	return &sessionRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

func (r *sessionRepositoryImpl) Create(ctx context.Context, session domain.PaymentSession) error {
	const query = `
		INSERT INTO payment_sessions (
			session_id, merchant_id, customer_email, plan_id, chain, pay_address,
			expected_amount, token_symbol, status, proof, metadata, error_message,
			created_at, expires_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.MerchantID,
		session.CustomerEmail,
		session.PlanID,
		string(session.Chain),
		session.PayAddress,
		session.ExpectedAmount.String(),
		session.TokenSymbol,
		string(session.Status),
		session.Proof,
		pqtype.NullRawMessage{RawMessage: session.Metadata, Valid: session.Metadata != nil},
		session.ErrorMessage,
		session.CreatedAt,
		session.ExpiresAt,
		session.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", session.ID).Msg("Failed to create session")
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepositoryImpl) GetByID(ctx context.Context, id string) (domain.PaymentSession, error) {
	const query = `
		SELECT session_id, merchant_id, customer_email, plan_id, chain, pay_address,
			expected_amount, token_symbol, status, proof, metadata, error_message,
			created_at, expires_at, updated_at
		FROM payment_sessions
		WHERE session_id = $1`

	var (
		session  domain.PaymentSession
		chain    string
		status   string
		amount   string
		metadata pqtype.NullRawMessage
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.MerchantID,
		&session.CustomerEmail,
		&session.PlanID,
		&chain,
		&session.PayAddress,
		&amount,
		&session.TokenSymbol,
		&status,
		&session.Proof,
		&metadata,
		&session.ErrorMessage,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PaymentSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", id).Msg("Failed to get session")
		return domain.PaymentSession{}, fmt.Errorf("failed to get session: %w", err)
	}

	session.Chain = domain.Chain(chain)
	session.Status = domain.SessionStatus(status)
	session.Metadata = metadata.RawMessage
	session.ExpectedAmount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("failed to parse expected amount: %w", err)
	}

	return session, nil
}

func (r *sessionRepositoryImpl) ClaimProcessing(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE payment_sessions
		SET status = $1, updated_at = now()
		WHERE session_id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query,
		string(domain.SessionStatusProcessing),
		id,
		string(domain.SessionStatusPending),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", id).Msg("Failed to claim session")
		return false, fmt.Errorf("failed to claim session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *sessionRepositoryImpl) ReleaseToPending(ctx context.Context, id string) error {
	return r.transition(ctx, id, domain.SessionStatusProcessing, domain.SessionStatusPending)
}

func (r *sessionRepositoryImpl) MarkExpired(ctx context.Context, id string) error {
	return r.transition(ctx, id, domain.SessionStatusProcessing, domain.SessionStatusExpired)
}

func (r *sessionRepositoryImpl) transition(ctx context.Context, id string, from, to domain.SessionStatus) error {
	const query = `
		UPDATE payment_sessions
		SET status = $1, updated_at = now()
		WHERE session_id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", id).Str("status", string(to)).Msg("Failed to update session status")
		return fmt.Errorf("failed to update session status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("session %s not in %s state", id, from)
	}
	return nil
}

func (r *sessionRepositoryImpl) Complete(ctx context.Context, ex database.Execer, id, proof string, metadata []byte) error {
	const query = `
		UPDATE payment_sessions
		SET status = $1, proof = $2, metadata = $3, updated_at = now()
		WHERE session_id = $4 AND status = $5`

	result, err := ex.ExecContext(ctx, query,
		string(domain.SessionStatusCompleted),
		proof,
		pqtype.NullRawMessage{RawMessage: metadata, Valid: metadata != nil},
		id,
		string(domain.SessionStatusProcessing),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", id).Msg("Failed to complete session")
		return fmt.Errorf("failed to complete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("session %s not in processing state", id)
	}
	return nil
}

func (r *sessionRepositoryImpl) Fail(ctx context.Context, id, proof, reason string) error {
	const query = `
		UPDATE payment_sessions
		SET status = $1, proof = $2, error_message = $3, updated_at = now()
		WHERE session_id = $4 AND status = $5`

	result, err := r.db.ExecContext(ctx, query,
		string(domain.SessionStatusFailed),
		proof,
		reason,
		id,
		string(domain.SessionStatusProcessing),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", id).Msg("Failed to mark session failed")
		return fmt.Errorf("failed to mark session failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("session %s not in processing state", id)
	}
	return nil
}

func (r *sessionRepositoryImpl) ReleaseStaleProcessing(ctx context.Context, before time.Time) (int64, error) {
	const query = `
		UPDATE payment_sessions
		SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < $3`

	result, err := r.db.ExecContext(ctx, query,
		string(domain.SessionStatusPending),
		string(domain.SessionStatusProcessing),
		before,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to release stale processing sessions")
		return 0, fmt.Errorf("failed to release stale processing sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

func (r *sessionRepositoryImpl) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE payment_sessions
		SET status = $1, updated_at = now()
		WHERE status = $2 AND expires_at < $3`

	result, err := r.db.ExecContext(ctx, query,
		string(domain.SessionStatusExpired),
		string(domain.SessionStatusPending),
		now,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to expire stale sessions")
		return 0, fmt.Errorf("failed to expire stale sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}
