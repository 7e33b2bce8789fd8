package verificationservice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/chains"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
	"github.com/whiskypay/gateway/internal/repositories/jobrepo"
	"github.com/whiskypay/gateway/internal/repositories/sessionrepo"
	"github.com/whiskypay/gateway/pkg/config"
)

type verificationService struct {
	sessionRepo sessionrepo.ISessionRepository
	jobRepo     jobrepo.IJobRepository
	registry    *chains.Registry
	tx          TxRunner
	broadcaster Broadcaster
	config      config.VerificationConfig
	notifConfig config.NotificationsConfig
	tolerance   decimal.Decimal
	logger      zerolog.Logger
}

func New(
	sessionRepo sessionrepo.ISessionRepository,
	jobRepo jobrepo.IJobRepository,
	registry *chains.Registry,
	tx TxRunner,
	broadcaster Broadcaster,
	cfg config.VerificationConfig,
	notifCfg config.NotificationsConfig,
	logger zerolog.Logger,
) IVerificationService {
	return &verificationService{
		sessionRepo: sessionRepo,
		jobRepo:     jobRepo,
		registry:    registry,
		tx:          tx,
		broadcaster: broadcaster,
		config:      cfg,
		notifConfig: notifCfg,
		tolerance:   decimal.NewFromFloat(cfg.ToleranceFraction),
		logger:      logger,
	}
}

func (s *verificationService) SubmitProof(ctx context.Context, sessionID, proof string) (*Outcome, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		return nil, domain.ErrSessionClosed
	}

	claimed, err := s.sessionRepo.ClaimProcessing(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Either a concurrent submission holds the claim or the session
		// went terminal since the read above.
		current, err := s.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if current.Status.Terminal() {
			return nil, domain.ErrSessionClosed
		}
		return nil, domain.ErrAlreadyProcessing
	}

	// Deadline re-check after winning the claim: a proof arriving late must
	// not resurrect the session.
	if session.Expired(time.Now().UTC()) {
		if err := s.sessionRepo.MarkExpired(ctx, sessionID); err != nil {
			return nil, err
		}
		s.logger.Info().Str("session_id", sessionID).Msg("Proof arrived after session deadline")
		return nil, domain.ErrSessionClosed
	}

	adapter, err := s.registry.Get(session.Chain)
	if err != nil {
		if relErr := s.sessionRepo.ReleaseToPending(ctx, sessionID); relErr != nil {
			s.logger.Error().Err(relErr).Str("session_id", sessionID).Msg("Failed to release claim")
		}
		return nil, err
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.config.AdapterTimeout)
	defer cancel()

	verdict, err := adapter.VerifyPayment(verifyCtx, chains.VerifyParams{
		SessionID:      session.ID,
		PayAddress:     session.PayAddress,
		ExpectedAmount: session.ExpectedAmount,
		TokenSymbol:    session.TokenSymbol,
		Proof:          proof,
	})
	if err != nil {
		// Transport trouble is not a verdict: release the claim so a later
		// submission can retry.
		if relErr := s.sessionRepo.ReleaseToPending(ctx, sessionID); relErr != nil {
			s.logger.Error().Err(relErr).Str("session_id", sessionID).Msg("Failed to release claim")
		}
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}

	return s.applyVerdict(ctx, session, proof, verdict)
}

func (s *verificationService) applyVerdict(ctx context.Context, session domain.PaymentSession, proof string, verdict domain.Verdict) (*Outcome, error) {
	switch verdict.Result {
	case domain.VerdictAccepted:
		return s.settleAccepted(ctx, session, proof, verdict)

	case domain.VerdictUnconfirmed:
		if err := s.sessionRepo.ReleaseToPending(ctx, session.ID); err != nil {
			return nil, err
		}
		s.logger.Info().
			Str("session_id", session.ID).
			Msg("Payment not yet confirmed, session returned to pending")
		return &Outcome{SessionID: session.ID, Status: domain.SessionStatusPending, Retryable: true}, nil

	case domain.VerdictInsufficient:
		return s.fail(ctx, session, proof, "insufficient amount received")
	case domain.VerdictNotFound:
		return s.fail(ctx, session, proof, "no matching transaction found")
	case domain.VerdictAddressMismatch:
		return s.fail(ctx, session, proof, "payment sent to unexpected address")
	default:
		if relErr := s.sessionRepo.ReleaseToPending(ctx, session.ID); relErr != nil {
			s.logger.Error().Err(relErr).Str("session_id", session.ID).Msg("Failed to release claim")
		}
		return nil, fmt.Errorf("unknown verdict result: %s", verdict.Result)
	}
}

// settleAccepted applies the acceptance rule and, when it holds, lands the
// completed status and both notification jobs in one transaction.
func (s *verificationService) settleAccepted(ctx context.Context, session domain.PaymentSession, proof string, verdict domain.Verdict) (*Outcome, error) {
	if verdict.ActualToken != session.TokenSymbol {
		return s.fail(ctx, session, proof, fmt.Sprintf("expected %s, received %s", session.TokenSymbol, verdict.ActualToken))
	}

	minRequired := session.ExpectedAmount.Mul(decimal.NewFromInt(1).Sub(s.tolerance))
	if verdict.ActualAmount.LessThan(minRequired) {
		return s.fail(ctx, session, proof, fmt.Sprintf(
			"insufficient amount: received %s, required at least %s",
			verdict.ActualAmount.String(), minRequired.String()))
	}

	metadata, err := json.Marshal(map[string]any{
		"tx_id":               verdict.TxID,
		"actual_amount":       verdict.ActualAmount.String(),
		"confirmation_height": verdict.ConfirmationHeight,
	})
	if err != nil {
		metadata = []byte("{}")
	}

	now := time.Now().UTC()
	webhookJob, emailJob, err := s.buildJobs(session, verdict, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ex database.Execer) error {
		if err := s.sessionRepo.Complete(ctx, ex, session.ID, proof, metadata); err != nil {
			return err
		}
		if err := s.jobRepo.Enqueue(ctx, ex, webhookJob); err != nil {
			return err
		}
		return s.jobRepo.Enqueue(ctx, ex, emailJob)
	})
	if err != nil {
		// Nothing landed, so give the claim back; the next submission can
		// retry the whole completion.
		if relErr := s.sessionRepo.ReleaseToPending(ctx, session.ID); relErr != nil {
			s.logger.Error().Err(relErr).Str("session_id", session.ID).Msg("Failed to release claim")
		}
		return nil, err
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("tx_id", verdict.TxID).
		Str("actual_amount", verdict.ActualAmount.String()).
		Int64("confirmation_height", verdict.ConfirmationHeight).
		Msg("Payment verified, session completed, notifications enqueued")

	session.Status = domain.SessionStatusCompleted
	session.Proof = proof
	session.UpdatedAt = now
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSession(session)
	}

	return &Outcome{SessionID: session.ID, Status: domain.SessionStatusCompleted}, nil
}

func (s *verificationService) buildJobs(session domain.PaymentSession, verdict domain.Verdict, now time.Time) (domain.NotificationJob, domain.NotificationJob, error) {
	event := domain.WebhookEvent{
		Event:     domain.EventPaymentCompleted,
		SessionID: session.ID,
		Email:     session.CustomerEmail,
		Plan:      session.PlanID,
		Amount:    verdict.ActualAmount.String(),
		Currency:  session.TokenSymbol,
		Status:    string(domain.SessionStatusCompleted),
		Timestamp: now.Unix(),
	}

	webhookPayload, err := json.Marshal(domain.WebhookJobPayload{
		MerchantID: session.MerchantID,
		Event:      event,
	})
	if err != nil {
		return domain.NotificationJob{}, domain.NotificationJob{}, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	emailPayload, err := json.Marshal(domain.EmailJobPayload{
		To:       session.CustomerEmail,
		Template: domain.EmailTemplatePaymentConfirmation,
		MergeData: map[string]string{
			"session_id": session.ID,
			"plan":       session.PlanID,
			"amount":     verdict.ActualAmount.String(),
			"currency":   session.TokenSymbol,
		},
	})
	if err != nil {
		return domain.NotificationJob{}, domain.NotificationJob{}, fmt.Errorf("failed to marshal email payload: %w", err)
	}

	newJob := func(kind domain.JobKind, payload []byte) domain.NotificationJob {
		return domain.NotificationJob{
			ID:          uuid.New().String(),
			SessionID:   session.ID,
			Kind:        kind,
			Payload:     payload,
			MaxAttempts: s.notifConfig.MaxAttempts,
			NextRunAt:   now,
			Status:      domain.JobStatusQueued,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	return newJob(domain.JobKindWebhook, webhookPayload), newJob(domain.JobKindEmail, emailPayload), nil
}

func (s *verificationService) fail(ctx context.Context, session domain.PaymentSession, proof, reason string) (*Outcome, error) {
	if err := s.sessionRepo.Fail(ctx, session.ID, proof, reason); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("reason", reason).
		Msg("Payment verification failed, session closed")

	session.Status = domain.SessionStatusFailed
	session.ErrorMessage = reason
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSession(session)
	}

	return &Outcome{SessionID: session.ID, Status: domain.SessionStatusFailed}, nil
}
