package sessionservice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/whiskypay/gateway/internal/application/tokens"
	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/chains"
	"github.com/whiskypay/gateway/internal/repositories/merchantrepo"
	"github.com/whiskypay/gateway/internal/repositories/sessionrepo"
	"github.com/whiskypay/gateway/pkg/config"
)

type sessionService struct {
	sessionRepo  sessionrepo.ISessionRepository
	merchantRepo merchantrepo.IMerchantRepository
	registry     *chains.Registry
	tokenSvc     tokens.ITokenService
	config       config.SessionConfig
	validate     *validator.Validate
	logger       zerolog.Logger
}

func New(
	sessionRepo sessionrepo.ISessionRepository,
	merchantRepo merchantrepo.IMerchantRepository,
	registry *chains.Registry,
	tokenSvc tokens.ITokenService,
	cfg config.SessionConfig,
	logger zerolog.Logger,
) ISessionService {
	if cfg.ClaimTTL == 0 {
		cfg.ClaimTTL = 2 * time.Minute
	}
	return &sessionService{
		sessionRepo:  sessionRepo,
		merchantRepo: merchantRepo,
		registry:     registry,
		tokenSvc:     tokenSvc,
		config:       cfg,
		validate:     validator.New(),
		logger:       logger,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (*CreateSessionResult, error) {
	if err := s.validate.Var(req.Email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: malformed email", domain.ErrInvalidInput)
	}

	chain, ok := domain.ParseChain(req.Chain)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported chain %q", domain.ErrInvalidInput, req.Chain)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be a positive decimal", domain.ErrInvalidInput)
	}

	merchant, err := s.merchantRepo.GetByID(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.Active {
		return nil, domain.ErrInvalidMerchant
	}

	adapter, err := s.registry.Get(chain)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, chain)
	}

	payAddress, err := adapter.AllocateAddress(ctx, merchant)
	if err != nil {
		s.logger.Error().Err(err).
			Str("merchant_id", merchant.ID).
			Str("chain", string(chain)).
			Msg("Failed to allocate pay address")
		return nil, fmt.Errorf("failed to allocate pay address: %w", err)
	}

	now := time.Now().UTC()
	session := domain.PaymentSession{
		ID:             uuid.New().String(),
		MerchantID:     merchant.ID,
		CustomerEmail:  req.Email,
		PlanID:         req.PlanID,
		Chain:          chain,
		PayAddress:     payAddress,
		ExpectedAmount: amount,
		TokenSymbol:    req.TokenSymbol,
		Status:         domain.SessionStatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.config.TTL),
		UpdatedAt:      now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	token, err := s.tokenSvc.Issue(session.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("merchant_id", merchant.ID).
		Str("chain", string(chain)).
		Str("amount", amount.String()).
		Str("token_symbol", req.TokenSymbol).
		Msg("Payment session created")

	return &CreateSessionResult{Session: session, Token: token}, nil
}

func (s *sessionService) GetSession(ctx context.Context, id string) (domain.PaymentSession, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

func (s *sessionService) ExpireStale(ctx context.Context) error {
	now := time.Now().UTC()

	// Release abandoned claims first so a session whose holder died past its
	// deadline gets expired in the same pass.
	released, err := s.sessionRepo.ReleaseStaleProcessing(ctx, now.Add(-s.config.ClaimTTL))
	if err != nil {
		return fmt.Errorf("failed to release stale claims: %w", err)
	}
	if released > 0 {
		s.logger.Warn().Int64("released", released).Msg("Released stale processing claims")
	}

	expired, err := s.sessionRepo.ExpirePending(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to expire stale sessions: %w", err)
	}
	if expired > 0 {
		s.logger.Info().Int64("expired", expired).Msg("Expired stale sessions")
	}
	return nil
}
