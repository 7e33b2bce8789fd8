package sessionservice

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/chains"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
	"github.com/whiskypay/gateway/pkg/config"
)

type memSessionRepo struct {
	sessions map[string]domain.PaymentSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]domain.PaymentSession)}
}

func (r *memSessionRepo) Create(ctx context.Context, session domain.PaymentSession) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (domain.PaymentSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return domain.PaymentSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *memSessionRepo) ClaimProcessing(ctx context.Context, id string) (bool, error) {
	return false, nil
}
func (r *memSessionRepo) ReleaseToPending(ctx context.Context, id string) error { return nil }
func (r *memSessionRepo) Complete(ctx context.Context, ex database.Execer, id, proof string, metadata []byte) error {
	return nil
}
func (r *memSessionRepo) Fail(ctx context.Context, id, proof, reason string) error { return nil }
func (r *memSessionRepo) MarkExpired(ctx context.Context, id string) error         { return nil }

func (r *memSessionRepo) ReleaseStaleProcessing(ctx context.Context, before time.Time) (int64, error) {
	var released int64
	for id, session := range r.sessions {
		if session.Status == domain.SessionStatusProcessing && session.UpdatedAt.Before(before) {
			session.Status = domain.SessionStatusPending
			session.UpdatedAt = time.Now().UTC()
			r.sessions[id] = session
			released++
		}
	}
	return released, nil
}

func (r *memSessionRepo) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	for id, session := range r.sessions {
		if session.Status == domain.SessionStatusPending && now.After(session.ExpiresAt) {
			session.Status = domain.SessionStatusExpired
			r.sessions[id] = session
			expired++
		}
	}
	return expired, nil
}

type memMerchantRepo struct {
	merchants map[string]domain.Merchant
}

func (r *memMerchantRepo) GetByID(ctx context.Context, id string) (domain.Merchant, error) {
	merchant, ok := r.merchants[id]
	if !ok {
		return domain.Merchant{}, domain.ErrInvalidMerchant
	}
	return merchant, nil
}

type stubAdapter struct {
	chain domain.Chain
}

func (a *stubAdapter) Chain() domain.Chain { return a.chain }
func (a *stubAdapter) AllocateAddress(ctx context.Context, merchant domain.Merchant) (string, error) {
	return "SubAddr777", nil
}
func (a *stubAdapter) VerifyPayment(ctx context.Context, params chains.VerifyParams) (domain.Verdict, error) {
	return domain.Verdict{}, nil
}

type stubTokenService struct{}

func (stubTokenService) Issue(sessionID string) (string, error) { return "tok-" + sessionID, nil }
func (stubTokenService) Verify(token string) (string, error)    { return "", nil }

func newTestService(sessionRepo *memSessionRepo, merchantRepo *memMerchantRepo) ISessionService {
	return New(
		sessionRepo,
		merchantRepo,
		chains.NewRegistry(&stubAdapter{chain: domain.ChainSolana}),
		stubTokenService{},
		config.SessionConfig{TTL: 30 * time.Minute, SweepInterval: time.Minute},
		zerolog.Nop(),
	)
}

func validRequest() domain.CreateSessionRequest {
	return domain.CreateSessionRequest{
		MerchantID:  "m1",
		Email:       "buyer@example.com",
		PlanID:      "pro",
		Chain:       "solana",
		Amount:      "10",
		TokenSymbol: "USDC",
	}
}

func activeMerchants() *memMerchantRepo {
	return &memMerchantRepo{merchants: map[string]domain.Merchant{
		"m1": {ID: "m1", Name: "Acme", Active: true, ReceivingAddress: "RecvAddr111"},
	}}
}

func TestCreateSessionHappyPath(t *testing.T) {
	sessionRepo := newMemSessionRepo()
	svc := newTestService(sessionRepo, activeMerchants())

	result, err := svc.CreateSession(context.Background(), validRequest())
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Session.ID)
	assert.Equal(t, domain.SessionStatusPending, result.Session.Status)
	assert.Equal(t, "SubAddr777", result.Session.PayAddress)
	assert.Equal(t, "tok-"+result.Session.ID, result.Token)
	assert.True(t, result.Session.ExpiresAt.After(result.Session.CreatedAt))

	stored, err := svc.GetSession(context.Background(), result.Session.ID)
	assert.NoError(t, err)
	assert.Equal(t, result.Session.ID, stored.ID)
}

func TestCreateSessionRejectsMalformedEmail(t *testing.T) {
	svc := newTestService(newMemSessionRepo(), activeMerchants())

	req := validRequest()
	req.Email = "not-an-email"
	_, err := svc.CreateSession(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateSessionRejectsUnsupportedChain(t *testing.T) {
	svc := newTestService(newMemSessionRepo(), activeMerchants())

	req := validRequest()
	req.Chain = "dogecoin"
	_, err := svc.CreateSession(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateSessionRejectsBadAmount(t *testing.T) {
	svc := newTestService(newMemSessionRepo(), activeMerchants())

	for _, amount := range []string{"0", "-5", "abc", ""} {
		req := validRequest()
		req.Amount = amount
		_, err := svc.CreateSession(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "amount %q", amount)
	}
}

func TestCreateSessionRejectsUnknownMerchant(t *testing.T) {
	svc := newTestService(newMemSessionRepo(), &memMerchantRepo{merchants: map[string]domain.Merchant{}})

	_, err := svc.CreateSession(context.Background(), validRequest())
	assert.ErrorIs(t, err, domain.ErrInvalidMerchant)
}

func TestCreateSessionRejectsInactiveMerchant(t *testing.T) {
	merchants := &memMerchantRepo{merchants: map[string]domain.Merchant{
		"m1": {ID: "m1", Active: false, ReceivingAddress: "RecvAddr111"},
	}}
	svc := newTestService(newMemSessionRepo(), merchants)

	_, err := svc.CreateSession(context.Background(), validRequest())
	assert.ErrorIs(t, err, domain.ErrInvalidMerchant)
}

func TestExpireStaleSweepsOnlyPastDeadlinePending(t *testing.T) {
	sessionRepo := newMemSessionRepo()
	svc := newTestService(sessionRepo, activeMerchants())

	now := time.Now().UTC()
	sessionRepo.sessions["stale"] = domain.PaymentSession{
		ID: "stale", Status: domain.SessionStatusPending, ExpiresAt: now.Add(-time.Minute),
	}
	sessionRepo.sessions["fresh"] = domain.PaymentSession{
		ID: "fresh", Status: domain.SessionStatusPending, ExpiresAt: now.Add(time.Hour),
	}
	sessionRepo.sessions["done"] = domain.PaymentSession{
		ID: "done", Status: domain.SessionStatusCompleted, ExpiresAt: now.Add(-time.Hour),
	}

	assert.NoError(t, svc.ExpireStale(context.Background()))
	assert.Equal(t, domain.SessionStatusExpired, sessionRepo.sessions["stale"].Status)
	assert.Equal(t, domain.SessionStatusPending, sessionRepo.sessions["fresh"].Status)
	assert.Equal(t, domain.SessionStatusCompleted, sessionRepo.sessions["done"].Status)
}

func TestExpireStaleReleasesAbandonedClaims(t *testing.T) {
	sessionRepo := newMemSessionRepo()
	svc := newTestService(sessionRepo, activeMerchants())

	now := time.Now().UTC()
	// A claim holder died an hour ago; the session has been wedged in
	// processing ever since.
	sessionRepo.sessions["wedged"] = domain.PaymentSession{
		ID:        "wedged",
		Status:    domain.SessionStatusProcessing,
		ExpiresAt: now.Add(time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}
	// Same, but the session is also past its deadline.
	sessionRepo.sessions["wedged-expired"] = domain.PaymentSession{
		ID:        "wedged-expired",
		Status:    domain.SessionStatusProcessing,
		ExpiresAt: now.Add(-time.Minute),
		UpdatedAt: now.Add(-time.Hour),
	}
	// A live verification claimed this one moments ago.
	sessionRepo.sessions["active"] = domain.PaymentSession{
		ID:        "active",
		Status:    domain.SessionStatusProcessing,
		ExpiresAt: now.Add(time.Hour),
		UpdatedAt: now,
	}

	assert.NoError(t, svc.ExpireStale(context.Background()))
	assert.Equal(t, domain.SessionStatusPending, sessionRepo.sessions["wedged"].Status)
	assert.Equal(t, domain.SessionStatusExpired, sessionRepo.sessions["wedged-expired"].Status)
	assert.Equal(t, domain.SessionStatusProcessing, sessionRepo.sessions["active"].Status)
}
