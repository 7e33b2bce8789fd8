package merchantrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
)

type merchantRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IMerchantRepository {
	return &merchantRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

func (r *merchantRepositoryImpl) GetByID(ctx context.Context, id string) (domain.Merchant, error) {
	const query = `
		SELECT id, name, active, receiving_address, webhook_url, webhook_secret, created_at
		FROM merchants
		WHERE id = $1`

	var m domain.Merchant
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.Active,
		&m.ReceivingAddress,
		&m.WebhookURL,
		&m.WebhookSecret,
		&m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Merchant{}, domain.ErrInvalidMerchant
	}
	if err != nil {
		r.logger.Error().Err(err).Str("merchant_id", id).Msg("Failed to get merchant")
		return domain.Merchant{}, fmt.Errorf("failed to get merchant: %w", err)
	}

	return m, nil
}
