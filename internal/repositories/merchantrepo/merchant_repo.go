package merchantrepo

import (
	"context"

	"github.com/whiskypay/gateway/internal/domain"
)

type IMerchantRepository interface {
	GetByID(ctx context.Context, id string) (domain.Merchant, error)
}
