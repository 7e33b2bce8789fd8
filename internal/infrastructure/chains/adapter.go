// Package chains holds the chain adapter capability: given a proof and the
// expected payment terms, resolve what actually happened on-chain. The
// verification engine depends only on the Adapter interface, never on
// chain-specific types.
package chains

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/whiskypay/gateway/internal/domain"
)

type VerifyParams struct {
	SessionID      string
	PayAddress     string
	ExpectedAmount decimal.Decimal
	TokenSymbol    string
	Proof          string
}

type Adapter interface {
	Chain() domain.Chain

	// AllocateAddress returns the destination address for a new session.
	// Monero mints a fresh subaddress; Solana reuses the merchant's
	// registered receiving address.
	AllocateAddress(ctx context.Context, merchant domain.Merchant) (string, error)

	// VerifyPayment resolves proof against on-chain state. Transport
	// failures are returned as errors; everything the chain can actually
	// answer comes back as a Verdict.
	VerifyPayment(ctx context.Context, params VerifyParams) (domain.Verdict, error)
}

type Registry struct {
	adapters map[domain.Chain]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[domain.Chain]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Chain()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(chain domain.Chain) (Adapter, error) {
	adapter, ok := r.adapters[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	return adapter, nil
}
