package company

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/manigandan-posana/vebops/internal/backend"
	"github.com/manigandan-posana/vebops/internal/cache"
	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

// Sources describing where a seller state came from.
const (
	SourceBackend = "backend"
	SourceCache   = "cache"
	SourceConfig  = "config"
)

// ErrNoSellerState is returned when neither the profile nor configuration names a state.
var ErrNoSellerState = errors.New("company: seller state unknown")

// ProfileFetcher loads the current tenant's company profile.
type ProfileFetcher interface {
	CompanyProfile(ctx context.Context) (backend.CompanyProfile, error)
}

// Seller is the issuing company as used for jurisdiction decisions.
type Seller struct {
	Name   string `json:"name,omitempty"`
	State  string `json:"state"`
	GSTIN  string `json:"gstin,omitempty"`
	Source string `json:"source"`
}

// Resolver finds the seller for the tenant on the context. Profiles are cached
// per tenant, and concurrent misses for a tenant share a single backend call.
// When the profile has no state, or the backend cannot be reached, HomeState is
// used and the returned Seller says so in Source.
type Resolver struct {
	Backend   ProfileFetcher
	Cache     *cache.JSON
	HomeState string
	Logger    zerolog.Logger

	group singleflight.Group
}

// NewResolver constructs a Resolver.
func NewResolver(fetcher ProfileFetcher, c *cache.JSON, homeState string, logger zerolog.Logger) *Resolver {
	return &Resolver{Backend: fetcher, Cache: c, HomeState: strings.TrimSpace(homeState), Logger: logger}
}

// Seller resolves the seller for the tenant on ctx.
func (r *Resolver) Seller(ctx context.Context) (Seller, error) {
	tenantID, _ := tenant.FromContext(ctx)
	key := cache.KeyCompanyProfile(tenantID)

	var cached backend.CompanyProfile
	hit, err := r.Cache.Get(ctx, key, &cached)
	if err != nil {
		r.Logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("company_cache_read_failed")
	}
	if hit {
		return r.fromProfile(cached, SourceCache)
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		profile, err := r.Backend.CompanyProfile(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.Cache.Set(ctx, key, profile); err != nil {
			r.Logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("company_cache_write_failed")
		}
		return profile, nil
	})
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) || errors.Is(err, backend.ErrNotFound) {
			r.Logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("company_profile_fallback")
			return r.fromProfile(backend.CompanyProfile{}, SourceConfig)
		}
		return Seller{}, err
	}
	return r.fromProfile(v.(backend.CompanyProfile), SourceBackend)
}

// Invalidate drops the cached profile for the tenant on ctx.
func (r *Resolver) Invalidate(ctx context.Context) error {
	tenantID, _ := tenant.FromContext(ctx)
	return r.Cache.Delete(ctx, cache.KeyCompanyProfile(tenantID))
}

func (r *Resolver) fromProfile(p backend.CompanyProfile, source string) (Seller, error) {
	seller := Seller{Name: p.Name, State: strings.TrimSpace(p.State), GSTIN: p.GSTIN, Source: source}
	if seller.State == "" {
		seller.State = r.HomeState
		seller.Source = SourceConfig
	}
	if seller.State == "" {
		return Seller{}, &common.AppError{
			Code:       "SELLER_STATE_UNKNOWN",
			Message:    "company state is not configured",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        ErrNoSellerState,
		}
	}
	return seller, nil
}
