package kits

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/manigandan-posana/vebops/internal/backend"
	"github.com/manigandan-posana/vebops/internal/cache"
	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/lineitem"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

const defaultParallel = 4

// Fetcher loads a kit from the backend.
type Fetcher interface {
	Kit(ctx context.Context, id string) (backend.Kit, error)
}

// Ref selects a kit and how many of it a document needs.
type Ref struct {
	KitID string          `json:"kitId" validate:"required,max=64"`
	Qty   lineitem.Number `json:"qty"`
}

// Service expands catalog kits into document rows.
type Service struct {
	Backend     Fetcher
	Cache       *cache.JSON
	MaxParallel int
	Logger      zerolog.Logger
}

// NewService constructs a Service.
func NewService(fetcher Fetcher, c *cache.JSON, logger zerolog.Logger) *Service {
	return &Service{Backend: fetcher, Cache: c, MaxParallel: defaultParallel, Logger: logger}
}

// Kit returns the kit, reading through the per-tenant cache.
func (s *Service) Kit(ctx context.Context, id string) (backend.Kit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return backend.Kit{}, common.BadRequest("INVALID_KIT", "kit id is required", nil)
	}
	tenantID, _ := tenant.FromContext(ctx)
	key := cache.KeyKit(tenantID, id)

	var kit backend.Kit
	hit, err := s.Cache.Get(ctx, key, &kit)
	if err != nil {
		s.Logger.Warn().Err(err).Str("kit_id", id).Msg("kit_cache_read_failed")
	}
	if hit {
		return kit, nil
	}
	if s.Backend == nil {
		return backend.Kit{}, common.NewAppError("INTERNAL", "kit source not configured", http.StatusInternalServerError, nil)
	}
	kit, err = s.Backend.Kit(ctx, id)
	if err != nil {
		return backend.Kit{}, err
	}
	if err := s.Cache.Set(ctx, key, kit); err != nil {
		s.Logger.Warn().Err(err).Str("kit_id", id).Msg("kit_cache_write_failed")
	}
	return kit, nil
}

// Items returns the kit's rows with every quantity multiplied by qty. A
// non-positive qty counts as one kit.
func (s *Service) Items(ctx context.Context, id string, qty decimal.Decimal) (backend.Kit, error) {
	kit, err := s.Kit(ctx, id)
	if err != nil {
		return backend.Kit{}, err
	}
	if !qty.IsPositive() {
		qty = decimal.NewFromInt(1)
	}
	rows := make([]lineitem.KitRow, len(kit.Items))
	for i, row := range kit.Items {
		row.KitID = kit.ID
		if row.KitID == "" {
			row.KitID = id
		}
		row.Quantity = lineitem.NewNumber(row.Quantity.Mul(qty))
		rows[i] = row
	}
	kit.Items = rows
	return kit, nil
}

// Expand resolves refs concurrently and concatenates their rows in ref order.
func (s *Service) Expand(ctx context.Context, refs []Ref) ([]lineitem.KitRow, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	results := make([][]lineitem.KitRow, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.MaxParallel
	if limit <= 0 {
		limit = defaultParallel
	}
	g.SetLimit(limit)
	for i, ref := range refs {
		g.Go(func() error {
			kit, err := s.Items(gctx, ref.KitID, ref.Qty.Decimal)
			if err != nil {
				return err
			}
			results[i] = kit.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var rows []lineitem.KitRow
	for _, r := range results {
		rows = append(rows, r...)
	}
	return rows, nil
}
