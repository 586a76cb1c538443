package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/company"
	"github.com/manigandan-posana/vebops/internal/kits"
	"github.com/manigandan-posana/vebops/internal/lineitem"
	"github.com/manigandan-posana/vebops/internal/obs"
	"github.com/manigandan-posana/vebops/internal/tenant"
	"github.com/manigandan-posana/vebops/internal/totals"
)

// SellerSource resolves the issuing company for the tenant on the context.
type SellerSource interface {
	Seller(ctx context.Context) (company.Seller, error)
}

// KitExpander turns kit references into rows.
type KitExpander interface {
	Expand(ctx context.Context, refs []kits.Ref) ([]lineitem.KitRow, error)
}

// ServiceConfig wires Service dependencies.
type ServiceConfig struct {
	Sellers   SellerSource
	Kits      KitExpander
	Submitter Submitter
	Policies  Policies
	Validator *validator.Validate
	Metrics   *obs.DomainMetrics
	Logger    zerolog.Logger
}

// Service computes and submits documents.
type Service struct {
	sellers   SellerSource
	kits      KitExpander
	submitter Submitter
	policies  Policies
	validator *validator.Validate
	metrics   *obs.DomainMetrics
	logger    zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Sellers == nil {
		return nil, errors.New("documents: seller source is required")
	}
	v := cfg.Validator
	if v == nil {
		v = NewValidator()
	}
	return &Service{
		sellers:   cfg.Sellers,
		kits:      cfg.Kits,
		submitter: cfg.Submitter,
		policies:  cfg.Policies,
		validator: v,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// Preview computes the document without persisting anything.
func (s *Service) Preview(ctx context.Context, flow Flow, req Request) (Result, error) {
	ctx, span := otel.Tracer("documents.Service").Start(ctx, "Service.Preview")
	defer span.End()
	span.SetAttributes(attribute.String("document.flow", string(flow)))

	d, err := req.draft(ctx, s, flow)
	if err != nil {
		return Result{}, err
	}
	seller, err := s.sellers.Seller(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve seller")
		return Result{}, err
	}

	j := totals.Jurisdiction{SellerState: seller.State, BuyerState: d.party.State}
	if !flow.Sales() {
		j = totals.Jurisdiction{SellerState: d.party.State, BuyerState: seller.State}
	}
	opts := s.policies.Options(flow)
	if d.rate.Valid {
		opts.NominalRate = d.rate
	}
	opts.Regime = d.regime

	breakdown := totals.ComputeBreakdown(d.items, d.transport, j, opts)
	if err := totals.Verify(breakdown); err != nil {
		s.metrics.ObserveVerifyFailure(string(flow))
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify breakdown")
		s.logger.Error().Err(err).Str("flow", string(flow)).Msg("breakdown_unreconciled")
		return Result{}, &common.AppError{
			Code:       "TOTALS_UNRECONCILED",
			Message:    "computed totals failed verification",
			HTTPStatus: http.StatusUnprocessableEntity,
			Err:        err,
		}
	}
	s.metrics.ObserveBreakdown(string(flow), string(breakdown.Regime))
	span.SetAttributes(
		attribute.String("totals.regime", string(breakdown.Regime)),
		attribute.String("totals.grand_total", breakdown.GrandTotal.StringFixed(2)),
	)

	rows := make([]ItemView, len(d.rows))
	for i, row := range d.rows {
		row.Amount = money(breakdown.Lines[i])
		rows[i] = row
	}
	party := d.party
	res := Result{
		Flow:          flow,
		Seller:        seller,
		Jurisdiction:  JurisdictionView{SellerState: j.SellerState, BuyerState: j.BuyerState},
		Items:         rows,
		Totals:        NewBreakdownView(breakdown),
		AmountInWords: totals.AmountInWords(breakdown.GrandTotal),
		Notes:         d.notes,
	}
	if flow.Sales() {
		res.Buyer = &party
	} else {
		res.Supplier = &party
	}
	return res, nil
}

// Submit previews the document and hands it to the configured Submitter. An
// empty idemKey is replaced with a generated one so retries downstream stay
// deduplicated.
func (s *Service) Submit(ctx context.Context, flow Flow, req Request, idemKey string) (Receipt, error) {
	if !flow.Submittable() {
		return Receipt{}, common.BadRequest("FLOW_NOT_SUBMITTABLE", fmt.Sprintf("%s documents cannot be submitted", flow), nil)
	}
	if s.submitter == nil {
		return Receipt{}, common.NewAppError("INTERNAL", "document submission not configured", http.StatusInternalServerError, nil)
	}
	res, err := s.Preview(ctx, flow, req)
	if err != nil {
		return Receipt{}, err
	}
	doc, err := json.Marshal(res)
	if err != nil {
		return Receipt{}, fmt.Errorf("documents: encode %s: %w", flow, err)
	}
	if idemKey == "" {
		idemKey = uuid.NewString()
	}
	tenantID, _ := tenant.FromContext(ctx)
	sub := Submission{
		Flow:           flow,
		TenantID:       tenantID,
		IdempotencyKey: idemKey,
		RequestID:      middleware.GetReqID(ctx),
		Document:       doc,
	}

	receipt, err := s.submitter.Submit(ctx, sub)
	s.metrics.ObserveSubmission(string(flow), s.submitter.Mode(), err)
	if err != nil {
		s.logger.Error().Err(err).Str("flow", string(flow)).Str("tenant_id", tenantID).Msg("document_submit_failed")
		return Receipt{}, err
	}
	receipt.IdempotencyKey = idemKey
	receipt.Document = &res
	s.logger.Info().
		Str("flow", string(flow)).
		Str("tenant_id", tenantID).
		Str("mode", receipt.Mode).
		Str("document_id", receipt.ID).
		Str("task_id", receipt.TaskID).
		Msg("document_submitted")
	return receipt, nil
}

func (s *Service) expandKits(ctx context.Context, refs []kits.Ref) ([]lineitem.KitRow, error) {
	if s.kits == nil {
		return nil, common.BadRequest("KITS_UNAVAILABLE", "kit expansion is not configured", nil)
	}
	return s.kits.Expand(ctx, refs)
}

func (s *Service) validate(v any) error {
	return validationError(s.validator.Struct(v))
}

func errFlowMismatch(flow Flow) error {
	return common.BadRequest("INVALID_FLOW", fmt.Sprintf("request body does not match flow %q", flow), nil)
}

func errNoItems() error {
	return common.BadRequest("NO_ITEMS", "at least one item is required", nil)
}
