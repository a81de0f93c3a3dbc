package quoting

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/resort-quote/internal/common"
	"github.com/noah-isme/resort-quote/internal/money"
	"github.com/noah-isme/resort-quote/internal/obs"
	"github.com/noah-isme/resort-quote/internal/pricing"
	"github.com/noah-isme/resort-quote/internal/refdata"
)

// SnapshotSource hands out the reference data used for one calculation.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*refdata.Snapshot, error)
}

// Config wires a Service.
type Config struct {
	Snapshots            SnapshotSource
	DefaultRates         money.RateTable
	PassThroughExemptAge *int
	ValidityDays         int
	Logger               zerolog.Logger
	Now                  func() time.Time
	NewID                func() string
}

// Service validates quote requests and runs them through the pricing calculator against the current
// reference data snapshot.
type Service struct {
	snapshots    SnapshotSource
	defaultRates money.RateTable
	exemptAge    *int
	validityDays int
	logger       zerolog.Logger
	now          func() time.Time
	newID        func() string
	validate     *validator.Validate
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Snapshots == nil {
		return nil, errors.New("quoting: snapshot source is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Service{
		snapshots:    cfg.Snapshots,
		defaultRates: cfg.DefaultRates,
		exemptAge:    cfg.PassThroughExemptAge,
		validityDays: cfg.ValidityDays,
		logger:       cfg.Logger,
		now:          cfg.Now,
		newID:        cfg.NewID,
		validate:     newValidator(),
	}, nil
}

// Calculate prices a quote. The returned error is reserved for problems outside the calculation itself
// (invalid payloads, unavailable reference data); fatal pricing failures come back in the Result.
func (s *Service) Calculate(ctx context.Context, in CalculateQuoteRequest) (pricing.Result[pricing.QuoteCalculationResult], error) {
	var none pricing.Result[pricing.QuoteCalculationResult]
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return none, validationError(err)
	}
	req, err := in.toDomain()
	if err != nil {
		return none, common.ValidationFailed("invalid date", err)
	}

	ctx, span := otel.Tracer("quoting").Start(ctx, "quoting.calculate")
	defer span.End()
	span.SetAttributes(attribute.Int("quote.legs", len(req.Legs)), attribute.String("quote.currency", req.Currency))

	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reference data unavailable")
		s.logger.Error().Err(err).Msg("quote_refdata_unavailable")
		return none, common.RefdataUnavailable(err)
	}

	calc := pricing.NewCalculator(pricing.CalculatorConfig{
		Port:                 snap,
		DefaultRates:         s.defaultRates,
		PassThroughExemptAge: s.exemptAge,
		ValidityDays:         s.validityDays,
		Now:                  s.now,
		NewID:                s.newID,
	})
	start := time.Now()
	result := calc.Calculate(req)
	s.observe(ctx, span, result, time.Since(start))
	return result, nil
}

// LockRates previews the rate set a calculation with the same inputs would lock.
func (s *Service) LockRates(ctx context.Context, in LockRatesRequest) (money.LockedRatesView, error) {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return money.LockedRatesView{}, validationError(err)
	}
	locked, err := money.LockRates(in.Currency, in.ManualRates, s.defaultRates, s.now())
	if err != nil {
		return money.LockedRatesView{}, common.NewAppError(common.CodeInvalidRates, err.Error(), http.StatusUnprocessableEntity, err)
	}
	return locked.View(), nil
}

func (s *Service) observe(ctx context.Context, span trace.Span, result pricing.Result[pricing.QuoteCalculationResult], elapsed time.Duration) {
	value := result.Value()
	outcome := "success"
	if !result.IsOk() {
		outcome = "failure"
	}
	if obs.QuoteCalculationsTotal != nil {
		obs.QuoteCalculationsTotal.WithLabelValues(outcome).Inc()
		obs.QuoteCalculationDuration.WithLabelValues(outcome).Observe(obs.DurationMillis(elapsed))
	}

	span.SetAttributes(attribute.String("quote.calculation_id", value.CalculationID), attribute.String("quote.result", outcome))
	obs.RequestInfoFrom(ctx).SetQuote(value.CalculationID, outcome)

	if cerr := result.Err(); cerr != nil {
		if obs.QuoteFatalErrorsTotal != nil {
			obs.QuoteFatalErrorsTotal.WithLabelValues(string(cerr.Code)).Inc()
		}
		span.SetStatus(codes.Error, string(cerr.Code))
		evt := s.logger.Warn().
			Str("calculation_id", value.CalculationID).
			Str("code", string(cerr.Code)).
			Int("legs", len(value.Legs)).
			Str("message", cerr.Message)
		if cerr.LegIndex != nil {
			evt = evt.Int("leg_index", *cerr.LegIndex)
		}
		evt.Msg("quote_failed")
		return
	}

	if obs.QuoteWarningsTotal != nil {
		for _, w := range value.Warnings {
			obs.QuoteWarningsTotal.WithLabelValues(w.Code).Inc()
		}
	}
	s.logger.Info().
		Str("calculation_id", value.CalculationID).
		Int("legs", len(value.Legs)).
		Int("warnings", len(value.Warnings)).
		Str("currency", value.Currency).
		Str("sell", value.Totals.Combined.Sell.StringFixed(2)).
		Dur("elapsed", elapsed).
		Msg("quote_calculated")
}

func validationError(err error) *common.AppError {
	appErr := common.ValidationFailed("request validation failed", err)
	if details := violations(err); len(details) > 0 {
		appErr.Details = details
	}
	return appErr
}
