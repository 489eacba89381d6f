package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/telemetry"
)

type householdSource interface {
	Get(ctx context.Context, ownerID string) (*models.Household, error)
	ListDependents(ctx context.Context, ownerID string) ([]models.Dependent, error)
}

type careEventUpserter interface {
	UpsertIfAbsent(ctx context.Context, candidate models.CareEventCandidate) (*models.UpsertResult, error)
}

// GenerationService runs every domain generator for an owner and each dependent, and funnels
// their candidates through the deduplicating event store.
type GenerationService struct {
	households householdSource
	store      careEventUpserter
	generators []CareEventGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// GenerationServiceOption configures the service.
type GenerationServiceOption func(*GenerationService)

// WithGenerationClock overrides the time source.
func WithGenerationClock(now func() time.Time) GenerationServiceOption {
	return func(s *GenerationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGenerationMetrics attaches the metrics service.
func WithGenerationMetrics(metrics *MetricsService) GenerationServiceOption {
	return func(s *GenerationService) {
		s.metrics = metrics
	}
}

// NewGenerationService constructs the driver.
func NewGenerationService(households householdSource, store careEventUpserter, generators []CareEventGenerator, logger *zap.Logger, opts ...GenerationServiceOption) *GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &GenerationService{
		households: households,
		store:      store,
		generators: generators,
		logger:     logger,
		tracer:     telemetry.Tracer(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RunForOwner generates events for the owner scope and every dependent. Generator failures and
// panics are isolated and reported; only failing to resolve the household aborts the run.
func (s *GenerationService) RunForOwner(ctx context.Context, ownerID string) (*models.GenerationReport, error) {
	if ownerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id is required")
	}
	ctx, span := s.tracer.Start(ctx, "care.generation.run_for_owner", trace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer span.End()

	start := time.Now()
	now := s.now()
	report := models.NewGenerationReport(ownerID)

	household, err := s.households.Get(ctx, ownerID)
	if err != nil {
		span.SetStatus(codes.Error, "household lookup failed")
		return nil, appErrors.Dependency(err, "failed to resolve household")
	}
	dependents, err := s.households.ListDependents(ctx, ownerID)
	if err != nil {
		span.SetStatus(codes.Error, "dependent lookup failed")
		return nil, appErrors.Dependency(err, "failed to resolve dependents")
	}

	scopes := make([]models.Scope, 0, len(dependents)+1)
	scopes = append(scopes, models.Scope{Household: *household})
	for i := range dependents {
		dep := dependents[i]
		scopes = append(scopes, models.Scope{Household: *household, Dependent: &dep})
	}

	for _, scope := range scopes {
		for _, gen := range s.generators {
			if ctx.Err() != nil {
				report.Errors = append(report.Errors, models.DomainError{Domain: gen.Domain(), Scope: scope.Label(), Message: ctx.Err().Error()})
				continue
			}
			s.runGenerator(ctx, gen, scope, now, report)
		}
	}

	report.TotalErrors = len(report.Errors)
	report.Duration = time.Since(start)
	s.metrics.RecordGeneration(report)

	span.SetAttributes(
		attribute.Int("care.created", report.TotalCreated()),
		attribute.Int("care.errors", report.TotalErrors),
	)
	fields := []zap.Field{
		zap.String("owner_id", ownerID),
		zap.Int("scopes", len(scopes)),
		zap.Int("created", report.TotalCreated()),
		zap.Int("errors", report.TotalErrors),
		zap.Duration("duration", report.Duration),
	}
	if report.TotalErrors > 0 {
		s.logger.Warn("care generation finished with errors", append(fields, zap.Any("domain_errors", report.Errors))...)
	} else {
		s.logger.Info("care generation finished", fields...)
	}
	return report, nil
}

// runGenerator is the failure boundary around one generator for one scope.
func (s *GenerationService) runGenerator(ctx context.Context, gen CareEventGenerator, scope models.Scope, now time.Time, report *models.GenerationReport) {
	domain := gen.Domain()
	defer func() {
		if r := recover(); r != nil {
			report.Errors = append(report.Errors, models.DomainError{
				Domain:  domain,
				Scope:   scope.Label(),
				Message: fmt.Sprintf("generator panicked: %v", r),
			})
		}
	}()

	candidates, err := gen.Generate(ctx, scope, now)
	if err != nil {
		report.Errors = append(report.Errors, models.DomainError{Domain: domain, Scope: scope.Label(), Message: err.Error()})
	}

	for _, candidate := range candidates {
		result, upsertErr := s.store.UpsertIfAbsent(ctx, candidate)
		if upsertErr != nil {
			report.Errors = append(report.Errors, models.DomainError{
				Domain:  domain,
				Scope:   scope.Label(),
				Message: fmt.Sprintf("upsert %s: %v", candidate.NaturalKey, upsertErr),
			})
			continue
		}
		if result.Created {
			report.Created[domain]++
		} else {
			report.Existing[domain]++
		}
	}
}
