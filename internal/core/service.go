package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"parishregistry/internal/catalog"
	"parishregistry/internal/infra/persistence/memory"
	"parishregistry/pkg/domain"
)

// Service runs the register workflows inside store transactions and reports
// every call to the configured logger, metrics, tracer and audit sinks.
type Service struct {
	store   PersistentStore
	catalog catalog.Catalog
	logger  Logger
	clock   Clock
	newID   func() string
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger routes service diagnostics to logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Stores that accept a clock use it for
// record timestamps too.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides how decree and record ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithMetricsRecorder installs a metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder installs an audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithCatalog makes decree workflows require that the annulment concept is
// offered for the decree kind.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

type nowSetter interface {
	SetNowFunc(func() time.Time)
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		clock:   systemClock{},
		newID:   uuid.NewString,
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if setter, ok := store.(nowSetter); ok {
		setter.SetNowFunc(s.clock.Now)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects NewDefaultRulesEngine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Catalog returns the configured concept catalog, nil when none is set.
func (s *Service) Catalog() catalog.Catalog { return s.catalog }

// run executes fn in one store transaction. fn returns the id of the entity
// the operation is about, used for audit.
func (s *Service) run(ctx context.Context, op string, entity EntityType, action Action, fn func(tx Transaction) (string, error)) (Result, error) {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)

	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		id, err := fn(tx)
		entityID = id
		return err
	})

	duration := s.clock.Now().Sub(started)
	span.End(err)
	kind := domain.KindOf(err)
	s.metrics.Observe(ctx, op, kind, duration)

	entry := AuditEntry{
		Operation: op,
		Entity:    entity,
		Action:    action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Timestamp: started,
		Duration:  duration,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)

	s.logResult(op, entityID, res)
	if err != nil {
		s.logger.Warn("operation failed", "operation", op, "kind", string(kind), "error", err)
		return res, err
	}
	s.logger.Debug("operation committed", "operation", op, "entity_id", entityID, "duration", duration)
	return res, nil
}

func (s *Service) logResult(op, entityID string, res Result) {
	for _, v := range res.Violations {
		if v.Severity == SeverityBlock {
			continue
		}
		s.logger.Warn("rule violation", "operation", op, "entity_id", entityID, "rule", v.Rule, "severity", string(v.Severity), "message", v.Message)
	}
}

// view runs a read against a store snapshot with tracing and metrics.
func (s *Service) view(ctx context.Context, op string, fn func(TransactionView) error) error {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := s.store.View(ctx, fn)
	span.End(err)
	s.metrics.Observe(ctx, op, domain.KindOf(err), s.clock.Now().Sub(started))
	return err
}
