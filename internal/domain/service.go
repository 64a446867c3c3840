package domain

import (
	"context"
	"time"

	"querykit/internal/core/apperror"
	"querykit/internal/domain/pagination"
	"querykit/internal/metadata"
	"querykit/pkg/logger"
)

// Observer receives compile and execution measurements.
type Observer interface {
	ObserveCompile(entity string, took time.Duration, err error)
	ObserveRows(entity string, rows int)
}

type nopObserver struct{}

func (nopObserver) ObserveCompile(string, time.Duration, error) {}
func (nopObserver) ObserveRows(string, int)                     {}

// QueryService compiles list queries and runs them on a repository.
type QueryService struct {
	repo     Repository
	entities *metadata.Registry
	observer Observer
	hooks    *HookRegistry[*Plan]
}

// QueryServiceConfig configures the query service.
type QueryServiceConfig struct {
	Repo     Repository
	Entities *metadata.Registry
	Observer Observer // Optional
}

// NewQueryService creates a new query service.
func NewQueryService(cfg QueryServiceConfig) *QueryService {
	obs := cfg.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &QueryService{
		repo:     cfg.Repo,
		entities: cfg.Entities,
		observer: obs,
		hooks:    NewHookRegistry[*Plan](),
	}
}

// Hooks returns the plan hook registry for external registration.
// BeforeList hooks may rewrite the plan, e.g. to add a default order.
func (s *QueryService) Hooks() *HookRegistry[*Plan] {
	return s.hooks
}

// Entity resolves a registered entity.
func (s *QueryService) Entity(name string) (*metadata.EntityDef, error) {
	if s.entities == nil {
		return nil, apperror.NewMissingContext("entity registry")
	}
	def, ok := s.entities.Get(name)
	if !ok {
		return nil, apperror.NewNotFound("entity", name)
	}
	return def, nil
}

// Plan compiles q against the named entity and runs BeforeList hooks.
func (s *QueryService) Plan(ctx context.Context, entity string, q ListQuery) (Plan, error) {
	def, err := s.Entity(entity)
	if err != nil {
		return Plan{}, err
	}

	start := time.Now()
	plan, err := Prepare(def, q)
	s.observer.ObserveCompile(entity, time.Since(start), err)
	if err != nil {
		return Plan{}, err
	}

	if err := s.hooks.Run(ctx, BeforeList, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// List compiles and executes q.
func (s *QueryService) List(ctx context.Context, entity string, q ListQuery) (pagination.Page[Row], error) {
	plan, err := s.Plan(ctx, entity, q)
	if err != nil {
		return pagination.Page[Row]{}, err
	}
	logger.Debug(ctx, "list query compiled", "plan", plan.String())

	page, err := s.repo.List(ctx, plan)
	if err != nil {
		return pagination.Page[Row]{}, err
	}
	s.observer.ObserveRows(entity, len(page.Items))

	if err := s.hooks.Run(ctx, AfterList, &plan); err != nil {
		return pagination.Page[Row]{}, err
	}
	return page, nil
}

// Count returns the number of rows matching q's filter.
func (s *QueryService) Count(ctx context.Context, entity string, q ListQuery) (int, error) {
	plan, err := s.Plan(ctx, entity, q)
	if err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, plan)
}
