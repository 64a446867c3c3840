package domain_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querykit/internal/core/apperror"
	"querykit/internal/domain"
	"querykit/internal/domain/filter"
	"querykit/internal/domain/ordering"
	"querykit/internal/domain/pagination"
	"querykit/internal/shop"
)

type fakeRepo struct {
	plans []domain.Plan
	rows  []domain.Row
	err   error
}

func (r *fakeRepo) List(_ context.Context, plan domain.Plan) (pagination.Page[domain.Row], error) {
	r.plans = append(r.plans, plan)
	if r.err != nil {
		return pagination.Page[domain.Row]{}, r.err
	}
	return pagination.Paginate(r.rows, len(r.rows), plan.Page), nil
}

func (r *fakeRepo) Count(_ context.Context, plan domain.Plan) (int, error) {
	r.plans = append(r.plans, plan)
	return len(r.rows), r.err
}

type recorder struct {
	compiles []error
	rows     map[string]int
}

func (r *recorder) ObserveCompile(_ string, _ time.Duration, err error) {
	r.compiles = append(r.compiles, err)
}

func (r *recorder) ObserveRows(entity string, n int) {
	if r.rows == nil {
		r.rows = make(map[string]int)
	}
	r.rows[entity] += n
}

func newService(t *testing.T, repo domain.Repository, obs domain.Observer) *domain.QueryService {
	t.Helper()
	reg, err := shop.NewRegistry()
	require.NoError(t, err)
	return domain.NewQueryService(domain.QueryServiceConfig{Repo: repo, Entities: reg, Observer: obs})
}

func TestQueryService_Entity(t *testing.T) {
	svc := newService(t, &fakeRepo{}, nil)

	def, err := svc.Entity(shop.EntityOrder)
	require.NoError(t, err)
	assert.Equal(t, "orders", def.Table)

	_, err = svc.Entity("customer")
	assert.True(t, apperror.IsNotFound(err))

	bare := domain.NewQueryService(domain.QueryServiceConfig{Repo: &fakeRepo{}})
	_, err = bare.Entity(shop.EntityOrder)
	assert.True(t, apperror.IsMissingContext(err))
}

func TestQueryService_List(t *testing.T) {
	repo := &fakeRepo{rows: []domain.Row{{"id": 1}, {"id": 2}}}
	obs := &recorder{}
	svc := newService(t, repo, obs)

	inst, err := filter.Parse(shop.OrderFilters, url.Values{"items__qty__gte": {"2"}})
	require.NoError(t, err)

	page, err := svc.List(context.Background(), shop.EntityOrder, domain.ListQuery{Filter: inst, OrderBy: "-id"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Meta.TotalPages)

	require.Len(t, repo.plans, 1)
	plan := repo.plans[0]
	assert.Equal(t, pagination.DefaultPage(), plan.Page)
	require.Len(t, plan.Order, 1)
	assert.Equal(t, ordering.Desc, plan.Order[0].Direction)
	assert.NotNil(t, plan.Where)

	assert.Equal(t, []error{nil}, obs.compiles)
	assert.Equal(t, 2, obs.rows[shop.EntityOrder])
}

func TestQueryService_Hooks(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(t, repo, nil)

	var events []domain.HookEvent
	svc.Hooks().On(domain.BeforeList, func(_ context.Context, p *domain.Plan) error {
		events = append(events, domain.BeforeList)
		if len(p.Order) == 0 {
			order, err := ordering.Compile(p.Entity, "-created_at")
			if err != nil {
				return err
			}
			p.Order = order
		}
		return nil
	})
	svc.Hooks().On(domain.AfterList, func(context.Context, *domain.Plan) error {
		events = append(events, domain.AfterList)
		return nil
	})

	_, err := svc.List(context.Background(), shop.EntityProduct, domain.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []domain.HookEvent{domain.BeforeList, domain.AfterList}, events)
	require.Len(t, repo.plans[0].Order, 1)
	assert.Equal(t, "created_at", repo.plans[0].Order[0].Column)

	denied := errors.New("denied")
	svc.Hooks().On(domain.BeforeList, func(context.Context, *domain.Plan) error { return denied })
	_, err = svc.Count(context.Background(), shop.EntityProduct, domain.ListQuery{})
	assert.ErrorIs(t, err, denied)
	assert.Len(t, repo.plans, 1)
}

func TestQueryService_Errors(t *testing.T) {
	t.Run("compile failure is observed", func(t *testing.T) {
		obs := &recorder{}
		svc := newService(t, &fakeRepo{}, obs)

		_, err := svc.List(context.Background(), shop.EntityProduct, domain.ListQuery{
			Page: pagination.PageParams{Page: 0, Size: 10},
		})
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		require.Len(t, obs.compiles, 1)
		assert.Error(t, obs.compiles[0])
	})

	t.Run("repository failure", func(t *testing.T) {
		boom := apperror.NewDatabase(errors.New("connection reset"))
		svc := newService(t, &fakeRepo{err: boom}, nil)

		_, err := svc.List(context.Background(), shop.EntityProduct, domain.ListQuery{})
		assert.ErrorIs(t, err, boom)

		_, err = svc.Count(context.Background(), shop.EntityProduct, domain.ListQuery{})
		assert.ErrorIs(t, err, boom)
	})
}
