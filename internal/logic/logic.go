package logic

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/cache"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/query"
	"github.com/antonio-alexander/go-employee-dashboard/internal/store"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/caarlos0/env/v10"
	"github.com/cenkalti/backoff/v5"
)

const (
	CounterEmployeeRead    string = "employee_read"
	CounterEmployeesSearch string = "employees_search"
)

var ErrMutateDisabled = errors.New("mutation disabled")

type Logic interface {
	EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeeUpdate(ctx context.Context, id string, employeePartial data.EmployeePartial) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id string) error
	EmployeesStats(ctx context.Context, search data.EmployeeSearch) (*data.EmployeeStats, error)
}

type logic struct {
	//KIM: the lock orders cache writes against invalidation; a list read
	// from the store is only cached if no mutation was invalidated since
	sync.RWMutex
	generation uint64
	store      store.Store
	cache      cache.Cache
	counter    utilities.Counter
	config     struct {
		CacheEnabled         bool `env:"LOGIC_CACHE_ENABLED" envDefault:"true"`
		MutateDisabled       bool `env:"MUTATE_DISABLED" envDefault:"false"`
		CacheRetryInterval   int  `env:"CACHE_RETRY_INTERVAL" envDefault:"100"` //milliseconds
		CacheMaxRetries      int  `env:"CACHE_MAX_RETRIES" envDefault:"0"`
		CacheRetryExpBackoff bool `env:"CACHE_RETRY_EXP_BACKOFF" envDefault:"false"`
	}
	now func() time.Time
	utilities.Logger
}

func NewLogic(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Logic
} {
	l := &logic{
		Logger: utilities.NewNopLogger(),
		now:    time.Now,
	}
	l.config.CacheEnabled = true
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case store.Store:
			l.store = p
		case cache.Cache:
			l.cache = p
		case utilities.Counter:
			l.counter = p
		case utilities.Logger:
			l.Logger = p
		case func() time.Time:
			l.now = p
		}
	}
	return l
}

func (l *logic) Configure(envs map[string]string) error {
	l.Lock()
	defer l.Unlock()

	return env.ParseWithOptions(&l.config, env.Options{Environment: envs})
}

func (l *logic) Open(ctx context.Context) error {
	l.Lock()
	defer l.Unlock()

	if l.store == nil {
		return errors.New("logic requires a store")
	}
	if l.cacheEnabled() {
		l.Info(ctx, "cache enabled")
	}
	if l.config.MutateDisabled {
		l.Info(ctx, "mutation disabled")
	}
	return nil
}

func (l *logic) Close(ctx context.Context) error {
	return nil
}

func (l *logic) cacheEnabled() bool {
	return l.cache != nil && l.config.CacheEnabled
}

func (l *logic) hit(key string) {
	if l.counter != nil {
		l.counter.IncrementHit(key)
	}
}

func (l *logic) miss(key string) {
	if l.counter != nil {
		l.counter.IncrementMiss(key)
	}
}

// cacheRetry reads through the cache, retrying while another reader has
// already been told to populate the same key.
func cacheRetry[T any](ctx context.Context, l *logic, errAlreadySet error, fx func() (T, error)) (T, error) {
	var b backoff.BackOff = backoff.NewConstantBackOff(
		time.Duration(l.config.CacheRetryInterval) * time.Millisecond)
	if l.config.CacheRetryExpBackoff {
		exponential := backoff.NewExponentialBackOff()
		exponential.InitialInterval = time.Duration(l.config.CacheRetryInterval) * time.Millisecond
		b = exponential
	}
	return backoff.Retry(ctx, func() (T, error) {
		item, err := fx()
		if err != nil && !errors.Is(err, errAlreadySet) {
			return item, backoff.Permanent(err)
		}
		return item, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(max(l.config.CacheMaxRetries, 0))+1),
	)
}

func (l *logic) readGeneration() uint64 {
	l.RLock()
	defer l.RUnlock()

	return l.generation
}

// invalidate drops every cached list view and the given records; it runs
// after the store has been mutated.
func (l *logic) invalidate(ctx context.Context, ids ...string) {
	l.Lock()
	defer l.Unlock()

	l.generation++
	if !l.cacheEnabled() {
		return
	}
	if len(ids) > 0 {
		if err := l.cache.EmployeesDelete(ctx, ids...); err != nil {
			l.Error(ctx, "error while deleting employees %v from cache: %s", ids, err)
		}
	}
	if err := l.cache.SearchesDelete(ctx); err != nil {
		l.Error(ctx, "error while deleting searches from cache: %s", err)
	}
}

// stamp sets the submission date to now when an assessment is marked as
// submitted without one.
func (l *logic) stamp(employeePartial *data.EmployeePartial) {
	if employeePartial.AssessmentSubmitted == nil || !*employeePartial.AssessmentSubmitted {
		return
	}
	if employeePartial.SubmissionDate != nil {
		return
	}
	now := l.now().UTC().Truncate(time.Millisecond)
	employeePartial.SubmissionDate = &now
}

func (l *logic) EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (*data.Employee, error) {
	if l.config.MutateDisabled {
		return nil, ErrMutateDisabled
	}
	if err := employeePartial.ValidateCreate(); err != nil {
		return nil, err
	}
	l.stamp(&employeePartial)
	employee, err := l.store.EmployeeCreate(ctx, employeePartial)
	if err != nil {
		return nil, err
	}
	l.invalidate(ctx)
	l.Debug(ctx, "created employee: %s", employee.ID)
	return employee, nil
}

func (l *logic) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	if l.cacheEnabled() {
		employee, err := cacheRetry(ctx, l, cache.ErrEmployeeReadAlreadySet,
			func() (*data.Employee, error) {
				return l.cache.EmployeeRead(ctx, id)
			})
		if err == nil {
			l.hit(CounterEmployeeRead)
			return employee, nil
		}
		l.miss(CounterEmployeeRead)
		l.Trace(ctx, "employee (%s) not read from cache: %s", id, err)
	}
	generation := l.readGeneration()
	employee, err := l.store.EmployeeRead(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.cacheEnabled() {
		l.RLock()
		if generation == l.generation {
			if err := l.cache.EmployeeWrite(ctx, employee); err != nil {
				l.Error(ctx, "error while writing employee (%s) to cache: %s", id, err)
			}
		}
		l.RUnlock()
	}
	return employee, nil
}

func (l *logic) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	if l.cacheEnabled() {
		employees, err := cacheRetry(ctx, l, cache.ErrEmployeesSearchAlreadySet,
			func() ([]*data.Employee, error) {
				return l.cache.EmployeesRead(ctx, search)
			})
		if err == nil {
			l.hit(CounterEmployeesSearch)
			return employees, nil
		}
		l.miss(CounterEmployeesSearch)
		l.Trace(ctx, "employees not read from cache: %s", err)
	}
	generation := l.readGeneration()
	employees, err := l.store.EmployeesSearch(ctx, search)
	if err != nil {
		return nil, err
	}
	if l.cacheEnabled() {
		l.RLock()
		if generation == l.generation {
			if err := l.cache.EmployeesWrite(ctx, search, employees...); err != nil {
				l.Error(ctx, "error while writing employees to cache: %s", err)
			}
		}
		l.RUnlock()
	}
	return employees, nil
}

func (l *logic) EmployeeUpdate(ctx context.Context, id string, employeePartial data.EmployeePartial) (*data.Employee, error) {
	if l.config.MutateDisabled {
		return nil, ErrMutateDisabled
	}
	if err := employeePartial.ValidateUpdate(); err != nil {
		return nil, err
	}
	if employeePartial.AssessmentSubmitted != nil && *employeePartial.AssessmentSubmitted &&
		employeePartial.SubmissionDate == nil {
		employee, err := l.store.EmployeeRead(ctx, id)
		if err != nil {
			return nil, err
		}
		if employee.SubmissionDate == nil {
			l.stamp(&employeePartial)
		}
	}
	employee, err := l.store.EmployeeUpdate(ctx, id, employeePartial)
	if err != nil {
		return nil, err
	}
	l.invalidate(ctx, id)
	l.Debug(ctx, "updated employee: %s", id)
	return employee, nil
}

func (l *logic) EmployeeDelete(ctx context.Context, id string) error {
	if l.config.MutateDisabled {
		return ErrMutateDisabled
	}
	if err := l.store.EmployeeDelete(ctx, id); err != nil {
		return err
	}
	l.invalidate(ctx, id)
	l.Debug(ctx, "deleted employee: %s", id)
	return nil
}

func (l *logic) EmployeesStats(ctx context.Context, search data.EmployeeSearch) (*data.EmployeeStats, error) {
	search.SortBy, search.Order = "", ""
	employees, err := l.EmployeesSearch(ctx, search)
	if err != nil {
		return nil, err
	}
	return query.Stats(employees), nil
}
