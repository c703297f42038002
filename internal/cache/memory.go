package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/caarlos0/env/v10"
)

type memoryConfig struct {
	InProgressPruneInterval int  `env:"CACHE_PRUNE_INTERVAL" envDefault:"10"` //seconds
	InProgressTTL           int  `env:"CACHE_SET_READ_TTL" envDefault:"10"`   //seconds
	InProgressEnabled       bool `env:"CACHE_ENABLE_IN_PROGRESS" envDefault:"false"`
}

type memoryCache struct {
	sync.RWMutex
	sync.WaitGroup
	employees  map[string]*data.Employee //map[id]employee
	searches   map[string][]string       //map[search][]id, in list order
	inProgress struct {
		sync.Mutex
		employeeRead   map[string]int64 //map[id]unix nano
		employeeSearch map[string]int64 //map[search]unix nano
	}
	config    memoryConfig
	ctx       context.Context
	ctxCancel context.CancelFunc
	utilities.Logger
}

func NewMemory(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &memoryCache{Logger: utilities.NewNopLogger()}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	c.reset()
	return c
}

func (c *memoryCache) reset() {
	c.employees = make(map[string]*data.Employee)
	c.searches = make(map[string][]string)
	c.inProgress.Lock()
	c.inProgress.employeeRead = make(map[string]int64)
	c.inProgress.employeeSearch = make(map[string]int64)
	c.inProgress.Unlock()
}

func (c *memoryCache) launchPruneSetRead() {
	started := make(chan struct{})
	c.Add(1)
	go func() {
		defer c.Done()

		ttl := time.Duration(c.config.InProgressTTL) * time.Second
		pruneFx := func() {
			c.inProgress.Lock()
			defer c.inProgress.Unlock()

			for key, t := range c.inProgress.employeeRead {
				if time.Since(time.Unix(0, t)) > ttl {
					delete(c.inProgress.employeeRead, key)
				}
			}
			for key, t := range c.inProgress.employeeSearch {
				if time.Since(time.Unix(0, t)) > ttl {
					delete(c.inProgress.employeeSearch, key)
				}
			}
		}
		tPrune := time.NewTicker(time.Duration(c.config.InProgressPruneInterval) * time.Second)
		defer tPrune.Stop()
		close(started)
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-tPrune.C:
				pruneFx()
			}
		}
	}()
	<-started
}

func (c *memoryCache) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	if err := env.ParseWithOptions(&c.config, env.Options{Environment: envs}); err != nil {
		return err
	}
	if c.config.InProgressPruneInterval <= 0 {
		c.config.InProgressPruneInterval = 10
	}
	return nil
}

func (c *memoryCache) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.ctxCancel != nil {
		return nil
	}
	c.reset()
	c.ctx, c.ctxCancel = context.WithCancel(context.Background())
	if c.config.InProgressEnabled {
		c.launchPruneSetRead()
	}
	return nil
}

func (c *memoryCache) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.ctxCancel == nil {
		return nil
	}
	c.ctxCancel()
	c.Wait()
	c.ctxCancel = nil
	return nil
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.reset()
	c.Trace(ctx, "cache cleared")
	return nil
}

func (c *memoryCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	employee, ok := c.employees[id]
	if !ok {
		if !c.config.InProgressEnabled {
			return nil, ErrEmployeeNotCached
		}
		c.inProgress.Lock()
		defer c.inProgress.Unlock()
		if _, ok := c.inProgress.employeeRead[id]; ok {
			return nil, ErrEmployeeReadAlreadySet
		}
		c.inProgress.employeeRead[id] = time.Now().UnixNano()
		return nil, ErrEmployeeReadSet
	}
	return employee.Copy(), nil
}

func (c *memoryCache) EmployeeWrite(ctx context.Context, employee *data.Employee) error {
	c.Lock()
	defer c.Unlock()

	c.employees[employee.ID] = employee.Copy()
	if c.config.InProgressEnabled {
		c.inProgress.Lock()
		delete(c.inProgress.employeeRead, employee.ID)
		c.inProgress.Unlock()
	}
	return nil
}

func (c *memoryCache) EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	searchKey, err := search.ToKey()
	if err != nil {
		return nil, err
	}
	ids, ok := c.searches[searchKey]
	if !ok {
		if !c.config.InProgressEnabled {
			return nil, ErrEmployeeSearchNotCached
		}
		c.inProgress.Lock()
		defer c.inProgress.Unlock()
		if _, ok := c.inProgress.employeeSearch[searchKey]; ok {
			return nil, ErrEmployeesSearchAlreadySet
		}
		c.inProgress.employeeSearch[searchKey] = time.Now().UnixNano()
		return nil, ErrEmployeesSearchSet
	}
	employees := make([]*data.Employee, 0, len(ids))
	for _, id := range ids {
		employee, ok := c.employees[id]
		if !ok {
			//KIM: a partially cached list is stale, it's treated as a miss
			return nil, ErrEmployeeSearchNotCached
		}
		employees = append(employees, employee.Copy())
	}
	return employees, nil
}

func (c *memoryCache) EmployeesWrite(ctx context.Context, search data.EmployeeSearch, employees ...*data.Employee) error {
	c.Lock()
	defer c.Unlock()

	searchKey, err := search.ToKey()
	if err != nil {
		return fmt.Errorf("error while creating search key: %w", err)
	}
	for _, employee := range employees {
		c.employees[employee.ID] = employee.Copy()
	}
	c.searches[searchKey] = employeeIds(employees)
	if c.config.InProgressEnabled {
		c.inProgress.Lock()
		defer c.inProgress.Unlock()

		delete(c.inProgress.employeeSearch, searchKey)
		for _, employee := range employees {
			delete(c.inProgress.employeeRead, employee.ID)
		}
	}
	return nil
}

func (c *memoryCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	c.Lock()
	defer c.Unlock()

	for _, id := range ids {
		delete(c.employees, id)
	}
	if c.config.InProgressEnabled {
		c.inProgress.Lock()
		defer c.inProgress.Unlock()

		for _, id := range ids {
			delete(c.inProgress.employeeRead, id)
		}
	}
	return nil
}

func (c *memoryCache) SearchesDelete(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.searches = make(map[string][]string)
	c.inProgress.Lock()
	c.inProgress.employeeSearch = make(map[string]int64)
	c.inProgress.Unlock()
	return nil
}
