package cache

import (
	"context"
	"sync"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/antonio-alexander/go-stash"
)

const (
	stashKeySearches       string = "searches"
	stashKeyEmployeePrefix string = "employee:"
)

type stashCache struct {
	sync.Mutex //guards the registry of cached search keys
	utilities.Logger
	stash interface {
		stash.Configurer
		stash.Parameterizer
		stash.Initializer
		stash.Shutdowner
	}
	stash.Stasher
}

func NewStash(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &stashCache{Logger: utilities.NewNopLogger()}
	for _, p := range parameters {
		switch p := p.(type) {
		case utilities.Logger:
			c.Logger = p
		case interface {
			stash.Configurer
			stash.Parameterizer
			stash.Initializer
			stash.Shutdowner
			stash.Stasher
		}:
			c.stash = p
			c.Stasher = p
		}
	}
	if c.stash != nil {
		c.stash.SetParameters(parameters...)
	}
	return c
}

func employeeKey(id string) string {
	return stashKeyEmployeePrefix + id
}

func (c *stashCache) Configure(envs map[string]string) error {
	if c.stash != nil {
		if err := c.stash.Configure(envs); err != nil {
			return err
		}
	}
	return nil
}

func (c *stashCache) Open(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Initialize()
	}
	return nil
}

func (c *stashCache) Close(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Shutdown()
	}
	return nil
}

func (c *stashCache) Clear(ctx context.Context) error {
	return c.Stasher.Clear()
}

func (c *stashCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	employee := &data.Employee{}
	if err := c.Stasher.Read(employeeKey(id), employee); err != nil {
		c.Trace(ctx, "cache miss for employee: %s", id)
		return nil, ErrEmployeeNotCached
	}
	c.Trace(ctx, "cache hit for employee: %s", id)
	return employee, nil
}

func (c *stashCache) EmployeeWrite(ctx context.Context, employee *data.Employee) error {
	if _, err := c.Stasher.Write(employeeKey(employee.ID), employee); err != nil {
		c.Error(ctx, "error while writing employee (%s): %s", employee.ID, err)
		return err
	}
	c.Trace(ctx, "cached employee: %s", employee.ID)
	return nil
}

func (c *stashCache) EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	var ids keyList

	searchKey, err := search.ToKey()
	if err != nil {
		return nil, err
	}
	if err := c.Stasher.Read(searchKey, &ids); err != nil {
		c.Trace(ctx, "cache miss for employee search: %s", searchKey)
		return nil, ErrEmployeeSearchNotCached
	}
	employees := make([]*data.Employee, 0, len(ids.Keys))
	for _, id := range ids.Keys {
		employee := &data.Employee{}
		if err := c.Stasher.Read(employeeKey(id), employee); err != nil {
			//KIM: we don't want to fail half way, so any failure here
			// invalidates the search
			c.Trace(ctx, "cache miss for employee search: %s", searchKey)
			if err := c.Stasher.Delete(searchKey); err != nil {
				c.Error(ctx, "error while deleting searchkey (%s): %s",
					searchKey, err)
			}
			return nil, ErrEmployeeSearchNotCached
		}
		employees = append(employees, employee)
	}
	c.Trace(ctx, "cache hit for employee search: %s", searchKey)
	return employees, nil
}

func (c *stashCache) EmployeesWrite(ctx context.Context, search data.EmployeeSearch, employees ...*data.Employee) error {
	searchKey, err := search.ToKey()
	if err != nil {
		c.Error(ctx, "error while creating search key: %s", err)
		return err
	}
	for _, employee := range employees {
		if err := c.EmployeeWrite(ctx, employee); err != nil {
			return err
		}
	}
	if _, err := c.Stasher.Write(searchKey, &keyList{Keys: employeeIds(employees)}); err != nil {
		c.Error(ctx, "error while writing search: %s", err)
		return err
	}
	if err := c.searchRegister(searchKey); err != nil {
		c.Error(ctx, "error while registering search: %s", err)
		return err
	}
	c.Trace(ctx, "cached employees search: %s", searchKey)
	return nil
}

// searchRegister records a search key so SearchesDelete can find it, the
// stash can't enumerate its own keys.
func (c *stashCache) searchRegister(searchKey string) error {
	var searches keyList

	c.Lock()
	defer c.Unlock()

	_ = c.Stasher.Read(stashKeySearches, &searches)
	for _, key := range searches.Keys {
		if key == searchKey {
			return nil
		}
	}
	searches.Keys = append(searches.Keys, searchKey)
	_, err := c.Stasher.Write(stashKeySearches, &searches)
	return err
}

func (c *stashCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := c.Stasher.Delete(employeeKey(id)); err != nil {
			c.Trace(ctx, "employee (%s) not evicted: %s", id, err)
			continue
		}
		c.Trace(ctx, "evicted cached employee: %s", id)
	}
	return nil
}

func (c *stashCache) SearchesDelete(ctx context.Context) error {
	var searches keyList

	c.Lock()
	defer c.Unlock()

	if err := c.Stasher.Read(stashKeySearches, &searches); err != nil {
		return nil
	}
	for _, searchKey := range searches.Keys {
		if err := c.Stasher.Delete(searchKey); err != nil {
			c.Trace(ctx, "search (%s) not evicted: %s", searchKey, err)
		}
	}
	if err := c.Stasher.Delete(stashKeySearches); err != nil {
		c.Error(ctx, "error while deleting search registry: %s", err)
		return err
	}
	c.Trace(ctx, "evicted %d cached searches", len(searches.Keys))
	return nil
}
