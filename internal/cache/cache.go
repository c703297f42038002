// Package cache keeps employee records and list views close to the service.
// A cached list is only served while every record it references is still
// cached; mutations evict the record and drop every list view.
package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
)

const (
	TypeMemory      string = "memory"
	TypeRedis       string = "redis"
	TypeStashMemory string = "stash-memory"
	TypeStashRedis  string = "stash-redis"
)

var (
	ErrEmployeeNotCached         = errors.New("employee not cached")
	ErrEmployeeSearchNotCached   = errors.New("employee search not cached")
	ErrEmployeeReadSet           = errors.New("employee not cached, read set")
	ErrEmployeeReadAlreadySet    = errors.New("employee not cached, read already set")
	ErrEmployeesSearchSet        = errors.New("employees search not cached, read set")
	ErrEmployeesSearchAlreadySet = errors.New("employees search not cached, read already set")
)

type Cache interface {
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeeWrite(ctx context.Context, employee *data.Employee) error
	EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeesWrite(ctx context.Context, search data.EmployeeSearch, employees ...*data.Employee) error
	EmployeesDelete(ctx context.Context, ids ...string) error
	SearchesDelete(ctx context.Context) error
}

// keyList is an ordered list of keys, it's used for the ids of a cached
// list view and for the registry of cached search keys.
type keyList struct {
	Keys []string `json:"keys"`
}

func (k *keyList) MarshalBinary() ([]byte, error) {
	return json.Marshal(k)
}

func (k *keyList) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, k)
}

func employeeIds(employees []*data.Employee) []string {
	ids := make([]string, 0, len(employees))
	for _, employee := range employees {
		ids = append(ids, employee.ID)
	}
	return ids
}
