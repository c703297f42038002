// Package store persists employee records. Every implementation enforces
// email uniqueness and reports missing records with data.ErrNotFound; lists
// follow the rules of the query package.
package store

import (
	"context"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
)

type Store interface {
	EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeeUpdate(ctx context.Context, id string, employeePartial data.EmployeePartial) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id string) error
}
