package store

import (
	"context"
	"sync"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/query"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"
)

type memoryStore struct {
	sync.RWMutex
	employees []*data.Employee          //natural (insertion) order
	ids       map[string]*data.Employee //map[id]employee
	emails    map[string]string         //map[email]id
	utilities.Logger
}

func NewMemory(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Store
} {
	m := &memoryStore{
		ids:    make(map[string]*data.Employee),
		emails: make(map[string]string),
		Logger: utilities.NewNopLogger(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			m.Logger = p
		}
	}
	return m
}

func (m *memoryStore) Configure(envs map[string]string) error {
	return nil
}

func (m *memoryStore) Open(ctx context.Context) error {
	return nil
}

func (m *memoryStore) Close(ctx context.Context) error {
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.Lock()
	defer m.Unlock()

	m.employees = nil
	m.ids = make(map[string]*data.Employee)
	m.emails = make(map[string]string)
	return nil
}

func (m *memoryStore) EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	employee := employeePartial.ToEmployee()
	if _, ok := m.emails[employee.Email]; ok {
		return nil, data.NewValidationError("email already exists: %s", employee.Email)
	}
	employee.ID = internal.GenerateId()
	m.employees = append(m.employees, employee)
	m.ids[employee.ID] = employee
	m.emails[employee.Email] = employee.ID
	m.Trace(ctx, "created employee: %s", employee.ID)
	return employee.Copy(), nil
}

func (m *memoryStore) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	m.RLock()
	defer m.RUnlock()

	employee, ok := m.ids[id]
	if !ok {
		return nil, data.NewNotFoundError(id)
	}
	return employee.Copy(), nil
}

func (m *memoryStore) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	m.RLock()
	defer m.RUnlock()

	matches := query.Apply(m.employees, search)
	employees := make([]*data.Employee, 0, len(matches))
	for _, employee := range matches {
		employees = append(employees, employee.Copy())
	}
	return employees, nil
}

func (m *memoryStore) EmployeeUpdate(ctx context.Context, id string, employeePartial data.EmployeePartial) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	employee, ok := m.ids[id]
	if !ok {
		return nil, data.NewNotFoundError(id)
	}
	if email := employeePartial.Email; email != nil {
		if owner, ok := m.emails[*email]; ok && owner != id {
			return nil, data.NewValidationError("email already exists: %s", *email)
		}
	}
	previousEmail := employee.Email
	employee.Merge(employeePartial)
	if employee.Email != previousEmail {
		delete(m.emails, previousEmail)
		m.emails[employee.Email] = id
	}
	m.Trace(ctx, "updated employee: %s", id)
	return employee.Copy(), nil
}

func (m *memoryStore) EmployeeDelete(ctx context.Context, id string) error {
	m.Lock()
	defer m.Unlock()

	employee, ok := m.ids[id]
	if !ok {
		return data.NewNotFoundError(id)
	}
	for i, e := range m.employees {
		if e.ID == id {
			m.employees = append(m.employees[:i], m.employees[i+1:]...)
			break
		}
	}
	delete(m.ids, id)
	delete(m.emails, employee.Email)
	m.Trace(ctx, "deleted employee: %s", id)
	return nil
}
