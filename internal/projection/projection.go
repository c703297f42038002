// Package projection holds the list view's filter, search and sort state and
// re-issues the list request whenever that state changes. The response is
// kept as-is; nothing is filtered again on this side.
package projection

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
)

// FilterAll is the sentinel a view sends to drop a filter.
const FilterAll string = "all"

const (
	FilterStatus                string = data.ParameterStatus
	FilterAssessmentSubmitted   string = data.ParameterAssessmentSubmitted
	FilterRole                  string = data.ParameterRole
	FilterTag                   string = data.ParameterTag
	FilterInterestArea          string = data.ParameterInterestArea
	FilterLongTermGoals         string = data.ParameterLongTermGoals
	FilterWorkCulturePreference string = data.ParameterWorkCulturePreference
	FilterLearningAttitude      string = data.ParameterLearningAttitude
)

// Lister is anything that can answer a list request: the logic in-process
// or the http client.
type Lister interface {
	EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
}

type Sort struct {
	Field string `json:"field,omitempty"`
	Order string `json:"order,omitempty"`
}

// State is the serializable state of a list view.
type State struct {
	Filters map[string]string `json:"filters,omitempty"`
	Search  string            `json:"search,omitempty"`
	Sort    Sort              `json:"sort,omitempty"`
}

// Request merges the state into a single list request.
func (s State) Request() data.EmployeeSearch {
	search := data.EmployeeSearch{
		Search: s.Search,
		SortBy: s.Sort.Field,
		Order:  s.Sort.Order,
	}
	for _, key := range slices.Sorted(maps.Keys(s.Filters)) {
		value := s.Filters[key]
		switch key {
		case FilterStatus:
			switch value {
			case data.StatusSubmitted:
				submitted := true
				search.AssessmentSubmitted = &submitted
			case data.StatusNotSubmitted:
				submitted := false
				search.AssessmentSubmitted = &submitted
			}
		case FilterAssessmentSubmitted:
			if submitted, err := strconv.ParseBool(value); err == nil {
				search.AssessmentSubmitted = &submitted
			}
		case FilterRole:
			search.Role = value
		case FilterTag:
			search.Tag = value
		case FilterInterestArea:
			search.InterestArea = value
		case FilterLongTermGoals:
			search.LongTermGoals = value
		case FilterWorkCulturePreference:
			search.WorkCulturePreference = value
		case FilterLearningAttitude:
			search.LearningAttitude = value
		}
	}
	return search
}

type Projection struct {
	sync.RWMutex
	state     State
	employees []*data.Employee
	lister    Lister
}

func New(lister Lister) *Projection {
	return &Projection{
		lister:    lister,
		state:     State{Filters: make(map[string]string)},
		employees: []*data.Employee{},
	}
}

// State returns a copy of the current state.
func (p *Projection) State() State {
	p.RLock()
	defer p.RUnlock()

	state := p.state
	state.Filters = maps.Clone(p.state.Filters)
	return state
}

// Request returns the list request the current state maps to.
func (p *Projection) Request() data.EmployeeSearch {
	return p.State().Request()
}

// Employees returns the result of the last successful list request.
func (p *Projection) Employees() []*data.Employee {
	p.RLock()
	defer p.RUnlock()

	return slices.Clone(p.employees)
}

// Refresh re-issues the list request for the current state.
func (p *Projection) Refresh(ctx context.Context) ([]*data.Employee, error) {
	return p.update(ctx, func(*State) {})
}

// SetFilter sets a filter; "all" or an empty value removes it.
func (p *Projection) SetFilter(ctx context.Context, key, value string) ([]*data.Employee, error) {
	return p.update(ctx, func(state *State) {
		key = strings.TrimSpace(key)
		if value == "" || value == FilterAll {
			delete(state.Filters, key)
			return
		}
		state.Filters[key] = value
	})
}

func (p *Projection) ClearFilters(ctx context.Context) ([]*data.Employee, error) {
	return p.update(ctx, func(state *State) {
		state.Filters = make(map[string]string)
	})
}

func (p *Projection) SetSearch(ctx context.Context, search string) ([]*data.Employee, error) {
	return p.update(ctx, func(state *State) {
		state.Search = search
	})
}

// SetSort sets the sort field and order; an empty field goes back to the
// natural order.
func (p *Projection) SetSort(ctx context.Context, field, order string) ([]*data.Employee, error) {
	return p.update(ctx, func(state *State) {
		state.Sort = Sort{Field: field, Order: order}
		if field == "" {
			state.Sort = Sort{}
		}
	})
}

// update changes the state and lists with it. The state change sticks even
// when the list fails so the view can retry with Refresh.
func (p *Projection) update(ctx context.Context, fx func(*State)) ([]*data.Employee, error) {
	p.Lock()
	defer p.Unlock()

	fx(&p.state)
	employees, err := p.lister.EmployeesSearch(ctx, p.state.Request())
	if err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []*data.Employee{}
	}
	p.employees = employees
	return slices.Clone(employees), nil
}
