package projection_test

import (
	"context"
	"errors"
	"testing"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/logic"
	"github.com/antonio-alexander/go-employee-dashboard/internal/projection"
	"github.com/antonio-alexander/go-employee-dashboard/internal/query"
	"github.com/antonio-alexander/go-employee-dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

// recorder remembers every request it's asked and answers with the
// query package over a fixed list.
type recorder struct {
	requests  []data.EmployeeSearch
	employees []*data.Employee
	err       error
}

func (r *recorder) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	r.requests = append(r.requests, search)
	if r.err != nil {
		return nil, r.err
	}
	return query.Apply(r.employees, search), nil
}

func (r *recorder) last() data.EmployeeSearch {
	return r.requests[len(r.requests)-1]
}

func employees() []*data.Employee {
	return []*data.Employee{
		{ID: "1", Name: "Rahul Kumar", Email: "rahul.kumar@company.com", Role: "Designer",
			Tags: []string{"Creative"}},
		{ID: "2", Name: "Anjali Singh", Email: "anjali.singh@company.com", Role: "HR Manager",
			AssessmentSubmitted: true, Tags: []string{"Empathetic"}},
		{ID: "3", Name: "Vikram Patel", Email: "vikram.patel@company.com", Role: "Designer",
			AssessmentSubmitted: true, Tags: []string{"Analytical"}},
		{ID: "4", Name: "Sameer Ahmed", Email: "sameer.ahmed@company.com", Role: "AI Researcher",
			Tags: []string{"Innovator"}},
	}
}

func names(employees []*data.Employee) []string {
	names := []string{}
	for _, employee := range employees {
		names = append(names, employee.Name)
	}
	return names
}

func TestStateRequest(t *testing.T) {
	cases := map[string]struct {
		iState   projection.State
		oRequest data.EmployeeSearch
	}{
		"empty": {},
		"everything": {
			iState: projection.State{
				Filters: map[string]string{
					projection.FilterRole:             "Designer",
					projection.FilterTag:              "Creative",
					projection.FilterLearningAttitude: "Active Learner",
				},
				Search: "sam",
				Sort:   projection.Sort{Field: "name", Order: data.OrderDesc},
			},
			oRequest: data.EmployeeSearch{
				Role:             "Designer",
				Tag:              "Creative",
				LearningAttitude: "Active Learner",
				Search:           "sam",
				SortBy:           "name",
				Order:            data.OrderDesc,
			},
		},
		"status submitted": {
			iState: projection.State{Filters: map[string]string{
				projection.FilterStatus: data.StatusSubmitted,
			}},
			oRequest: data.EmployeeSearch{AssessmentSubmitted: boolPtr(true)},
		},
		"status not submitted": {
			iState: projection.State{Filters: map[string]string{
				projection.FilterStatus: data.StatusNotSubmitted,
			}},
			oRequest: data.EmployeeSearch{AssessmentSubmitted: boolPtr(false)},
		},
		"assessment submitted": {
			iState: projection.State{Filters: map[string]string{
				projection.FilterAssessmentSubmitted: "false",
			}},
			oRequest: data.EmployeeSearch{AssessmentSubmitted: boolPtr(false)},
		},
		"unknown filter is ignored": {
			iState: projection.State{Filters: map[string]string{
				"salary": "100",
			}},
		},
	}
	for cDesc, c := range cases {
		assert.Equal(t, c.oRequest, c.iState.Request(), cDesc)
	}
}

func TestProjection(t *testing.T) {
	ctx := context.TODO()
	r := &recorder{employees: employees()}
	p := projection.New(r)

	// every change re-issues the request
	employees, err := p.SetFilter(ctx, projection.FilterRole, "Designer")
	require.Nil(t, err)
	assert.Equal(t, []string{"Rahul Kumar", "Vikram Patel"}, names(employees))
	assert.Equal(t, data.EmployeeSearch{Role: "Designer"}, r.last())

	employees, err = p.SetSort(ctx, "name", data.OrderDesc)
	require.Nil(t, err)
	assert.Equal(t, []string{"Vikram Patel", "Rahul Kumar"}, names(employees))
	assert.Equal(t, data.EmployeeSearch{Role: "Designer", SortBy: "name", Order: data.OrderDesc}, r.last())

	employees, err = p.SetSearch(ctx, "RAHUL")
	require.Nil(t, err)
	assert.Equal(t, []string{"Rahul Kumar"}, names(employees))

	// "all" removes the filter rather than sending it
	employees, err = p.SetFilter(ctx, projection.FilterRole, projection.FilterAll)
	require.Nil(t, err)
	assert.Equal(t, []string{"Rahul Kumar"}, names(employees))
	assert.Equal(t, "", r.last().Role)
	_, ok := p.State().Filters[projection.FilterRole]
	assert.False(t, ok)

	// the response is authoritative, the projection doesn't filter again
	r.employees = append(r.employees, &data.Employee{ID: "5", Name: "Rahul Sharma",
		Email: "rahul.sharma@company.com", Role: "Engineer", Tags: []string{}})
	employees, err = p.Refresh(ctx)
	require.Nil(t, err)
	assert.Equal(t, []string{"Rahul Sharma", "Rahul Kumar"}, names(employees))
	assert.Equal(t, names(employees), names(p.Employees()))

	// sort can go back to the natural order
	_, err = p.SetSearch(ctx, "")
	require.Nil(t, err)
	employees, err = p.SetSort(ctx, "", data.OrderDesc)
	require.Nil(t, err)
	assert.Equal(t, []string{"Rahul Kumar", "Anjali Singh", "Vikram Patel", "Sameer Ahmed", "Rahul Sharma"},
		names(employees))
	assert.Equal(t, data.EmployeeSearch{}, r.last())

	// filters can be combined and cleared
	_, err = p.SetFilter(ctx, projection.FilterStatus, data.StatusSubmitted)
	require.Nil(t, err)
	employees, err = p.SetFilter(ctx, projection.FilterRole, "Designer")
	require.Nil(t, err)
	assert.Equal(t, []string{"Vikram Patel"}, names(employees))
	employees, err = p.ClearFilters(ctx)
	require.Nil(t, err)
	assert.Len(t, employees, 5)
	assert.Empty(t, p.State().Filters)
	assert.Len(t, r.requests, 10)
}

func TestProjectionError(t *testing.T) {
	ctx := context.TODO()
	r := &recorder{employees: employees()}
	p := projection.New(r)

	employees, err := p.Refresh(ctx)
	require.Nil(t, err)
	require.Len(t, employees, 4)

	// a failed list keeps the last response, the state still changes
	r.err = errors.New("service unavailable")
	_, err = p.SetFilter(ctx, projection.FilterRole, "Designer")
	assert.NotNil(t, err)
	assert.Len(t, p.Employees(), 4)
	assert.Equal(t, "Designer", p.State().Filters[projection.FilterRole])

	// a refresh once the lister is back applies the state
	r.err = nil
	employees, err = p.Refresh(ctx)
	require.Nil(t, err)
	assert.Len(t, employees, 2)
}

func TestProjectionLogic(t *testing.T) {
	ctx := context.TODO()
	s := store.NewMemory()
	l := logic.NewLogic(s)
	require.Nil(t, l.Open(ctx))
	for _, employee := range employees() {
		_, err := l.EmployeeCreate(ctx, data.EmployeePartial{
			Name:                &employee.Name,
			Email:               &employee.Email,
			Role:                &employee.Role,
			AssessmentSubmitted: &employee.AssessmentSubmitted,
			Tags:                &employee.Tags,
		})
		require.Nil(t, err)
	}

	// the same state gives the same answer against a real backend
	r := &recorder{employees: employees()}
	for _, state := range []projection.State{
		{},
		{Filters: map[string]string{projection.FilterRole: "Designer"}},
		{Search: "a", Sort: projection.Sort{Field: "name"}},
		{Search: "a", Sort: projection.Sort{Field: "email", Order: data.OrderDesc}},
		{Filters: map[string]string{projection.FilterStatus: data.StatusNotSubmitted}, Search: "in"},
		{Filters: map[string]string{projection.FilterTag: "Analytical"}},
	} {
		employeesLogic, err := l.EmployeesSearch(ctx, state.Request())
		require.Nil(t, err)
		employeesRecorder, err := r.EmployeesSearch(ctx, state.Request())
		require.Nil(t, err)
		assert.Equal(t, names(employeesRecorder), names(employeesLogic))
	}

	p := projection.New(l)
	employees, err := p.SetSearch(ctx, "sam")
	require.Nil(t, err)
	assert.Equal(t, []string{"Sameer Ahmed"}, names(employees))
}
