package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/cache"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/export"
	"github.com/antonio-alexander/go-employee-dashboard/internal/logic"
	"github.com/antonio-alexander/go-employee-dashboard/internal/service"
	"github.com/antonio-alexander/go-employee-dashboard/internal/store"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	envs = map[string]string{
		//logic
		"LOGIC_CACHE_ENABLED": "true",

		//service
		"SERVICE_ADDRESS":                "localhost",
		"SERVICE_PORT":                   "0",
		"SERVICE_SHUTDOWN_TIMEOUT":       "5",
		"SERVICE_CORS_ALLOW_CREDENTIALS": "",
		"SERVICE_CORS_ALLOWED_ORIGINS":   "",
		"SERVICE_CORS_ALLOWED_METHODS":   "",
		"SERVICE_CORS_DISABLED":          "",
		"SERVICE_CORS_DEBUG":             "",
		"SERVICE_TIMERS_ENABLED":         "true",
	}
)

func init() {
	for _, env := range os.Environ() {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
}

type serviceTest struct {
	store interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		store.Store
	}
	cache interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}
	logic interface {
		internal.Configurer
		internal.Opener
		logic.Logic
	}
	service interface {
		internal.Configurer
		internal.Opener
		http.Handler
	}
	counter utilities.Counter
	timers  utilities.Timers
	server  *httptest.Server
}

func newServiceTest() *serviceTest {
	s := store.NewMemory()
	c := cache.NewMemory()
	counter := utilities.NewCounter()
	timers := utilities.NewTimers()
	l := logic.NewLogic(s, c, counter)
	return &serviceTest{
		store:   s,
		cache:   c,
		logic:   l,
		counter: counter,
		timers:  timers,
		service: service.NewService(l, c, counter, timers),
	}
}

func (s *serviceTest) Configure(envs map[string]string) error {
	if err := s.store.Configure(envs); err != nil {
		return err
	}
	if err := s.cache.Configure(envs); err != nil {
		return err
	}
	if err := s.logic.Configure(envs); err != nil {
		return err
	}
	return s.service.Configure(envs)
}

func (s *serviceTest) Open(ctx context.Context) error {
	if err := s.store.Open(ctx); err != nil {
		return err
	}
	if err := s.cache.Open(ctx); err != nil {
		return err
	}
	if err := s.logic.Open(ctx); err != nil {
		return err
	}
	s.server = httptest.NewServer(s.service)
	return nil
}

func (s *serviceTest) Close(ctx context.Context) error {
	if s.server != nil {
		s.server.Close()
	}
	if err := s.logic.Close(ctx); err != nil {
		return err
	}
	if err := s.cache.Close(ctx); err != nil {
		return err
	}
	return s.store.Close(ctx)
}

func (s *serviceTest) reset(t *testing.T) {
	ctx := context.TODO()

	require.Nil(t, s.store.Clear(ctx))
	require.Nil(t, s.cache.Clear(ctx))
}

func (s *serviceTest) do(t *testing.T, method, route string, body any) (*http.Response, []byte) {
	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		bytes, err := json.Marshal(b)
		require.Nil(t, err)
		reader = strings.NewReader(string(bytes))
	}
	request, err := http.NewRequest(method, s.server.URL+route, reader)
	require.Nil(t, err)
	response, err := s.server.Client().Do(request)
	require.Nil(t, err)
	defer response.Body.Close()
	bytes, err := io.ReadAll(response.Body)
	require.Nil(t, err)
	return response, bytes
}

func draft(name, role string, tags ...string) data.EmployeePartial {
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@company.com"
	return data.EmployeePartial{
		Name:  &name,
		Email: &email,
		Role:  &role,
		Tags:  &tags,
	}
}

func message(t *testing.T, bytes []byte) string {
	var m data.Message

	err := json.Unmarshal(bytes, &m)
	require.Nil(t, err, string(bytes))
	return m.Message
}

func (s *serviceTest) TestEmployeeCrud(t *testing.T) {
	s.reset(t)

	// create
	response, bytes := s.do(t, http.MethodPost, data.RouteEmployees,
		draft("Sameer Ahmed", "AI Researcher", "Innovator"))
	require.Equal(t, http.StatusCreated, response.StatusCode, string(bytes))
	employeeCreated := &data.Employee{}
	err := json.Unmarshal(bytes, employeeCreated)
	require.Nil(t, err)
	assert.NotEmpty(t, employeeCreated.ID)
	assert.Equal(t, "Sameer Ahmed", employeeCreated.Name)
	route := "/employees/" + employeeCreated.ID

	// read
	response, bytes = s.do(t, http.MethodGet, route, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	employeeRead := &data.Employee{}
	err = json.Unmarshal(bytes, employeeRead)
	require.Nil(t, err)
	assert.Equal(t, employeeCreated, employeeRead)

	// update
	response, bytes = s.do(t, http.MethodPut, route, map[string]any{
		"tags":              []string{"x"},
		"learning_attitude": "Active Learner",
	})
	require.Equal(t, http.StatusOK, response.StatusCode, string(bytes))
	employeeUpdated := &data.Employee{}
	err = json.Unmarshal(bytes, employeeUpdated)
	require.Nil(t, err)
	assert.Equal(t, []string{"x"}, employeeUpdated.Tags)
	assert.Equal(t, "Active Learner", employeeUpdated.LearningAttitude)
	assert.Equal(t, employeeCreated.Email, employeeUpdated.Email)

	// delete
	response, bytes = s.do(t, http.MethodDelete, route, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, service.MessageEmployeeDeleted, message(t, bytes))

	// read, update and delete a deleted employee
	response, bytes = s.do(t, http.MethodGet, route, nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.NotEmpty(t, message(t, bytes))
	response, _ = s.do(t, http.MethodPut, route, map[string]any{"name": "Nobody"})
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	response, _ = s.do(t, http.MethodDelete, route, nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}

func (s *serviceTest) TestValidation(t *testing.T) {
	s.reset(t)

	response, bytes := s.do(t, http.MethodPost, data.RouteEmployees,
		draft("Anjali Singh", "HR Manager"))
	require.Equal(t, http.StatusCreated, response.StatusCode, string(bytes))

	cases := map[string]struct {
		iMethod string
		iRoute  string
		iBody   any
		oStatus int
	}{
		"missing fields": {
			iMethod: http.MethodPost,
			iRoute:  data.RouteEmployees,
			iBody:   map[string]any{"name": "Rahul Kumar"},
			oStatus: http.StatusBadRequest,
		},
		"duplicate email": {
			iMethod: http.MethodPost,
			iRoute:  data.RouteEmployees,
			iBody:   draft("Anjali Singh", "Designer"),
			oStatus: http.StatusBadRequest,
		},
		"duplicate tags": {
			iMethod: http.MethodPost,
			iRoute:  data.RouteEmployees,
			iBody:   draft("Rahul Kumar", "Designer", "Creative", "Creative"),
			oStatus: http.StatusBadRequest,
		},
		"malformed json": {
			iMethod: http.MethodPost,
			iRoute:  data.RouteEmployees,
			iBody:   `{"name": `,
			oStatus: http.StatusBadRequest,
		},
		"empty body": {
			iMethod: http.MethodPost,
			iRoute:  data.RouteEmployees,
			oStatus: http.StatusBadRequest,
		},
		"wrong type": {
			iMethod: http.MethodPost,
			iRoute:  data.RouteEmployees,
			iBody:   `{"name": 1, "email": "a@company.com", "role": "Designer"}`,
			oStatus: http.StatusBadRequest,
		},
	}
	for cDesc, c := range cases {
		response, bytes := s.do(t, c.iMethod, c.iRoute, c.iBody)
		assert.Equal(t, c.oStatus, response.StatusCode, cDesc)
		assert.NotEmpty(t, message(t, bytes), cDesc)
		assert.Equal(t, "application/json; charset=utf-8",
			response.Header.Get("Content-Type"), cDesc)
	}

	// only the first employee exists
	response, bytes = s.do(t, http.MethodGet, data.RouteEmployees, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	var employees []*data.Employee
	err := json.Unmarshal(bytes, &employees)
	require.Nil(t, err)
	assert.Len(t, employees, 1)
}

func (s *serviceTest) TestEmployeesSearch(t *testing.T) {
	s.reset(t)

	search := func(params url.Values) []string {
		route := data.RouteEmployees
		if len(params) > 0 {
			route += "?" + params.Encode()
		}
		response, bytes := s.do(t, http.MethodGet, route, nil)
		require.Equal(t, http.StatusOK, response.StatusCode, string(bytes))
		var employees []*data.Employee
		err := json.Unmarshal(bytes, &employees)
		require.Nil(t, err)
		require.NotNil(t, employees, string(bytes))
		names := []string{}
		for _, employee := range employees {
			names = append(names, employee.Name)
		}
		return names
	}

	// an empty list is an empty array
	response, bytes := s.do(t, http.MethodGet, data.RouteEmployees, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "[]", string(bytes))

	for _, partial := range []data.EmployeePartial{
		draft("Rahul Kumar", "Designer", "Creative"),
		draft("Anjali Singh", "HR Manager", "Empathetic"),
		draft("Vikram Patel", "Designer", "Analytical"),
		draft("Sameer Ahmed", "AI Researcher", "Innovator"),
	} {
		response, bytes := s.do(t, http.MethodPost, data.RouteEmployees, partial)
		require.Equal(t, http.StatusCreated, response.StatusCode, string(bytes))
	}
	submitted := "true"
	response, bytes = s.do(t, http.MethodPost, data.RouteEmployees, map[string]any{
		"name":                 "Swapnil Shende",
		"email":                "swapnil.shende@company.com",
		"role":                 "Product Manager",
		"assessment_submitted": true,
	})
	require.Equal(t, http.StatusCreated, response.StatusCode, string(bytes))

	cases := map[string]struct {
		iParams url.Values
		oNames  []string
	}{
		"natural order": {
			oNames: []string{"Rahul Kumar", "Anjali Singh", "Vikram Patel", "Sameer Ahmed", "Swapnil Shende"},
		},
		"role": {
			iParams: url.Values{"role": {"Designer"}},
			oNames:  []string{"Rahul Kumar", "Vikram Patel"},
		},
		"sort by name": {
			iParams: url.Values{"sortBy": {"name"}, "role": {"Designer"}},
			oNames:  []string{"Rahul Kumar", "Vikram Patel"},
		},
		"sort by name desc": {
			iParams: url.Values{"sortBy": {"name"}, "order": {"desc"}, "role": {"Designer"}},
			oNames:  []string{"Vikram Patel", "Rahul Kumar"},
		},
		"sort alias": {
			iParams: url.Values{"sort_by": {"name"}, "sort_order": {"desc"}, "role": {"Designer"}},
			oNames:  []string{"Vikram Patel", "Rahul Kumar"},
		},
		"search is case insensitive": {
			iParams: url.Values{"search": {"sam"}},
			oNames:  []string{"Sameer Ahmed"},
		},
		"search tags": {
			iParams: url.Values{"search": {"ANALYTICAL"}},
			oNames:  []string{"Vikram Patel"},
		},
		"tag": {
			iParams: url.Values{"tag": {"Creative"}},
			oNames:  []string{"Rahul Kumar"},
		},
		"submitted": {
			iParams: url.Values{"assessment_submitted": {submitted}},
			oNames:  []string{"Swapnil Shende"},
		},
		"status": {
			iParams: url.Values{"status": {data.StatusNotSubmitted}, "sortBy": {"name"}},
			oNames:  []string{"Anjali Singh", "Rahul Kumar", "Sameer Ahmed", "Vikram Patel"},
		},
		"unknown sort field": {
			iParams: url.Values{"sortBy": {"salary"}, "role": {"Designer"}},
			oNames:  []string{"Rahul Kumar", "Vikram Patel"},
		},
		"nothing matches": {
			iParams: url.Values{"role": {"Astronaut"}},
			oNames:  []string{},
		},
	}
	for cDesc, c := range cases {
		assert.Equal(t, c.oNames, search(c.iParams), cDesc)
	}
}

func (s *serviceTest) TestEmployeesStats(t *testing.T) {
	s.reset(t)

	for _, partial := range []data.EmployeePartial{
		draft("Rahul Kumar", "Designer"),
		draft("Vikram Patel", "Designer"),
		draft("Anjali Singh", "HR Manager"),
	} {
		response, bytes := s.do(t, http.MethodPost, data.RouteEmployees, partial)
		require.Equal(t, http.StatusCreated, response.StatusCode, string(bytes))
	}
	response, bytes := s.do(t, http.MethodGet, data.RouteEmployeesStats+"?role=Designer", nil)
	require.Equal(t, http.StatusOK, response.StatusCode, string(bytes))
	stats := &data.EmployeeStats{}
	err := json.Unmarshal(bytes, stats)
	require.Nil(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 0, stats.Submitted)
	assert.Equal(t, map[string]int{"Designer": 2}, stats.RoleDistribution)
}

func (s *serviceTest) TestEmployeesExport(t *testing.T) {
	s.reset(t)

	for _, partial := range []data.EmployeePartial{
		draft("Rahul Kumar", "Designer", "Creative", "User-Focused"),
		draft("Anjali Singh", "HR Manager"),
	} {
		response, bytes := s.do(t, http.MethodPost, data.RouteEmployees, partial)
		require.Equal(t, http.StatusCreated, response.StatusCode, string(bytes))
	}
	response, body := s.do(t, http.MethodGet, data.RouteEmployeesExport+"?sortBy=name", nil)
	require.Equal(t, http.StatusOK, response.StatusCode, string(body))
	assert.Equal(t, export.ContentType, response.Header.Get("Content-Type"))
	assert.Contains(t, response.Header.Get("Content-Disposition"), export.FileName)
	employees, err := export.Read(bytes.NewReader(body))
	require.Nil(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Anjali Singh", employees[0].Name)
	assert.Equal(t, []string{"Creative", "User-Focused"}, employees[1].Tags)
}

func (s *serviceTest) TestMisc(t *testing.T) {
	s.reset(t)

	// version
	response, bytes := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(bytes), "go-employee-dashboard")

	// questions
	response, bytes = s.do(t, http.MethodGet, data.RouteQuestions, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	var questions []data.Question
	err := json.Unmarshal(bytes, &questions)
	require.Nil(t, err)
	assert.Equal(t, data.Questions, questions)

	// method not allowed
	response, _ = s.do(t, http.MethodPatch, data.RouteEmployees, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode)
	response, _ = s.do(t, http.MethodPost, data.RouteEmployeesStats, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode)

	// correlation id is echoed
	request, err := http.NewRequest(http.MethodGet, s.server.URL+data.RouteEmployees, nil)
	require.Nil(t, err)
	request.Header.Set(data.HeaderCorrelationId, "abc-123")
	response, err = s.server.Client().Do(request)
	require.Nil(t, err)
	response.Body.Close()
	assert.Equal(t, "abc-123", response.Header.Get(data.HeaderCorrelationId))
}

func (s *serviceTest) TestCacheCountersTimers(t *testing.T) {
	s.reset(t)

	// clear counters and timers
	response, _ := s.do(t, http.MethodDelete, data.RouteCacheCounters, nil)
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	response, _ = s.do(t, http.MethodDelete, data.RouteTimers, nil)
	assert.Equal(t, http.StatusNoContent, response.StatusCode)

	// a miss then a hit
	for range 2 {
		response, _ = s.do(t, http.MethodGet, data.RouteEmployees+"?role=Designer", nil)
		require.Equal(t, http.StatusOK, response.StatusCode)
	}
	response, bytes := s.do(t, http.MethodGet, data.RouteCacheCounters, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	counters := &data.CacheCounters{}
	err := json.Unmarshal(bytes, counters)
	require.Nil(t, err)
	assert.Equal(t, 1, counters.CounterHits[logic.CounterEmployeesSearch])
	assert.Equal(t, 1, counters.CounterMisses[logic.CounterEmployeesSearch])

	// clearing the cache causes another miss
	response, _ = s.do(t, http.MethodDelete, data.RouteCache, nil)
	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	response, _ = s.do(t, http.MethodGet, data.RouteEmployees+"?role=Designer", nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	_, misses := s.counter.Read(logic.CounterEmployeesSearch)
	assert.Equal(t, 2, misses)

	// timers were recorded
	response, bytes = s.do(t, http.MethodGet, data.RouteTimers, nil)
	require.Equal(t, http.StatusOK, response.StatusCode)
	timers := &data.Timers{}
	err = json.Unmarshal(bytes, timers)
	require.Nil(t, err)
	assert.Contains(t, timers.Totals, "employees_search")
}

func testService(t *testing.T, envs map[string]string) {
	s := newServiceTest()

	ctx := context.TODO()
	err := s.Configure(envs)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to configure service")
	}
	err = s.Open(ctx)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to open service")
	}
	defer func() {
		if err := s.Close(ctx); err != nil {
			t.Logf("error while closing service: %s", err)
		}
	}()
	t.Run("Employee Crud", s.TestEmployeeCrud)
	t.Run("Validation", s.TestValidation)
	t.Run("Employees Search", s.TestEmployeesSearch)
	t.Run("Employees Stats", s.TestEmployeesStats)
	t.Run("Employees Export", s.TestEmployeesExport)
	t.Run("Misc", s.TestMisc)
	t.Run("Cache Counters and Timers", s.TestCacheCountersTimers)
}

func TestService(t *testing.T) {
	testService(t, envs)
}

func TestServiceMutateDisabled(t *testing.T) {
	ctx := context.TODO()
	s := newServiceTest()
	disabled := map[string]string{"MUTATE_DISABLED": "true"}
	err := s.Configure(disabled)
	require.Nil(t, err)
	err = s.Open(ctx)
	require.Nil(t, err)
	defer func() {
		_ = s.Close(ctx)
	}()

	response, bytes := s.do(t, http.MethodPost, data.RouteEmployees, draft("Rahul Kumar", "Designer"))
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
	assert.Equal(t, logic.ErrMutateDisabled.Error(), message(t, bytes))
}

func TestServiceOpenClose(t *testing.T) {
	ctx := context.TODO()
	s := service.NewService(logic.NewLogic(store.NewMemory()))
	err := s.Configure(envs)
	require.Nil(t, err)
	err = s.Open(ctx)
	require.Nil(t, err)
	err = s.Close(ctx)
	assert.Nil(t, err)

	// a service without logic can't be opened
	s = service.NewService()
	err = s.Configure(envs)
	require.Nil(t, err)
	err = s.Open(ctx)
	assert.NotNil(t, err)
}

func TestServiceTlsMissingFiles(t *testing.T) {
	s := service.NewService()
	err := s.Configure(map[string]string{
		"SERVICE_TLS_ENABLED":   "true",
		"SERVICE_TLS_CERT_FILE": "/does/not/exist.crt",
		"SERVICE_TLS_KEY_FILE":  "/does/not/exist.key",
	})
	assert.NotNil(t, err)
}
