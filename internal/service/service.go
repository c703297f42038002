package service

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/export"
	"github.com/antonio-alexander/go-employee-dashboard/internal/logic"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/caarlos0/env/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

type serviceConfig struct {
	Address          string   `env:"SERVICE_ADDRESS"`
	Port             string   `env:"SERVICE_PORT" envDefault:"8080"`
	ShutdownTimeout  int      `env:"SERVICE_SHUTDOWN_TIMEOUT" envDefault:"10"` //seconds
	AllowedOrigins   []string `env:"SERVICE_CORS_ALLOWED_ORIGINS" envSeparator:","`
	AllowedMethods   []string `env:"SERVICE_CORS_ALLOWED_METHODS" envSeparator:","`
	AllowedHeaders   []string `env:"SERVICE_CORS_ALLOWED_HEADERS" envSeparator:","`
	AllowCredentials bool     `env:"SERVICE_CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	CorsDisabled     bool     `env:"SERVICE_CORS_DISABLED" envDefault:"false"`
	CorsDebug        bool     `env:"SERVICE_CORS_DEBUG" envDefault:"false"`
	TimersEnabled    bool     `env:"SERVICE_TIMERS_ENABLED" envDefault:"false"`
	TlsEnabled       bool     `env:"SERVICE_TLS_ENABLED" envDefault:"false"`
	TlsCertFile      string   `env:"SERVICE_TLS_CERT_FILE"`
	TlsKeyFile       string   `env:"SERVICE_TLS_KEY_FILE"`
	TlsCaFile        string   `env:"SERVICE_TLS_CA_FILE"`
}

type service struct {
	sync.RWMutex
	sync.WaitGroup
	config    serviceConfig
	tlsConfig *tls.Config
	ctx       context.Context
	cancel    context.CancelFunc
	opened    bool
	*mux.Router
	*http.Server
	cache internal.Clearer
	utilities.Logger
	utilities.Counter
	utilities.Timers
	logic.Logic
}

func NewService(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	http.Handler
} {
	router := mux.NewRouter()
	s := &service{
		Router: router,
		Server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Logger: utilities.NewNopLogger(),
	}
	s.config.ShutdownTimeout = 10
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case logic.Logic:
			s.Logic = p
		case internal.Clearer:
			s.cache = p
		case utilities.Counter:
			s.Counter = p
		case utilities.Timers:
			s.Timers = p
		case utilities.Logger:
			s.Logger = p
		}
	}
	s.buildRoutes()
	return s
}

func (s *service) launchServer() error {
	started := make(chan struct{})
	chErr := make(chan error, 1)
	s.Add(1)
	go func() {
		defer s.WaitGroup.Done()
		defer close(chErr)

		close(started)
		var err error
		switch {
		default:
			err = s.Server.ListenAndServe()
		case s.tlsConfig != nil:
			err = s.Server.ListenAndServeTLS("", "")
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			chErr <- err
		}
	}()
	<-started
	select {
	case err := <-chErr:
		//KIM: here we're accounting for a situation where the server closes unexexpectedly
		// but quickly (within a second of starting); this allows us to respond to errors such as
		// the port being already used
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	case <-time.After(time.Second):
		s.Info(s.ctx, "started server: %s", s.Server.Addr)
		return nil
	}
}

// timer starts a timer for the group if timers are enabled, the returned
// function stops it.
func (s *service) timer(ctx context.Context, group string) func() {
	if !s.config.TimersEnabled || s.Timers == nil {
		return func() {}
	}
	timerIndex := s.Timers.Start(group)
	return func() {
		elapsedTime := s.Timers.Stop(group, timerIndex)
		s.Trace(ctx, "%s took %v", group,
			time.Duration(elapsedTime)*time.Nanosecond)
	}
}

func (s *service) endpointDefault(writer http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(writer,
		"go-employee-dashboard\n"+
			"Version: \"%s\"\n"+
			"Git Commit: \"%s\"\n"+
			"Git Branch: \"%s\"\n",
		Version, GitCommit, GitBranch)
}

func (s *service) endpointEmployeeCreate(writer http.ResponseWriter, request *http.Request) {
	var employeePartial data.EmployeePartial

	ctx := requestCtx(request)
	defer s.timer(ctx, "employee_create")()
	if err := decodeBody(request, &employeePartial); err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	employee, err := s.EmployeeCreate(ctx, employeePartial)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	s.handleResponse(ctx, writer, nil, http.StatusCreated, employee)
	s.Trace(ctx, "executed employee_create: %s", employee.ID)
}

func (s *service) endpointEmployeeRead(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	defer s.timer(ctx, "employee_read")()
	id := idFromPath(mux.Vars(request))
	employee, err := s.EmployeeRead(ctx, id)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	s.handleResponse(ctx, writer, nil, http.StatusOK, employee)
	s.Trace(ctx, "executed employee_read: %s", id)
}

func (s *service) endpointEmployeesSearch(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	defer s.timer(ctx, "employees_search")()
	search, err := searchFromRequest(request)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	employees, err := s.EmployeesSearch(ctx, search)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	if employees == nil {
		employees = []*data.Employee{}
	}
	s.handleResponse(ctx, writer, nil, http.StatusOK, employees)
	s.Trace(ctx, "executed employees_search: %d employees", len(employees))
}

func (s *service) endpointEmployeesStats(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	defer s.timer(ctx, "employees_stats")()
	search, err := searchFromRequest(request)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	stats, err := s.EmployeesStats(ctx, search)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	s.handleResponse(ctx, writer, nil, http.StatusOK, stats)
	s.Trace(ctx, "executed employees_stats")
}

func (s *service) endpointEmployeesExport(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	defer s.timer(ctx, "employees_export")()
	search, err := searchFromRequest(request)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	employees, err := s.EmployeesSearch(ctx, search)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	writer.Header().Set("Content-Type", export.ContentType)
	writer.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.FileName))
	if err := export.Write(writer, employees...); err != nil {
		s.Error(ctx, "error while exporting employees: %s", err)
		return
	}
	s.Trace(ctx, "executed employees_export: %d employees", len(employees))
}

func (s *service) endpointEmployeeUpdate(writer http.ResponseWriter, request *http.Request) {
	var employeePartial data.EmployeePartial

	ctx := requestCtx(request)
	defer s.timer(ctx, "employee_update")()
	id := idFromPath(mux.Vars(request))
	if err := decodeBody(request, &employeePartial); err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	employee, err := s.EmployeeUpdate(ctx, id, employeePartial)
	if err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	s.handleResponse(ctx, writer, nil, http.StatusOK, employee)
	s.Trace(ctx, "executed employee_update: %s", id)
}

func (s *service) endpointEmployeeDelete(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	defer s.timer(ctx, "employee_delete")()
	id := idFromPath(mux.Vars(request))
	if err := s.EmployeeDelete(ctx, id); err != nil {
		s.handleResponse(ctx, writer, err, 0, nil)
		return
	}
	s.handleResponse(ctx, writer, nil, http.StatusOK,
		&data.Message{Message: MessageEmployeeDeleted})
	s.Trace(ctx, "executed employee_delete: %s", id)
}

func (s *service) endpointQuestions(writer http.ResponseWriter, request *http.Request) {
	s.handleResponse(requestCtx(request), writer, nil, http.StatusOK, data.Questions)
}

func (s *service) endpointCacheClear(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.handleResponse(ctx, writer, err, 0, nil)
			return
		}
		s.Trace(ctx, "executed cache_clear")
	}
	s.handleResponse(ctx, writer, nil, http.StatusNoContent, nil)
}

func (s *service) endpointCacheCountersRead(writer http.ResponseWriter, request *http.Request) {
	counters := &data.CacheCounters{}
	if s.Counter != nil {
		counters = s.Counter.ReadAll()
	}
	s.handleResponse(requestCtx(request), writer, nil, http.StatusOK, counters)
}

func (s *service) endpointCacheCountersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	if s.Counter != nil {
		s.Counter.Reset()
	}
	s.handleResponse(ctx, writer, nil, http.StatusNoContent, nil)
	s.Trace(ctx, "executed cache_counters_clear")
}

func (s *service) endpointTimersRead(writer http.ResponseWriter, request *http.Request) {
	timers := &data.Timers{}
	if s.Timers != nil {
		timers = s.Timers.ReadAll()
	}
	s.handleResponse(requestCtx(request), writer, nil, http.StatusOK, timers)
}

func (s *service) endpointTimersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := requestCtx(request)
	if s.Timers != nil {
		s.Timers.Clear()
	}
	s.handleResponse(ctx, writer, nil, http.StatusNoContent, nil)
	s.Trace(ctx, "executed timers_clear")
}

func (s *service) buildRoutes() {
	s.Router.HandleFunc("/", s.endpointDefault)
	//KIM: the static routes have to be registered before the {id} route
	// or mux will treat "stats" and "export" as ids
	s.Router.HandleFunc(data.RouteEmployeesStats, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesStats(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteEmployeesExport, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesExport(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteEmployees, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesSearch(w, r)
		case http.MethodPost:
			s.endpointEmployeeCreate(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteEmployeesID, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeeRead(w, r)
		case http.MethodPut:
			s.endpointEmployeeUpdate(w, r)
		case http.MethodDelete:
			s.endpointEmployeeDelete(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteQuestions, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointQuestions(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteCacheCounters, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointCacheCountersRead(w, r)
		case http.MethodDelete:
			s.endpointCacheCountersClear(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteCache, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodDelete:
			s.endpointCacheClear(w, r)
		}
	})
	s.Router.HandleFunc(data.RouteTimers, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointTimersRead(w, r)
		case http.MethodDelete:
			s.endpointTimersClear(w, r)
		}
	})
}

// ServeHTTP serves the routes with the configured cors policy; the server
// started by Open uses it as its handler.
func (s *service) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	s.RLock()
	handler := s.Server.Handler
	s.RUnlock()
	handler.ServeHTTP(writer, request)
}

func (s *service) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	if err := env.ParseWithOptions(&s.config, env.Options{Environment: envs}); err != nil {
		return err
	}
	if s.config.ShutdownTimeout <= 0 {
		s.config.ShutdownTimeout = 10
	}
	s.Server.Handler = s.Router
	if !s.config.CorsDisabled {
		s.Server.Handler = cors.New(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowCredentials: s.config.AllowCredentials,
			AllowedMethods:   s.config.AllowedMethods,
			AllowedHeaders:   s.config.AllowedHeaders,
			Debug:            s.config.CorsDebug,
		}).Handler(s.Router)
	}
	s.tlsConfig = nil
	if s.config.TlsEnabled {
		tlsConfig, err := internal.GetTlsConfig(s.config.TlsCertFile,
			s.config.TlsKeyFile, s.config.TlsCaFile)
		if err != nil {
			return err
		}
		s.tlsConfig = tlsConfig
	}
	return nil
}

func (s *service) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.opened {
		return nil
	}
	if s.Logic == nil {
		return errors.New("service requires logic")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Server.Addr = net.JoinHostPort(s.config.Address, s.config.Port)
	s.Server.TLSConfig = s.tlsConfig
	if err := s.launchServer(); err != nil {
		s.cancel()
		return err
	}
	s.opened = true
	return nil
}

func (s *service) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if !s.opened {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx,
		time.Duration(s.config.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := s.Server.Shutdown(ctx); err != nil {
		s.Error(ctx, "error while shutting down the server: %s", err)
	}
	s.cancel()
	s.Wait()
	s.opened = false
	return nil
}

// decodeBody reads a json body; anything malformed is a validation error.
func decodeBody(request *http.Request, item any) error {
	bytes, err := io.ReadAll(request.Body)
	defer request.Body.Close()
	if err != nil {
		return data.NewValidationError("unable to read body: %s", err)
	}
	if strings.TrimSpace(string(bytes)) == "" {
		return data.NewValidationError("empty body")
	}
	if err := json.Unmarshal(bytes, item); err != nil {
		return data.NewValidationError("malformed json: %s", err)
	}
	return nil
}
