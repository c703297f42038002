package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/cache"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
)

type Client interface {
	EmployeeCreate(ctx context.Context,
		employeePartial data.EmployeePartial) (*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeesSearch(ctx context.Context,
		search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeeUpdate(ctx context.Context, id string,
		employeePartial data.EmployeePartial) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id string) error
	EmployeesStats(ctx context.Context,
		search data.EmployeeSearch) (*data.EmployeeStats, error)
	EmployeesExport(ctx context.Context, search data.EmployeeSearch,
		writer io.Writer) error
	Questions(ctx context.Context) ([]data.Question, error)
	CacheClear(ctx context.Context) error
	CacheCountersRead(ctx context.Context) (*data.CacheCounters, error)
	CacheCountersClear(ctx context.Context) error
	TimersRead(ctx context.Context) (*data.Timers, error)
	TimersClear(ctx context.Context) error
}

type clientConfig struct {
	Protocol     string `env:"CLIENT_PROTOCOL" envDefault:"http"`
	Address      string `env:"CLIENT_ADDRESS" envDefault:"localhost"`
	Port         string `env:"CLIENT_PORT" envDefault:"8080"`
	Timeout      int    `env:"CLIENT_TIMEOUT" envDefault:"10"` //seconds
	SslCaFile    string `env:"SSL_CA_FILE"`
	SslCrtFile   string `env:"SSL_CRT_FILE"`
	SslKeyFile   string `env:"SSL_KEY_FILE"`
	CacheEnabled bool   `env:"CLIENT_CACHE_ENABLED" envDefault:"false"`
}

type client struct {
	sync.RWMutex
	config  clientConfig
	address string
	cache   cache.Cache
	utilities.Logger
	*http.Client
}

func NewClient(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Client
} {
	c := &client{
		Client: &http.Client{},
		Logger: utilities.NewNopLogger(),
	}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case cache.Cache:
			c.cache = p
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func (c *client) cacheEnabled() bool {
	return c.cache != nil && c.config.CacheEnabled
}

func (c *client) doRequest(ctx context.Context, uri, method string, item any) ([]byte, error) {
	var contentType string
	var body io.Reader

	switch d := item.(type) {
	case []byte:
		body = bytes.NewBuffer(d)
		contentType = "application/json"
	case url.Values:
		if len(d) > 0 {
			uri = uri + "?" + d.Encode()
		}
	}
	request, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if correlationId := internal.CorrelationIdFromCtx(ctx); correlationId != "" {
		request.Header.Set(data.HeaderCorrelationId, correlationId)
	}
	response, err := c.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, uri)
	}
	bytes, err := io.ReadAll(response.Body)
	defer response.Body.Close()
	if err != nil {
		return nil, err
	}
	switch response.StatusCode {
	default:
		return nil, errorFromResponse(response.StatusCode, bytes)
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return bytes, nil
	}
}

func (c *client) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	return env.ParseWithOptions(&c.config, env.Options{Environment: envs})
}

func (c *client) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	switch c.config.Protocol {
	default:
		return errors.Errorf("unsupported protocol: %s", c.config.Protocol)
	case "http", "https":
		c.address = fmt.Sprintf("%s://%s", c.config.Protocol,
			net.JoinHostPort(c.config.Address, c.config.Port))
	}
	if c.cacheEnabled() {
		c.Info(ctx, "client: cache enabled")
	}
	c.Client.Timeout = time.Duration(c.config.Timeout) * time.Second
	transport, err := getTransport(c.config.SslCaFile, c.config.SslCrtFile,
		c.config.SslKeyFile)
	if err != nil {
		return err
	}
	c.Client.Transport = transport
	return nil
}

func (c *client) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.Client.CloseIdleConnections()
	return nil
}

// invalidate drops what this client has cached once it mutates something,
// the same way the service does.
func (c *client) invalidate(ctx context.Context, ids ...string) {
	if !c.cacheEnabled() {
		return
	}
	if len(ids) > 0 {
		if err := c.cache.EmployeesDelete(ctx, ids...); err != nil {
			c.Error(ctx, "error while deleting employees %v from cache: %s", ids, err)
		}
	}
	if err := c.cache.SearchesDelete(ctx); err != nil {
		c.Error(ctx, "error while deleting searches from cache: %s", err)
	}
}

func (c *client) EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (*data.Employee, error) {
	bytes, err := json.Marshal(&employeePartial)
	if err != nil {
		return nil, err
	}
	uri := c.address + data.RouteEmployees
	bytes, err = c.doRequest(ctx, uri, http.MethodPost, bytes)
	if err != nil {
		return nil, err
	}
	employee := &data.Employee{}
	if err := json.Unmarshal(bytes, employee); err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return employee, nil
}

func (c *client) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	if c.cacheEnabled() {
		employee, err := c.cache.EmployeeRead(ctx, id)
		if err == nil {
			return employee, nil
		}
		c.Trace(ctx, "employee (%s) not read from cache: %s", id, err)
	}
	uri := fmt.Sprintf(c.address+data.RouteEmployeesIDf, url.PathEscape(id))
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	employee := &data.Employee{}
	if err := json.Unmarshal(bytes, employee); err != nil {
		return nil, err
	}
	if c.cacheEnabled() {
		if err := c.cache.EmployeeWrite(ctx, employee); err != nil {
			c.Error(ctx, "error while writing employee (%s) to cache: %s", id, err)
		}
	}
	return employee, nil
}

func (c *client) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	var employees []*data.Employee

	if c.cacheEnabled() {
		employees, err := c.cache.EmployeesRead(ctx, search)
		if err == nil {
			return employees, nil
		}
		c.Trace(ctx, "employees not read from cache: %s", err)
	}
	uri := c.address + data.RouteEmployees
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, search.ToParams())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bytes, &employees); err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []*data.Employee{}
	}
	if c.cacheEnabled() {
		if err := c.cache.EmployeesWrite(ctx, search, employees...); err != nil {
			c.Error(ctx, "error while writing employees to cache: %s", err)
		}
	}
	return employees, nil
}

func (c *client) EmployeeUpdate(ctx context.Context, id string, employeePartial data.EmployeePartial) (*data.Employee, error) {
	bytes, err := json.Marshal(&employeePartial)
	if err != nil {
		return nil, err
	}
	uri := fmt.Sprintf(c.address+data.RouteEmployeesIDf, url.PathEscape(id))
	bytes, err = c.doRequest(ctx, uri, http.MethodPut, bytes)
	if err != nil {
		return nil, err
	}
	employee := &data.Employee{}
	if err := json.Unmarshal(bytes, employee); err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return employee, nil
}

func (c *client) EmployeeDelete(ctx context.Context, id string) error {
	uri := fmt.Sprintf(c.address+data.RouteEmployeesIDf, url.PathEscape(id))
	if _, err := c.doRequest(ctx, uri, http.MethodDelete, nil); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *client) EmployeesStats(ctx context.Context, search data.EmployeeSearch) (*data.EmployeeStats, error) {
	uri := c.address + data.RouteEmployeesStats
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, search.ToParams())
	if err != nil {
		return nil, err
	}
	stats := &data.EmployeeStats{}
	if err := json.Unmarshal(bytes, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *client) EmployeesExport(ctx context.Context, search data.EmployeeSearch, writer io.Writer) error {
	uri := c.address + data.RouteEmployeesExport
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, search.ToParams())
	if err != nil {
		return err
	}
	_, err = writer.Write(bytes)
	return err
}

func (c *client) Questions(ctx context.Context) ([]data.Question, error) {
	var questions []data.Question

	uri := c.address + data.RouteQuestions
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bytes, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *client) CacheClear(ctx context.Context) error {
	uri := c.address + data.RouteCache
	if _, err := c.doRequest(ctx, uri, http.MethodDelete, nil); err != nil {
		return err
	}
	return nil
}

func (c *client) CacheCountersRead(ctx context.Context) (*data.CacheCounters, error) {
	uri := c.address + data.RouteCacheCounters
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	response := &data.CacheCounters{}
	if err := json.Unmarshal(bytes, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) CacheCountersClear(ctx context.Context) error {
	uri := c.address + data.RouteCacheCounters
	if _, err := c.doRequest(ctx, uri, http.MethodDelete, nil); err != nil {
		return err
	}
	return nil
}

func (c *client) TimersRead(ctx context.Context) (*data.Timers, error) {
	uri := c.address + data.RouteTimers
	bytes, err := c.doRequest(ctx, uri, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	response := &data.Timers{}
	if err := json.Unmarshal(bytes, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) TimersClear(ctx context.Context) error {
	uri := c.address + data.RouteTimers
	if _, err := c.doRequest(ctx, uri, http.MethodDelete, nil); err != nil {
		return err
	}
	return nil
}
