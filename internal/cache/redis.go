package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/caarlos0/env/v10"
	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

const (
	hashKeyEmployees       string = "employees"
	hashKeySearch          string = "search"
	hashKeyInProgress      string = "in_progress_employees"
	hashKeyInProgressMutex string = "in_progress_mutex"
)

type redisConfig struct {
	Address                 string `env:"REDIS_ADDRESS" envDefault:"localhost"`
	Port                    string `env:"REDIS_PORT" envDefault:"6379"`
	Password                string `env:"REDIS_PASSWORD"`
	Database                int    `env:"REDIS_DATABASE" envDefault:"0"`
	Timeout                 int    `env:"REDIS_TIMEOUT" envDefault:"10"`         //seconds
	ConnectTimeout          int    `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30"` //seconds
	InProgressPruneInterval int    `env:"CACHE_PRUNE_INTERVAL" envDefault:"10"`  //seconds
	InProgressTTL           int    `env:"CACHE_SET_READ_TTL" envDefault:"10"`    //seconds
	InProgressEnabled       bool   `env:"CACHE_ENABLE_IN_PROGRESS" envDefault:"false"`
	MutexExpiration         int    `env:"CACHE_REDIS_MUTEX_EXPIRATION" envDefault:"10"` //seconds
	MutexRetryInterval      int    `env:"REDIS_MUTEX_RETRY_INTERVAL" envDefault:"1"`    //seconds
}

type redisCache struct {
	sync.WaitGroup
	redisClient *redis.Client
	config      redisConfig
	ctx         context.Context
	ctxCancel   context.CancelFunc
	utilities.Logger
}

func NewRedis(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &redisCache{Logger: utilities.NewNopLogger()}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func (c *redisCache) launchPruneSetRead() {
	started := make(chan struct{})
	c.Add(1)
	go func() {
		defer c.Done()

		ttl := time.Duration(c.config.InProgressTTL) * time.Second
		pruneFx := func() {
			c.Lock()
			defer c.Unlock()

			var fieldsToDelete []string

			values, err := c.redisClient.HGetAll(c.ctx, hashKeyInProgress).Result()
			if err != nil {
				return
			}
			for field, value := range values {
				t, _ := strconv.ParseInt(value, 10, 64)
				if time.Since(time.Unix(0, t)) > ttl {
					fieldsToDelete = append(fieldsToDelete, field)
				}
			}
			if len(fieldsToDelete) > 0 {
				_, _ = c.redisClient.HDel(c.ctx, hashKeyInProgress, fieldsToDelete...).Result()
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

// Lock acquires a mutex shared by every service using the same redis so
// in-progress markers are set by exactly one reader.
func (c *redisCache) Lock() {
	lockFx := func() bool {
		result, err := c.redisClient.SetNX(c.ctx, hashKeyInProgressMutex, true,
			time.Duration(c.config.MutexExpiration)*time.Second).Result()
		if err != nil {
			return false
		}
		return result
	}
	if lockFx() {
		return
	}
	tRetry := time.NewTicker(time.Duration(c.config.MutexRetryInterval) * time.Second)
	defer tRetry.Stop()
	for {
		select {
		case <-tRetry.C:
			if lockFx() {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *redisCache) Unlock() {
	script := `
			local key = KEYS[1]
			local expected_value = ARGV[1]

			local current_value = redis.call('GET', key)

			if current_value == expected_value then
			    return redis.call('DEL', key)
			else
		    	return 0 -- Key not deleted (value did not match)
			end
		`
	item, err := c.redisClient.Eval(c.ctx, script,
		[]string{hashKeyInProgressMutex}, true).Result()
	if err != nil {
		return
	}
	if i, ok := item.(int64); ok && i != 1 {
		c.Error(c.ctx, "attempted to unlock an unlocked mutex")
	}
}

func (c *redisCache) Configure(envs map[string]string) error {
	if err := env.ParseWithOptions(&c.config, env.Options{Environment: envs}); err != nil {
		return err
	}
	if c.config.InProgressPruneInterval <= 0 {
		c.config.InProgressPruneInterval = 10
	}
	if c.config.MutexRetryInterval <= 0 {
		c.config.MutexRetryInterval = 1
	}
	return nil
}

func (c *redisCache) Open(ctx context.Context) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(c.config.Address, c.config.Port),
		Password: c.config.Password,
		DB:       c.config.Database,
	})
	if _, err := backoff.Retry(ctx, func() (string, error) {
		return redisClient.Ping(ctx).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(time.Duration(c.config.ConnectTimeout)*time.Second),
	); err != nil {
		_ = redisClient.Close()
		return err
	}
	c.redisClient = redisClient
	c.ctx, c.ctxCancel = context.WithCancel(context.Background())
	if c.config.InProgressEnabled {
		c.launchPruneSetRead()
	}
	return nil
}

func (c *redisCache) Close(ctx context.Context) error {
	if c.ctxCancel == nil {
		return nil
	}
	c.ctxCancel()
	c.Wait()
	if err := c.redisClient.Close(); err != nil {
		c.Error(ctx, "error while shutting down redis client: %s", err)
	}
	c.ctxCancel = nil
	return nil
}

func (c *redisCache) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
}

func (c *redisCache) Clear(ctx context.Context) error {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	if _, err := c.redisClient.Del(ctx, hashKeyEmployees, hashKeySearch,
		hashKeyInProgress, hashKeyInProgressMutex).Result(); err != nil {
		return err
	}
	return nil
}

// setInProgress marks key as being read, it returns the error the caller
// should see for the miss.
func (c *redisCache) setInProgress(ctx context.Context, key string, errSet, errAlreadySet error) error {
	c.Lock()
	defer c.Unlock()

	result, err := c.redisClient.HSetNX(ctx, hashKeyInProgress, key,
		fmt.Sprint(time.Now().UnixNano())).Result()
	if err != nil {
		return fmt.Errorf("error while setting read (%s) in progress: %w", key, err)
	}
	if !result {
		return errAlreadySet
	}
	return errSet
}

func (c *redisCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	value, err := c.redisClient.HGet(ctx, hashKeyEmployees, id).Result()
	if err != nil {
		switch {
		default:
			return nil, err
		case errors.Is(err, redis.Nil):
			if !c.config.InProgressEnabled {
				return nil, ErrEmployeeNotCached
			}
			return nil, c.setInProgress(ctx, id, ErrEmployeeReadSet, ErrEmployeeReadAlreadySet)
		}
	}
	employee := &data.Employee{}
	if err := employee.UnmarshalBinary([]byte(value)); err != nil {
		return nil, err
	}
	return employee, nil
}

func (c *redisCache) EmployeeWrite(ctx context.Context, employee *data.Employee) error {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	bytes, err := employee.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := c.redisClient.HSet(ctx, hashKeyEmployees, employee.ID,
		string(bytes)).Result(); err != nil {
		return err
	}
	if c.config.InProgressEnabled {
		_, _ = c.redisClient.HDel(ctx, hashKeyInProgress, employee.ID).Result()
	}
	return nil
}

func (c *redisCache) EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	var ids keyList

	ctx, cancel := c.timeout(ctx)
	defer cancel()

	searchKey, err := search.ToKey()
	if err != nil {
		return nil, err
	}
	value, err := c.redisClient.HGet(ctx, hashKeySearch, searchKey).Result()
	if err != nil {
		switch {
		default:
			return nil, err
		case errors.Is(err, redis.Nil):
			if !c.config.InProgressEnabled {
				return nil, ErrEmployeeSearchNotCached
			}
			return nil, c.setInProgress(ctx, searchKey, ErrEmployeesSearchSet, ErrEmployeesSearchAlreadySet)
		}
	}
	if err := ids.UnmarshalBinary([]byte(value)); err != nil {
		return nil, err
	}
	employees := make([]*data.Employee, 0, len(ids.Keys))
	if len(ids.Keys) == 0 {
		return employees, nil
	}
	values, err := c.redisClient.HMGet(ctx, hashKeyEmployees, ids.Keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, value := range values {
		s, ok := value.(string)
		if !ok {
			//KIM: a partially cached list is stale, it's treated as a miss
			return nil, ErrEmployeeSearchNotCached
		}
		employee := &data.Employee{}
		if err := employee.UnmarshalBinary([]byte(s)); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

func (c *redisCache) EmployeesWrite(ctx context.Context, search data.EmployeeSearch, employees ...*data.Employee) error {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	searchKey, err := search.ToKey()
	if err != nil {
		return fmt.Errorf("error while creating search key: %w", err)
	}
	ids := &keyList{Keys: employeeIds(employees)}
	for _, employee := range employees {
		bytes, err := employee.MarshalBinary()
		if err != nil {
			return err
		}
		if _, err := c.redisClient.HSet(ctx, hashKeyEmployees,
			employee.ID, string(bytes)).Result(); err != nil {
			return err
		}
	}
	bytes, err := ids.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := c.redisClient.HSet(ctx, hashKeySearch, searchKey,
		string(bytes)).Result(); err != nil {
		return err
	}
	if c.config.InProgressEnabled {
		c.Lock()
		defer c.Unlock()

		fieldsToDelete := append(ids.Keys, searchKey)
		_, _ = c.redisClient.HDel(ctx, hashKeyInProgress, fieldsToDelete...).Result()
	}
	return nil
}

func (c *redisCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	if _, err := c.redisClient.HDel(ctx, hashKeyEmployees, ids...).Result(); err != nil {
		return err
	}
	if c.config.InProgressEnabled {
		c.Lock()
		defer c.Unlock()

		_, _ = c.redisClient.HDel(ctx, hashKeyInProgress, ids...).Result()
	}
	return nil
}

func (c *redisCache) SearchesDelete(ctx context.Context) error {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	if _, err := c.redisClient.Del(ctx, hashKeySearch).Result(); err != nil {
		return err
	}
	return nil
}
