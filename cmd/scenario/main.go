package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/cache"
	"github.com/antonio-alexander/go-employee-dashboard/internal/client"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/logic"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/antonio-alexander/go-stash/redis"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

type scenarioConfig struct {
	Scenario       string `env:"SCENARIO" envDefault:"stampeding_herd"`
	Clients        int    `env:"N_CLIENTS" envDefault:"2"`
	ReadInterval   int    `env:"SCENARIO_READ_INTERVAL" envDefault:"1"`   //seconds
	UpdateInterval int    `env:"SCENARIO_UPDATE_INTERVAL" envDefault:"2"` //seconds
	Duration       int    `env:"SCENARIO_DURATION" envDefault:"10"`       //seconds
}

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

func main() {
	args := os.Args[1:]
	envs, err := internal.Envs(".env")
	if err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}

func createCache(envs map[string]string, parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	cache.Cache
} {
	switch envs["CACHE_TYPE"] {
	default:
		return nil
	case cache.TypeMemory:
		return cache.NewMemory(parameters...)
	case cache.TypeRedis:
		return cache.NewRedis(parameters...)
	case cache.TypeStashMemory:
		stash := memory.New()
		_ = stash.Configure(envs)
		parameters = append(parameters, stash)
		return cache.NewStash(parameters...)
	case cache.TypeStashRedis:
		stash := redis.New()
		_ = stash.Configure(envs)
		parameters = append(parameters, stash)
		return cache.NewStash(parameters...)
	}
}

// ratio returns hits over total as a percentage
func ratio(hit, miss int) float64 {
	if hit+miss == 0 {
		return 0
	}
	return float64(hit) / float64(hit+miss) * 100
}

// determine hit/miss ratio with concurrent reads and lists while
// an employee is updated (invalidating the cache)
func scenarioStampedingHerd(ctx context.Context, config scenarioConfig, logger utilities.Logger,
	clients ...client.Client) error {
	const correlationId string = "scenario_stampeding_herd"
	const minClients int = 2

	readInterval := time.Duration(config.ReadInterval) * time.Second
	updateInterval := time.Duration(config.UpdateInterval) * time.Second
	scenarioDuration := time.Duration(config.Duration) * time.Second
	if len(clients) < minClients {
		return errors.New("not enough clients provided")
	}

	//generate context
	ctx = internal.CtxWithCorrelationId(ctx, correlationId)

	// create employee using the first client
	name, role := "Scenario "+internal.GenerateId()[:8], "Scenario Runner"
	email := internal.GenerateId()[:16] + "@company.com"
	tags := []string{"Scenario"}
	employeeCreated, err := clients[0].EmployeeCreate(ctx, data.EmployeePartial{
		Name:  &name,
		Email: &email,
		Role:  &role,
		Tags:  &tags,
	})
	if err != nil {
		return err
	}
	id := employeeCreated.ID
	defer func(id string) {
		_ = clients[0].EmployeeDelete(context.Background(), id)
		logger.Info(ctx, "deleted employee: %s", id)
	}(id)
	logger.Info(ctx, "created employee: %s", id)

	//clear cache counters before starting the go routines
	if err := clients[0].CacheClear(ctx); err != nil {
		return err
	}
	if err := clients[0].CacheCountersClear(ctx); err != nil {
		return err
	}
	ctxScenario, cancel := context.WithTimeout(ctx, scenarioDuration)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctxScenario)

	//create writer go routine
	g.Go(func() error {
		tUpdate := time.NewTicker(updateInterval)
		defer tUpdate.Stop()
		for i := 0; ; i++ {
			select {
			case <-gCtx.Done():
				return nil
			case <-tUpdate.C:
				learningAttitude := fmt.Sprintf("Attitude %d", i%3)
				if _, err := clients[0].EmployeeUpdate(gCtx, id, data.EmployeePartial{
					LearningAttitude: &learningAttitude,
				}); err != nil && gCtx.Err() == nil {
					logger.Error(gCtx, "error while updating employee: %s", err)
				}
			}
		}
	})

	//create reader go routines, they alternate between reading the
	// employee and listing the role it belongs to
	for i := 1; i < len(clients); i++ {
		client := clients[i]
		ctx := internal.CtxWithCorrelationId(gCtx,
			fmt.Sprintf("scenario_stampeding_herd_%d", i))
		g.Go(func() error {
			tRead := time.NewTicker(readInterval)
			defer tRead.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tRead.C:
					if _, err := client.EmployeeRead(ctx, id); err != nil && ctx.Err() == nil {
						logger.Error(ctx, "error while reading employee: %s", err)
					}
					if _, err := client.EmployeesSearch(ctx, data.EmployeeSearch{
						Role: role,
					}); err != nil && ctx.Err() == nil {
						logger.Error(ctx, "error while listing employees: %s", err)
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	//use initial client to get hit/miss ratios from server
	cacheCounters, err := clients[0].CacheCountersRead(ctx)
	if err != nil {
		return err
	}
	for _, key := range []string{logic.CounterEmployeeRead, logic.CounterEmployeesSearch} {
		hit, miss := cacheCounters.CounterHits[key], cacheCounters.CounterMisses[key]
		logger.Info(ctx, "%s cache hit miss ratio (%d/%d): %0.2f%%",
			key, hit, hit+miss, ratio(hit, miss))
	}
	return nil
}

func Main(args []string, envs map[string]string, osSignal chan os.Signal) error {
	var clients []client.Client
	var config scenarioConfig
	var wg sync.WaitGroup

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create logger
	logger := utilities.NewLogger()
	if err := logger.Configure(envs); err != nil {
		return err
	}
	if err := env.ParseWithOptions(&config, env.Options{Environment: envs}); err != nil {
		return err
	}

	//print version info
	logger.Info(ctx, "scenarios: go-employee-dashboard v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	for range config.Clients {
		//create cache
		cache := createCache(envs, logger)
		if cache != nil {
			if err := cache.Configure(envs); err != nil {
				return err
			}
			if err := cache.Open(ctx); err != nil {
				return err
			}
			defer func() {
				if err := cache.Close(context.Background()); err != nil {
					logger.Error(ctx, "error while closing cache: %s", err)
				}
			}()
		}

		//create client
		client := client.NewClient(cache, logger)
		if err := client.Configure(envs); err != nil {
			return err
		}
		if err := client.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Error(ctx, "error while closing client: %s", err)
			}
		}()
		clients = append(clients, client)
	}

	// execute scenario
	switch scenario := config.Scenario; scenario {
	default:
		return errors.Errorf("unsupported scenario: %s", scenario)
	case "stampeding_herd":
		logger.Info(ctx, "executing %s scenario", scenario)
		if err := scenarioStampedingHerd(ctx, config, logger, clients...); err != nil {
			logger.Error(ctx, "error while executing %s scenario: %s", scenario, err)
		}
	}
	cancel()
	wg.Wait()
	return nil
}
