package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/cache"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/logic"
	"github.com/antonio-alexander/go-employee-dashboard/internal/seed"
	"github.com/antonio-alexander/go-employee-dashboard/internal/service"
	"github.com/antonio-alexander/go-employee-dashboard/internal/store"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/antonio-alexander/go-stash/redis"

	"github.com/pkg/errors"
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

func main() {
	pwd, _ := os.Getwd()
	args := os.Args[1:]
	envs, err := internal.Envs(".env")
	if err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(pwd, args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}

func createStore(envs map[string]string, parameters ...any) (interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	store.Store
}, error) {
	switch storeType := envs["STORE_TYPE"]; storeType {
	default:
		return nil, errors.Errorf("unsupported store type: %s", storeType)
	case "", "memory":
		return store.NewMemory(parameters...), nil
	case "sql":
		return store.NewSql(parameters...), nil
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

func Main(pwd string, args []string, envs map[string]string, osSignal chan os.Signal) error {
	var wg sync.WaitGroup

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create utilities
	logger := utilities.NewLogger()
	if err := logger.Configure(envs); err != nil {
		return err
	}
	timers := utilities.NewTimers()
	counter := utilities.NewCounter()

	//print version info
	logger.Info(ctx, "server: go-employee-dashboard v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	//create store, configure and open
	store, err := createStore(envs, logger)
	if err != nil {
		return err
	}
	if err := store.Configure(envs); err != nil {
		return err
	}
	if err := store.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error(context.Background(), "error while closing store: %s", err)
		}
	}()

	// create cache
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
				logger.Error(context.Background(), "error while closing cache: %s", err)
			}
		}()
	}

	//create logic, configure and open
	logic := logic.NewLogic(store, logger, counter, cache)
	if err := logic.Configure(envs); err != nil {
		return err
	}
	if err := logic.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := logic.Close(context.Background()); err != nil {
			logger.Error(context.Background(), "error while closing logic: %s", err)
		}
	}()

	//seed employees through the logic so the cache stays consistent
	seeder := seed.NewSeeder(logic, logger)
	if err := seeder.Configure(envs); err != nil {
		return err
	}
	if _, err := seeder.Seed(ctx); err != nil {
		return err
	}

	//create service, configure and open
	service := service.NewService(logic, cache, logger, counter, timers)
	if err := service.Configure(envs); err != nil {
		return err
	}
	if err := service.Open(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	wg.Wait()
	if err := service.Close(context.Background()); err != nil {
		logger.Error(context.Background(), "error while closing service: %s", err)
	}
	return nil
}
