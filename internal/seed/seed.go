// Package seed loads employees from a yaml document and creates the ones
// whose email isn't already taken, so seeding the same document twice is a
// no-op.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"os"
	"sync"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed employees.yaml
var employeesYaml []byte

// Target is what employees are seeded into: the logic or the client.
type Target interface {
	EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (*data.Employee, error)
}

type Seeder interface {
	Seed(ctx context.Context) (int, error)
}

type document struct {
	Employees []data.EmployeePartial `yaml:"employees"`
}

type seedConfig struct {
	Enabled bool   `env:"SEED_ENABLED" envDefault:"false"`
	File    string `env:"SEED_FILE"` //empty uses the embedded employees
}

type seeder struct {
	sync.Mutex
	config seedConfig
	target Target
	utilities.Logger
}

// Read decodes a yaml document with a top level list of employees.
func Read(reader io.Reader) ([]data.EmployeePartial, error) {
	var d document

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return []data.EmployeePartial{}, nil
		}
		return nil, errors.Wrap(err, "unable to decode seed document")
	}
	if d.Employees == nil {
		d.Employees = []data.EmployeePartial{}
	}
	return d.Employees, nil
}

func ReadFile(file string) ([]data.EmployeePartial, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Default returns the embedded employees.
func Default() []data.EmployeePartial {
	employees, err := Read(bytes.NewReader(employeesYaml))
	if err != nil {
		panic(err)
	}
	return employees
}

// Seed creates every employee whose email isn't taken yet and returns how
// many were created. An employee that fails validation stops the seed.
func Seed(ctx context.Context, target Target, logger utilities.Logger, employeePartials ...data.EmployeePartial) (int, error) {
	var created int

	if logger == nil {
		logger = utilities.NewNopLogger()
	}
	employees, err := target.EmployeesSearch(ctx, data.EmployeeSearch{})
	if err != nil {
		return 0, err
	}
	emails := make(map[string]struct{}, len(employees))
	for _, employee := range employees {
		emails[employee.Email] = struct{}{}
	}
	for i, employeePartial := range employeePartials {
		if employeePartial.Email != nil {
			email := *employeePartial.Email
			if _, taken := emails[email]; taken {
				logger.Debug(ctx, "seed: skipping %s, already exists", email)
				continue
			}
		}
		employee, err := target.EmployeeCreate(ctx, employeePartial)
		if err != nil {
			return created, errors.Wrapf(err, "unable to seed employee %d", i)
		}
		emails[employee.Email] = struct{}{}
		created++
	}
	return created, nil
}

func NewSeeder(parameters ...any) interface {
	internal.Configurer
	Seeder
} {
	s := &seeder{Logger: utilities.NewNopLogger()}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case Target:
			s.target = p
		case utilities.Logger:
			s.Logger = p
		}
	}
	return s
}

func (s *seeder) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	return env.ParseWithOptions(&s.config, env.Options{Environment: envs})
}

// Seed seeds the configured file, or the embedded employees when no file
// is configured; it does nothing unless enabled.
func (s *seeder) Seed(ctx context.Context) (int, error) {
	var employeePartials []data.EmployeePartial

	s.Lock()
	defer s.Unlock()

	if !s.config.Enabled {
		return 0, nil
	}
	if s.target == nil {
		return 0, errors.New("seeder requires a target")
	}
	switch file := s.config.File; file {
	default:
		e, err := ReadFile(file)
		if err != nil {
			return 0, err
		}
		employeePartials = e
	case "":
		employeePartials = Default()
	}
	created, err := Seed(ctx, s.target, s.Logger, employeePartials...)
	if err != nil {
		return created, err
	}
	s.Info(ctx, "seed: created %d of %d employees", created, len(employeePartials))
	return created, nil
}
