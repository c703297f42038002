package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/query"
	"github.com/antonio-alexander/go-employee-dashboard/internal/utilities"

	"github.com/caarlos0/env/v10"
	"github.com/cenkalti/backoff/v5"
)

const (
	tableEmployees    = "employees"
	tableEmployeeTags = "employee_tags"
	employeeColumns   = `e.id, e.name, e.email, e.role, e.assessment_submitted,
		e.assessment_answers, e.submission_date, e.interest_area, e.long_term_goals,
		e.work_culture_preference, e.learning_attitude, e.learning_score`
)

type sqlConfig struct {
	Driver         string `env:"DATABASE_DRIVER" envDefault:"mysql"`
	Hostname       string `env:"DATABASE_HOST" envDefault:"localhost"`
	Port           string `env:"DATABASE_PORT" envDefault:"3306"`
	Username       string `env:"DATABASE_USER"`
	Password       string `env:"DATABASE_PASSWORD"`
	Database       string `env:"DATABASE_NAME" envDefault:"employees"`
	File           string `env:"DATABASE_FILE" envDefault:"employees.db"`
	SslMode        string `env:"DATABASE_SSL_MODE" envDefault:"disable"`
	ConnectTimeout int    `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"30"` //seconds
	QueryTimeout   int    `env:"DATABASE_QUERY_TIMEOUT" envDefault:"10"`   //seconds
	ParseTime      bool   `env:"DATABASE_PARSE_TIME" envDefault:"true"`
	Migrate        bool   `env:"DATABASE_MIGRATE" envDefault:"false"`
}

type sqlStore struct {
	sync.RWMutex
	config  sqlConfig
	dialect *dialect
	*sql.DB
	utilities.Logger
	opened bool
}

func NewSql(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Store
} {
	s := &sqlStore{Logger: utilities.NewNopLogger()}
	for _, parameter := range parameters {
		switch v := parameter.(type) {
		case utilities.Logger:
			s.Logger = v
		}
	}
	return s
}

func (s *sqlStore) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	if err := env.ParseWithOptions(&s.config, env.Options{Environment: envs}); err != nil {
		return err
	}
	dialect, err := getDialect(s.config.Driver)
	if err != nil {
		return err
	}
	s.dialect = dialect
	return nil
}

func (s *sqlStore) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.opened {
		return nil
	}
	if s.dialect == nil {
		return errors.New("sql store not configured")
	}
	db, err := sql.Open(s.dialect.driver, s.dialect.dataSource(&s.config))
	if err != nil {
		return err
	}
	if s.dialect.maxConns > 0 {
		db.SetMaxOpenConns(s.dialect.maxConns)
	}
	if _, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(time.Duration(s.config.ConnectTimeout)*time.Second),
		backoff.WithNotify(func(err error, d time.Duration) {
			s.Debug(ctx, "unable to ping %s, retrying in %s: %s", s.dialect.driver, d, err)
		}),
	); err != nil {
		_ = db.Close()
		return err
	}
	if s.config.Migrate {
		for _, statement := range s.dialect.schema() {
			if _, err := db.ExecContext(ctx, statement); err != nil {
				_ = db.Close()
				return fmt.Errorf("error while migrating: %w", err)
			}
		}
	}
	s.DB = db
	s.opened = true
	s.Info(ctx, "sql store opened (%s)", s.dialect.driver)
	return nil
}

func (s *sqlStore) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if !s.opened {
		return nil
	}
	if err := s.DB.Close(); err != nil {
		s.Error(ctx, "error while closing sql: %s", err)
	}
	s.opened = false
	return nil
}

func (s *sqlStore) Clear(ctx context.Context) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	for _, table := range []string{tableEmployeeTags, tableEmployees} {
		if _, err := s.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return data.NewUnexpectedError(err)
		}
	}
	return nil
}

func (s *sqlStore) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(s.config.QueryTimeout)*time.Second)
}

// withTx runs fx in a transaction, rolling back if it returns an error.
func (s *sqlStore) withTx(ctx context.Context, fx func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fx(tx); err != nil {
		if err := tx.Rollback(); err != nil {
			s.Error(ctx, "error while rolling back: %s", err)
		}
		return err
	}
	return tx.Commit()
}

// storeError maps a driver error onto the error taxonomy; the unique
// constraint on email backs up the explicit check inside the transaction.
func (s *sqlStore) storeError(err error, email string) error {
	if isUniqueViolation(err) {
		return data.NewValidationError("email already exists: %s", email)
	}
	return data.NewUnexpectedError(err)
}

func (s *sqlStore) emailTaken(ctx context.Context, tx *sql.Tx, email, id string) error {
	var owner string

	query := fmt.Sprintf("SELECT id FROM %s WHERE email = ? AND id <> ?", tableEmployees)
	err := tx.QueryRowContext(ctx, s.dialect.rebind(query), email, id).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	}
	return data.NewValidationError("email already exists: %s", email)
}

func (s *sqlStore) tagsWrite(ctx context.Context, tx *sql.Tx, id string, tags []string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE employee_id = ?", tableEmployeeTags)
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(query), id); err != nil {
		return err
	}
	query = fmt.Sprintf("INSERT INTO %s (employee_id, tag_order, tag) VALUES (?, ?, ?)",
		tableEmployeeTags)
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(query), id, i, tag); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) EmployeeCreate(ctx context.Context, employeePartial data.EmployeePartial) (*data.Employee, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	employee := employeePartial.ToEmployee()
	employee.ID = internal.GenerateId()
	answers, err := answersValue(employee.AssessmentAnswers)
	if err != nil {
		return nil, data.NewUnexpectedError(err)
	}
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.emailTaken(ctx, tx, employee.Email, employee.ID); err != nil {
			return err
		}
		query := fmt.Sprintf(`INSERT INTO %s (id, name, email, role, assessment_submitted,
			assessment_answers, submission_date, interest_area, long_term_goals,
			work_culture_preference, learning_attitude, learning_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, tableEmployees)
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(query),
			employee.ID, employee.Name, employee.Email, employee.Role,
			employee.AssessmentSubmitted, answers, dateValue(employee.SubmissionDate),
			employee.InterestArea, employee.LongTermGoals, employee.WorkCulturePreference,
			employee.LearningAttitude, scoreValue(employee.LearningScore),
		); err != nil {
			return err
		}
		return s.tagsWrite(ctx, tx, employee.ID, employee.Tags)
	}); err != nil {
		return nil, s.storeError(err, employee.Email)
	}
	s.Trace(ctx, "created employee: %s", employee.ID)
	return s.employeeRead(ctx, employee.ID)
}

func (s *sqlStore) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	return s.employeeRead(ctx, id)
}

func (s *sqlStore) employeeRead(ctx context.Context, id string) (*data.Employee, error) {
	query := fmt.Sprintf("SELECT %s FROM %s e WHERE e.id = ?", employeeColumns, tableEmployees)
	employee, err := employeeScan(s.QueryRowContext(ctx, s.dialect.rebind(query), id).Scan)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, data.NewNotFoundError(id)
	case err != nil:
		return nil, data.NewUnexpectedError(err)
	}
	query = fmt.Sprintf("SELECT employee_id, tag FROM %s WHERE employee_id = ? ORDER BY tag_order",
		tableEmployeeTags)
	if err := s.tagsRead(ctx, s.dialect.rebind(query), []any{id},
		map[string]*data.Employee{id: employee}); err != nil {
		return nil, data.NewUnexpectedError(err)
	}
	return employee, nil
}

func (s *sqlStore) tagsRead(ctx context.Context, query string, args []any, employees map[string]*data.Employee) error {
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, tag string

		if err := rows.Scan(&id, &tag); err != nil {
			return err
		}
		if employee, ok := employees[id]; ok {
			employee.Tags = append(employee.Tags, tag)
		}
	}
	return rows.Err()
}

func (s *sqlStore) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	employees := []*data.Employee{}
	index := make(map[string]*data.Employee)
	criteria, args := employeeCriteria(search)
	query := fmt.Sprintf("SELECT %s FROM %s e %s ORDER BY %s", employeeColumns,
		tableEmployees, criteria, employeeOrder(search))
	rows, err := s.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, data.NewUnexpectedError(err)
	}
	defer rows.Close()
	for rows.Next() {
		employee, err := employeeScan(rows.Scan)
		if err != nil {
			return nil, data.NewUnexpectedError(err)
		}
		employees = append(employees, employee)
		index[employee.ID] = employee
	}
	if err := rows.Err(); err != nil {
		return nil, data.NewUnexpectedError(err)
	}
	if len(employees) == 0 {
		return employees, nil
	}
	query = fmt.Sprintf(`SELECT t.employee_id, t.tag FROM %s t JOIN %s e ON e.id = t.employee_id
		%s ORDER BY t.employee_id, t.tag_order`, tableEmployeeTags, tableEmployees, criteria)
	if err := s.tagsRead(ctx, s.dialect.rebind(query), args, index); err != nil {
		return nil, data.NewUnexpectedError(err)
	}
	return employees, nil
}

func (s *sqlStore) EmployeeUpdate(ctx context.Context, id string, employeePartial data.EmployeePartial) (*data.Employee, error) {
	var args []any
	var updates []string

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	if employeePartial.Name != nil {
		args = append(args, *employeePartial.Name)
		updates = append(updates, "name = ?")
	}
	if employeePartial.Email != nil {
		args = append(args, *employeePartial.Email)
		updates = append(updates, "email = ?")
	}
	if employeePartial.Role != nil {
		args = append(args, *employeePartial.Role)
		updates = append(updates, "role = ?")
	}
	if employeePartial.AssessmentSubmitted != nil {
		args = append(args, *employeePartial.AssessmentSubmitted)
		updates = append(updates, "assessment_submitted = ?")
	}
	if employeePartial.AssessmentAnswers != nil {
		answers, err := answersValue(*employeePartial.AssessmentAnswers)
		if err != nil {
			return nil, data.NewUnexpectedError(err)
		}
		args = append(args, answers)
		updates = append(updates, "assessment_answers = ?")
	}
	if employeePartial.SubmissionDate != nil {
		args = append(args, dateValue(employeePartial.SubmissionDate))
		updates = append(updates, "submission_date = ?")
	}
	if employeePartial.InterestArea != nil {
		args = append(args, *employeePartial.InterestArea)
		updates = append(updates, "interest_area = ?")
	}
	if employeePartial.LongTermGoals != nil {
		args = append(args, *employeePartial.LongTermGoals)
		updates = append(updates, "long_term_goals = ?")
	}
	if employeePartial.WorkCulturePreference != nil {
		args = append(args, *employeePartial.WorkCulturePreference)
		updates = append(updates, "work_culture_preference = ?")
	}
	if employeePartial.LearningAttitude != nil {
		args = append(args, *employeePartial.LearningAttitude)
		updates = append(updates, "learning_attitude = ?")
	}
	if employeePartial.LearningScore != nil {
		args = append(args, *employeePartial.LearningScore)
		updates = append(updates, "learning_score = ?")
	}
	var email string
	if employeePartial.Email != nil {
		email = *employeePartial.Email
	}
	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		var seq int64

		query := fmt.Sprintf("SELECT seq FROM %s WHERE id = ?", tableEmployees)
		if err := tx.QueryRowContext(ctx, s.dialect.rebind(query), id).Scan(&seq); err != nil {
			return err
		}
		if employeePartial.Email != nil {
			if err := s.emailTaken(ctx, tx, email, id); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", tableEmployees,
				strings.Join(updates, ", "))
			if _, err := tx.ExecContext(ctx, s.dialect.rebind(query), append(args, id)...); err != nil {
				return err
			}
		}
		if employeePartial.Tags != nil {
			return s.tagsWrite(ctx, tx, id, *employeePartial.Tags)
		}
		return nil
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.NewNotFoundError(id)
		}
		return nil, s.storeError(err, email)
	}
	s.Trace(ctx, "updated employee: %s", id)
	return s.employeeRead(ctx, id)
}

func (s *sqlStore) EmployeeDelete(ctx context.Context, id string) error {
	var n int64

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", tableEmployees)
		result, err := tx.ExecContext(ctx, s.dialect.rebind(query), id)
		if err != nil {
			return err
		}
		if n, err = result.RowsAffected(); err != nil {
			return err
		}
		query = fmt.Sprintf("DELETE FROM %s WHERE employee_id = ?", tableEmployeeTags)
		_, err = tx.ExecContext(ctx, s.dialect.rebind(query), id)
		return err
	}); err != nil {
		return data.NewUnexpectedError(err)
	}
	if n == 0 {
		return data.NewNotFoundError(id)
	}
	s.Trace(ctx, "deleted employee: %s", id)
	return nil
}

func answersValue(answers map[string]string) (sql.NullString, error) {
	if answers == nil {
		return sql.NullString{}, nil
	}
	bytes, err := json.Marshal(answers)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(bytes), Valid: true}, nil
}

func dateValue(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: query.Instant(t), Valid: true}
}

func scoreValue(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
