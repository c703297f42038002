package store

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
	"github.com/antonio-alexander/go-employee-dashboard/internal/query"
)

const likeEscape = "!"

// sortColumns maps every sortable field onto its ascending ORDER BY
// expression(s); the direction is appended to each one.
var sortColumns = map[string][]string{
	query.FieldID:                    {"e.id"},
	query.FieldName:                  {"e.name"},
	query.FieldEmail:                 {"e.email"},
	query.FieldRole:                  {"e.role"},
	query.FieldAssessmentSubmitted:   {"e.assessment_submitted"},
	query.FieldSubmissionDate:        {"COALESCE(e.submission_date, 0)"},
	query.FieldInterestArea:          {"e.interest_area"},
	query.FieldLongTermGoals:         {"e.long_term_goals"},
	query.FieldWorkCulturePreference: {"e.work_culture_preference"},
	query.FieldLearningAttitude:      {"e.learning_attitude"},
	query.FieldLearningScore: {
		"CASE WHEN e.learning_score IS NULL THEN 0 ELSE 1 END",
		"e.learning_score",
	},
}

// likePattern lowercases text and escapes LIKE wildcards so the pattern is a
// plain substring match.
func likePattern(text string) string {
	replacer := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return "%" + replacer.Replace(strings.ToLower(text)) + "%"
}

func employeeCriteria(search data.EmployeeSearch) (string, []any) {
	var args []any
	var criteria []string

	if search.AssessmentSubmitted != nil {
		args = append(args, *search.AssessmentSubmitted)
		criteria = append(criteria, "e.assessment_submitted = ?")
	}
	for _, filter := range []struct{ column, value string }{
		{"e.role", search.Role},
		{"e.interest_area", search.InterestArea},
		{"e.long_term_goals", search.LongTermGoals},
		{"e.work_culture_preference", search.WorkCulturePreference},
		{"e.learning_attitude", search.LearningAttitude},
	} {
		if filter.value == "" {
			continue
		}
		args = append(args, filter.value)
		criteria = append(criteria, filter.column+" = ?")
	}
	if search.Tag != "" {
		args = append(args, search.Tag)
		criteria = append(criteria, "EXISTS (SELECT 1 FROM "+tableEmployeeTags+
			" et WHERE et.employee_id = e.id AND et.tag = ?)")
	}
	if search.Search != "" {
		pattern := likePattern(search.Search)
		args = append(args, pattern, pattern, pattern)
		criteria = append(criteria, "(LOWER(e.name) LIKE ? ESCAPE '"+likeEscape+"'"+
			" OR LOWER(e.email) LIKE ? ESCAPE '"+likeEscape+"'"+
			" OR EXISTS (SELECT 1 FROM "+tableEmployeeTags+" et WHERE et.employee_id = e.id"+
			" AND LOWER(et.tag) LIKE ? ESCAPE '"+likeEscape+"'))")
	}
	if len(criteria) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(criteria, " AND "), args
}

// employeeOrder sorts by the requested field, breaking ties by insertion
// order in both directions; no (or an unknown) field is insertion order.
func employeeOrder(search data.EmployeeSearch) string {
	var order []string

	direction := " ASC"
	if search.Descending() {
		direction = " DESC"
	}
	for _, column := range sortColumns[search.SortBy] {
		order = append(order, column+direction)
	}
	return strings.Join(append(order, "e.seq ASC"), ", ")
}

func employeeScan(scanFx func(...any) error) (*data.Employee, error) {
	var answers sql.NullString
	var submissionDate, learningScore sql.NullInt64

	employee := &data.Employee{Tags: []string{}}
	if err := scanFx(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.Role,
		&employee.AssessmentSubmitted,
		&answers,
		&submissionDate,
		&employee.InterestArea,
		&employee.LongTermGoals,
		&employee.WorkCulturePreference,
		&employee.LearningAttitude,
		&learningScore,
	); err != nil {
		return nil, err
	}
	if answers.Valid && answers.String != "" {
		if err := json.Unmarshal([]byte(answers.String), &employee.AssessmentAnswers); err != nil {
			return nil, err
		}
	}
	if submissionDate.Valid {
		t := time.UnixMilli(submissionDate.Int64).UTC()
		employee.SubmissionDate = &t
	}
	if learningScore.Valid {
		i := int(learningScore.Int64)
		employee.LearningScore = &i
	}
	return employee, nil
}
