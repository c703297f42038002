// Package query holds the employee filter/search/sort contract. It's pure:
// stores, caches and the client projection all derive their results from the
// same rules, so an in-memory list and a sql list agree on membership and order.
package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
)

const (
	FieldID                    string = "id"
	FieldName                  string = "name"
	FieldEmail                 string = "email"
	FieldRole                  string = "role"
	FieldAssessmentSubmitted   string = "assessment_submitted"
	FieldSubmissionDate        string = "submission_date"
	FieldInterestArea          string = "interest_area"
	FieldLongTermGoals         string = "long_term_goals"
	FieldWorkCulturePreference string = "work_culture_preference"
	FieldLearningAttitude      string = "learning_attitude"
	FieldLearningScore         string = "learning_score"
)

// comparators compare two employees on a single field in ascending order.
var comparators = map[string]func(a, b *data.Employee) int{
	FieldID:    func(a, b *data.Employee) int { return strings.Compare(a.ID, b.ID) },
	FieldName:  func(a, b *data.Employee) int { return strings.Compare(a.Name, b.Name) },
	FieldEmail: func(a, b *data.Employee) int { return strings.Compare(a.Email, b.Email) },
	FieldRole:  func(a, b *data.Employee) int { return strings.Compare(a.Role, b.Role) },
	FieldAssessmentSubmitted: func(a, b *data.Employee) int {
		return cmp.Compare(boolToInt(a.AssessmentSubmitted), boolToInt(b.AssessmentSubmitted))
	},
	FieldSubmissionDate: func(a, b *data.Employee) int {
		return cmp.Compare(Instant(a.SubmissionDate), Instant(b.SubmissionDate))
	},
	FieldInterestArea: func(a, b *data.Employee) int {
		return strings.Compare(a.InterestArea, b.InterestArea)
	},
	FieldLongTermGoals: func(a, b *data.Employee) int {
		return strings.Compare(a.LongTermGoals, b.LongTermGoals)
	},
	FieldWorkCulturePreference: func(a, b *data.Employee) int {
		return strings.Compare(a.WorkCulturePreference, b.WorkCulturePreference)
	},
	FieldLearningAttitude: func(a, b *data.Employee) int {
		return strings.Compare(a.LearningAttitude, b.LearningAttitude)
	},
	FieldLearningScore: func(a, b *data.Employee) int {
		switch {
		case a.LearningScore == nil && b.LearningScore == nil:
			return 0
		case a.LearningScore == nil:
			return -1
		case b.LearningScore == nil:
			return 1
		}
		return cmp.Compare(*a.LearningScore, *b.LearningScore)
	},
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Instant normalizes an optional date to unix milliseconds; a missing date
// is the epoch.
func Instant(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

// IsSortable reports whether field can be used as a sort key.
func IsSortable(field string) bool {
	_, ok := comparators[field]
	return ok
}

// Match reports whether the employee satisfies every filter and the search
// predicate of the given search.
func Match(employee *data.Employee, search data.EmployeeSearch) bool {
	if search.AssessmentSubmitted != nil && employee.AssessmentSubmitted != *search.AssessmentSubmitted {
		return false
	}
	if search.Role != "" && employee.Role != search.Role {
		return false
	}
	if search.Tag != "" && !slices.Contains(employee.Tags, search.Tag) {
		return false
	}
	if search.InterestArea != "" && employee.InterestArea != search.InterestArea {
		return false
	}
	if search.LongTermGoals != "" && employee.LongTermGoals != search.LongTermGoals {
		return false
	}
	if search.WorkCulturePreference != "" && employee.WorkCulturePreference != search.WorkCulturePreference {
		return false
	}
	if search.LearningAttitude != "" && employee.LearningAttitude != search.LearningAttitude {
		return false
	}
	if search.Search != "" && !matchText(employee, search.Search) {
		return false
	}
	return true
}

func matchText(employee *data.Employee, text string) bool {
	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(employee.Name), needle) ||
		strings.Contains(strings.ToLower(employee.Email), needle) {
		return true
	}
	for _, tag := range employee.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Sort orders employees in place by sortBy. Equal keys keep their relative
// (natural) order in both directions; an empty or unknown field leaves the
// slice untouched.
func Sort(employees []*data.Employee, sortBy string, descending bool) {
	compare, ok := comparators[sortBy]
	if !ok {
		return
	}
	slices.SortStableFunc(employees, func(a, b *data.Employee) int {
		if descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

// Apply filters employees (given in natural order) and sorts the matches. The
// input slice isn't modified; records are shared, not copied.
func Apply(employees []*data.Employee, search data.EmployeeSearch) []*data.Employee {
	matches := make([]*data.Employee, 0, len(employees))
	for _, employee := range employees {
		if Match(employee, search) {
			matches = append(matches, employee)
		}
	}
	Sort(matches, search.SortBy, search.Descending())
	return matches
}

// SortFields lists the fields that can be used as a sort key.
func SortFields() []string {
	fields := make([]string, 0, len(comparators))
	for field := range comparators {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}
