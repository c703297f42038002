package data

import (
	"encoding/json"
	"strings"
	"time"
)

type EmployeePartial struct {
	Name                  *string            `json:"name,omitempty" yaml:"name,omitempty"`
	Email                 *string            `json:"email,omitempty" yaml:"email,omitempty"`
	Role                  *string            `json:"role,omitempty" yaml:"role,omitempty"`
	AssessmentSubmitted   *bool              `json:"assessment_submitted,omitempty" yaml:"assessment_submitted,omitempty"`
	AssessmentAnswers     *map[string]string `json:"assessment_answers,omitempty" yaml:"assessment_answers,omitempty"`
	Tags                  *[]string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	SubmissionDate        *time.Time         `json:"submission_date,omitempty" yaml:"submission_date,omitempty"`
	InterestArea          *string            `json:"interest_area,omitempty" yaml:"interest_area,omitempty"`
	LongTermGoals         *string            `json:"long_term_goals,omitempty" yaml:"long_term_goals,omitempty"`
	WorkCulturePreference *string            `json:"work_culture_preference,omitempty" yaml:"work_culture_preference,omitempty"`
	LearningAttitude      *string            `json:"learning_attitude,omitempty" yaml:"learning_attitude,omitempty"`
	LearningScore         *int               `json:"learning_score,omitempty" yaml:"learning_score,omitempty"`
}

func (e *EmployeePartial) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *EmployeePartial) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// ValidateCreate checks a draft before it's handed to a store.
func (e *EmployeePartial) ValidateCreate() error {
	var missing []string

	if e.Name == nil || strings.TrimSpace(*e.Name) == "" {
		missing = append(missing, "name")
	}
	if e.Email == nil || strings.TrimSpace(*e.Email) == "" {
		missing = append(missing, "email")
	}
	if e.Role == nil || strings.TrimSpace(*e.Role) == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return NewValidationError("missing required fields: %s", strings.Join(missing, ", "))
	}
	return e.validateTags()
}

// ValidateUpdate checks a patch; fields that aren't provided are ignored but
// required fields can't be blanked.
func (e *EmployeePartial) ValidateUpdate() error {
	if e.Name != nil && strings.TrimSpace(*e.Name) == "" {
		return NewValidationError("name cannot be empty")
	}
	if e.Email != nil && strings.TrimSpace(*e.Email) == "" {
		return NewValidationError("email cannot be empty")
	}
	if e.Role != nil && strings.TrimSpace(*e.Role) == "" {
		return NewValidationError("role cannot be empty")
	}
	return e.validateTags()
}

func (e *EmployeePartial) validateTags() error {
	if e.Tags == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(*e.Tags))
	for _, tag := range *e.Tags {
		if _, ok := seen[tag]; ok {
			return NewValidationError("duplicate tag: %q", tag)
		}
		seen[tag] = struct{}{}
	}
	return nil
}

// ToEmployee builds a record from a validated draft; the id is left to the
// store.
func (e *EmployeePartial) ToEmployee() *Employee {
	employee := &Employee{Tags: []string{}}
	employee.Merge(*e)
	return employee
}
