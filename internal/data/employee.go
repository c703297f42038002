package data

import (
	"encoding/json"
	"time"
)

type Employee struct {
	ID                    string            `json:"id" yaml:"id"`
	Name                  string            `json:"name" yaml:"name"`
	Email                 string            `json:"email" yaml:"email"`
	Role                  string            `json:"role" yaml:"role"` //open set of job titles, not an enum
	AssessmentSubmitted   bool              `json:"assessment_submitted" yaml:"assessment_submitted"`
	AssessmentAnswers     map[string]string `json:"assessment_answers,omitempty" yaml:"assessment_answers,omitempty"`
	Tags                  []string          `json:"tags" yaml:"tags"`
	SubmissionDate        *time.Time        `json:"submission_date,omitempty" yaml:"submission_date,omitempty"`
	InterestArea          string            `json:"interest_area,omitempty" yaml:"interest_area,omitempty"`
	LongTermGoals         string            `json:"long_term_goals,omitempty" yaml:"long_term_goals,omitempty"`
	WorkCulturePreference string            `json:"work_culture_preference,omitempty" yaml:"work_culture_preference,omitempty"`
	LearningAttitude      string            `json:"learning_attitude,omitempty" yaml:"learning_attitude,omitempty"`
	LearningScore         *int              `json:"learning_score,omitempty" yaml:"learning_score,omitempty"`
}

func (e *Employee) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Employee) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// Copy returns a deep copy so callers can't mutate cached or stored
// records through shared maps or slices.
func (e *Employee) Copy() *Employee {
	employee := &Employee{}
	*employee = *e
	if e.AssessmentAnswers != nil {
		employee.AssessmentAnswers = make(map[string]string, len(e.AssessmentAnswers))
		for key, value := range e.AssessmentAnswers {
			employee.AssessmentAnswers[key] = value
		}
	}
	if e.Tags != nil {
		employee.Tags = append(make([]string, 0, len(e.Tags)), e.Tags...)
	}
	if e.SubmissionDate != nil {
		submissionDate := *e.SubmissionDate
		employee.SubmissionDate = &submissionDate
	}
	if e.LearningScore != nil {
		learningScore := *e.LearningScore
		employee.LearningScore = &learningScore
	}
	return employee
}

// Merge applies the non-nil fields of the partial on top of the employee;
// maps and slices are replaced wholesale, never merged.
func (e *Employee) Merge(p EmployeePartial) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Email != nil {
		e.Email = *p.Email
	}
	if p.Role != nil {
		e.Role = *p.Role
	}
	if p.AssessmentSubmitted != nil {
		e.AssessmentSubmitted = *p.AssessmentSubmitted
	}
	if p.AssessmentAnswers != nil {
		answers := make(map[string]string, len(*p.AssessmentAnswers))
		for key, value := range *p.AssessmentAnswers {
			answers[key] = value
		}
		e.AssessmentAnswers = answers
	}
	if p.Tags != nil {
		e.Tags = append(make([]string, 0, len(*p.Tags)), (*p.Tags)...)
	}
	if p.SubmissionDate != nil {
		submissionDate := *p.SubmissionDate
		e.SubmissionDate = &submissionDate
	}
	if p.InterestArea != nil {
		e.InterestArea = *p.InterestArea
	}
	if p.LongTermGoals != nil {
		e.LongTermGoals = *p.LongTermGoals
	}
	if p.WorkCulturePreference != nil {
		e.WorkCulturePreference = *p.WorkCulturePreference
	}
	if p.LearningAttitude != nil {
		e.LearningAttitude = *p.LearningAttitude
	}
	if p.LearningScore != nil {
		learningScore := *p.LearningScore
		e.LearningScore = &learningScore
	}
}
