// Package export writes employees as the dashboard's CSV download and reads
// such files back.
package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"

	"github.com/pkg/errors"
)

const (
	ColumnID                    string = "ID"
	ColumnName                  string = "Name"
	ColumnEmail                 string = "Email"
	ColumnRole                  string = "Role"
	ColumnAssessmentSubmitted   string = "Assessment Submitted"
	ColumnSubmissionDate        string = "Submission Date"
	ColumnInterestArea          string = "Interest Area"
	ColumnLongTermGoals         string = "Long-Term Goals"
	ColumnWorkCulturePreference string = "Work Culture Preference"
	ColumnLearningAttitude      string = "Learning Attitude"
	ColumnLearningScore         string = "Learning Score"
	ColumnTags                  string = "Tags"

	NotAvailable string = "N/A"
	TagSeparator string = ", "
	DateFormat   string = time.DateOnly
	FileName     string = "employee_data.csv"
	ContentType  string = "text/csv; charset=utf-8"
)

const (
	submittedYes  string = "Yes"
	submittedNo   string = "No"
	questionShort string = "Q"
)

// Columns returns the header row: the fixed columns, one column per known
// question and the tags last.
func Columns() []string {
	columns := []string{
		ColumnID,
		ColumnName,
		ColumnEmail,
		ColumnRole,
		ColumnAssessmentSubmitted,
		ColumnSubmissionDate,
		ColumnInterestArea,
		ColumnLongTermGoals,
		ColumnWorkCulturePreference,
		ColumnLearningAttitude,
		ColumnLearningScore,
	}
	for _, question := range data.Questions {
		columns = append(columns, questionColumn(question.ID))
	}
	return append(columns, ColumnTags)
}

// questionColumn turns q14 into Q14.
func questionColumn(questionId string) string {
	return questionShort + strings.TrimPrefix(questionId, "q")
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func row(employee *data.Employee) []string {
	submitted, submissionDate, learningScore := submittedNo, NotAvailable, NotAvailable
	if employee.AssessmentSubmitted {
		submitted = submittedYes
	}
	if employee.SubmissionDate != nil {
		submissionDate = employee.SubmissionDate.UTC().Format(DateFormat)
	}
	if employee.LearningScore != nil {
		learningScore = strconv.Itoa(*employee.LearningScore)
	}
	fields := []string{
		employee.ID,
		employee.Name,
		employee.Email,
		employee.Role,
		submitted,
		submissionDate,
		orNotAvailable(employee.InterestArea),
		orNotAvailable(employee.LongTermGoals),
		orNotAvailable(employee.WorkCulturePreference),
		orNotAvailable(employee.LearningAttitude),
		learningScore,
	}
	for _, question := range data.Questions {
		fields = append(fields, employee.AssessmentAnswers[question.ID])
	}
	return append(fields, strings.Join(employee.Tags, TagSeparator))
}

// Write writes the header and one row per employee; every row field is
// quoted with embedded quotes doubled.
func Write(writer io.Writer, employees ...*data.Employee) error {
	w := bufio.NewWriter(writer)
	if _, err := w.WriteString(strings.Join(Columns(), ",") + "\n"); err != nil {
		return err
	}
	for _, employee := range employees {
		fields := row(employee)
		for i := range fields {
			fields[i] = quote(fields[i])
		}
		if _, err := w.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func optional(s string) string {
	if s == NotAvailable {
		return ""
	}
	return s
}

// Read parses a file produced by Write. Columns are located by header so
// files with fewer question columns still parse; N/A reads as unset.
func Read(reader io.Reader) ([]*data.Employee, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read header")
	}
	index := make(map[string]int, len(header))
	for i, column := range header {
		index[strings.TrimSpace(column)] = i
	}
	for _, column := range []string{ColumnName, ColumnEmail, ColumnRole} {
		if _, ok := index[column]; !ok {
			return nil, errors.Errorf("missing column: %s", column)
		}
	}
	employees := []*data.Employee{}
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read line %d", line)
		}
		field := func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		employee := &data.Employee{
			ID:                    field(ColumnID),
			Name:                  field(ColumnName),
			Email:                 field(ColumnEmail),
			Role:                  field(ColumnRole),
			AssessmentSubmitted:   field(ColumnAssessmentSubmitted) == submittedYes,
			InterestArea:          optional(field(ColumnInterestArea)),
			LongTermGoals:         optional(field(ColumnLongTermGoals)),
			WorkCulturePreference: optional(field(ColumnWorkCulturePreference)),
			LearningAttitude:      optional(field(ColumnLearningAttitude)),
			Tags:                  []string{},
		}
		if s := optional(field(ColumnSubmissionDate)); s != "" {
			submissionDate, err := time.Parse(DateFormat, s)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid submission date on line %d", line)
			}
			employee.SubmissionDate = &submissionDate
		}
		if s := optional(field(ColumnLearningScore)); s != "" {
			learningScore, err := strconv.Atoi(s)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid learning score on line %d", line)
			}
			employee.LearningScore = &learningScore
		}
		for _, question := range data.Questions {
			if answer := field(questionColumn(question.ID)); answer != "" {
				if employee.AssessmentAnswers == nil {
					employee.AssessmentAnswers = make(map[string]string)
				}
				employee.AssessmentAnswers[question.ID] = answer
			}
		}
		if tags := field(ColumnTags); tags != "" {
			employee.Tags = strings.Split(tags, TagSeparator)
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

// ToPartial turns an imported row into a create draft.
func ToPartial(employee *data.Employee) data.EmployeePartial {
	partial := data.EmployeePartial{
		Name:                &employee.Name,
		Email:               &employee.Email,
		Role:                &employee.Role,
		AssessmentSubmitted: &employee.AssessmentSubmitted,
		Tags:                &employee.Tags,
		SubmissionDate:      employee.SubmissionDate,
		LearningScore:       employee.LearningScore,
	}
	if employee.AssessmentAnswers != nil {
		partial.AssessmentAnswers = &employee.AssessmentAnswers
	}
	for _, p := range []struct {
		value string
		field **string
	}{
		{employee.InterestArea, &partial.InterestArea},
		{employee.LongTermGoals, &partial.LongTermGoals},
		{employee.WorkCulturePreference, &partial.WorkCulturePreference},
		{employee.LearningAttitude, &partial.LearningAttitude},
	} {
		if p.value != "" {
			value := p.value
			*p.field = &value
		}
	}
	return partial
}
