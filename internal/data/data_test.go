package data_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringPtr(s string) *string {
	return &s
}

func TestEmployeeSearchParams(t *testing.T) {
	t.Run("aliases", func(t *testing.T) {
		var search data.EmployeeSearch

		search.FromParams(url.Values{
			"status":     {"not_submitted"},
			"sort_by":    {"name"},
			"sort_order": {"desc"},
			"role":       {"Designer"},
		})
		require.NotNil(t, search.AssessmentSubmitted)
		assert.False(t, *search.AssessmentSubmitted)
		assert.Equal(t, "name", search.SortBy)
		assert.True(t, search.Descending())
		assert.Equal(t, "Designer", search.Role)
	})
	t.Run("round trip", func(t *testing.T) {
		var searchRead data.EmployeeSearch

		submitted := true
		search := data.EmployeeSearch{
			AssessmentSubmitted: &submitted,
			Role:                "HR Manager",
			Tag:                 "Leader",
			InterestArea:        "AI Enthusiast",
			Search:              "sam",
			SortBy:              "submission_date",
			Order:               "desc",
		}
		searchRead.FromParams(search.ToParams())
		assert.Equal(t, search, searchRead)
	})
	t.Run("order defaults to ascending", func(t *testing.T) {
		search := data.EmployeeSearch{SortBy: "name", Order: "sideways"}
		assert.False(t, search.Descending())
	})
}

func TestEmployeeSearchKey(t *testing.T) {
	a := data.EmployeeSearch{SortBy: "name"}
	b := data.EmployeeSearch{SortBy: "name", Order: "asc"}
	c := data.EmployeeSearch{SortBy: "name", Order: "desc"}
	d := data.EmployeeSearch{Order: "desc"}
	e := data.EmployeeSearch{}

	keyA, err := a.ToKey()
	require.NoError(t, err)
	keyB, _ := b.ToKey()
	keyC, _ := c.ToKey()
	keyD, _ := d.ToKey()
	keyE, _ := e.ToKey()
	assert.Equal(t, keyA, keyB)
	assert.NotEqual(t, keyA, keyC)
	assert.Equal(t, keyD, keyE)
}

func TestEmployeeMergeReplacesWholesale(t *testing.T) {
	employee := &data.Employee{
		Name:              "Sameer Ahmed",
		Tags:              []string{"a", "b"},
		AssessmentAnswers: map[string]string{"q1": "one", "q2": "two"},
	}
	tags := []string{"x"}
	answers := map[string]string{"q3": "three"}
	employee.Merge(data.EmployeePartial{Tags: &tags, AssessmentAnswers: &answers})
	assert.Equal(t, []string{"x"}, employee.Tags)
	assert.Equal(t, map[string]string{"q3": "three"}, employee.AssessmentAnswers)
	assert.Equal(t, "Sameer Ahmed", employee.Name)

	//the partial's slices aren't shared with the record
	tags[0] = "y"
	assert.Equal(t, []string{"x"}, employee.Tags)
}

func TestEmployeeCopy(t *testing.T) {
	score := 10
	employee := &data.Employee{
		Tags:              []string{"a"},
		AssessmentAnswers: map[string]string{"q1": "one"},
		LearningScore:     &score,
	}
	employeeCopy := employee.Copy()
	employeeCopy.Tags[0] = "b"
	employeeCopy.AssessmentAnswers["q1"] = "two"
	*employeeCopy.LearningScore = 20
	assert.Equal(t, "a", employee.Tags[0])
	assert.Equal(t, "one", employee.AssessmentAnswers["q1"])
	assert.Equal(t, 10, *employee.LearningScore)
}

func TestEmployeePartialValidate(t *testing.T) {
	duplicateTags := []string{"a", "a"}
	cases := map[string]struct {
		partial data.EmployeePartial
		create  bool
		valid   bool
	}{
		"complete draft": {
			partial: data.EmployeePartial{Name: stringPtr("a"), Email: stringPtr("b"), Role: stringPtr("c")},
			create:  true,
			valid:   true,
		},
		"missing email": {
			partial: data.EmployeePartial{Name: stringPtr("a"), Role: stringPtr("c")},
			create:  true,
		},
		"blank name": {
			partial: data.EmployeePartial{Name: stringPtr("  "), Email: stringPtr("b"), Role: stringPtr("c")},
			create:  true,
		},
		"duplicate tags": {
			partial: data.EmployeePartial{Name: stringPtr("a"), Email: stringPtr("b"),
				Role: stringPtr("c"), Tags: &duplicateTags},
			create: true,
		},
		"empty patch": {
			valid: true,
		},
		"patch blanking role": {
			partial: data.EmployeePartial{Role: stringPtr("")},
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			var err error

			if c.create {
				err = c.partial.ValidateCreate()
			} else {
				err = c.partial.ValidateUpdate()
			}
			if c.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, data.ErrValidation)
		})
	}
}

func TestErrors(t *testing.T) {
	validation := data.NewValidationError("email already exists: %s", "a@b.c")
	notFound := data.NewNotFoundError("1234")
	unexpected := data.NewUnexpectedError(errors.New("connection refused"))

	assert.ErrorIs(t, validation, data.ErrValidation)
	assert.NotErrorIs(t, validation, data.ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", notFound), data.ErrNotFound)
	assert.ErrorIs(t, unexpected, data.ErrUnexpected)
	assert.Equal(t, http.StatusBadRequest, data.StatusCode(validation))
	assert.Equal(t, http.StatusNotFound, data.StatusCode(notFound))
	assert.Equal(t, http.StatusInternalServerError, data.StatusCode(unexpected))
	assert.Equal(t, http.StatusInternalServerError, data.StatusCode(errors.New("boom")))
	assert.Equal(t, "employee not found: 1234", notFound.Error())
	assert.Equal(t, validation, data.NewUnexpectedError(validation))
	assert.ErrorIs(t, data.ErrorFromStatus(http.StatusNotFound, "gone"), data.ErrNotFound)
}
