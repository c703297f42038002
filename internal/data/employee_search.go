package data

import (
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	OrderAsc  string = "asc"
	OrderDesc string = "desc"

	StatusSubmitted    string = "submitted"
	StatusNotSubmitted string = "not_submitted"
)

type EmployeeSearch struct {
	AssessmentSubmitted   *bool  `json:"assessment_submitted,omitempty"`
	Role                  string `json:"role,omitempty"`
	Tag                   string `json:"tag,omitempty"`
	InterestArea          string `json:"interest_area,omitempty"`
	LongTermGoals         string `json:"long_term_goals,omitempty"`
	WorkCulturePreference string `json:"work_culture_preference,omitempty"`
	LearningAttitude      string `json:"learning_attitude,omitempty"`
	Search                string `json:"search,omitempty"`
	SortBy                string `json:"sort_by,omitempty"`
	Order                 string `json:"order,omitempty"`
}

// Descending reports whether the search asks for a descending sort; any
// order other than "desc" is ascending.
func (e *EmployeeSearch) Descending() bool {
	return e.Order == OrderDesc
}

func (e *EmployeeSearch) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *EmployeeSearch) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// ToKey returns a deterministic cache key; searches that produce the same
// result set and order map to the same key.
func (e *EmployeeSearch) ToKey() (string, error) {
	search := *e
	switch {
	case search.SortBy == "":
		search.Order = ""
	case search.Order != OrderDesc:
		search.Order = OrderAsc
	}
	bytes, err := json.Marshal(&search)
	if err != nil {
		return "", err
	}
	return "search:" + string(bytes), nil
}

func (e *EmployeeSearch) ToParams() url.Values {
	params := make(url.Values)
	if e.AssessmentSubmitted != nil {
		params.Set(ParameterAssessmentSubmitted, strconv.FormatBool(*e.AssessmentSubmitted))
	}
	for key, value := range map[string]string{
		ParameterRole:                  e.Role,
		ParameterTag:                   e.Tag,
		ParameterInterestArea:          e.InterestArea,
		ParameterLongTermGoals:         e.LongTermGoals,
		ParameterWorkCulturePreference: e.WorkCulturePreference,
		ParameterLearningAttitude:      e.LearningAttitude,
		ParameterSearch:                e.Search,
		ParameterSortBy:                e.SortBy,
		ParameterOrder:                 e.Order,
	} {
		if value != "" {
			params.Set(key, value)
		}
	}
	return params
}

func (e *EmployeeSearch) FromParams(params url.Values) {
	//KIM: keys are walked in sorted order so status always wins over
	// assessment_submitted when both are provided
	for _, key := range slices.Sorted(maps.Keys(params)) {
		values := params[key]
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch strings.ToLower(key) {
		case ParameterAssessmentSubmitted:
			if value == "" {
				continue
			}
			submitted := value == "true"
			e.AssessmentSubmitted = &submitted
		case ParameterStatus:
			switch value {
			case StatusSubmitted:
				submitted := true
				e.AssessmentSubmitted = &submitted
			case StatusNotSubmitted:
				submitted := false
				e.AssessmentSubmitted = &submitted
			}
		case ParameterRole:
			e.Role = value
		case ParameterTag:
			e.Tag = value
		case ParameterInterestArea:
			e.InterestArea = value
		case ParameterLongTermGoals:
			e.LongTermGoals = value
		case ParameterWorkCulturePreference:
			e.WorkCulturePreference = value
		case ParameterLearningAttitude:
			e.LearningAttitude = value
		case ParameterSearch:
			e.Search = value
		case strings.ToLower(ParameterSortBy), ParameterSortByAlias:
			e.SortBy = value
		case ParameterOrder, ParameterOrderAlias:
			e.Order = value
		}
	}
}
