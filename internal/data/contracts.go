package data

const (
	RouteEmployees       string = "/employees"
	RouteEmployeesStats  string = RouteEmployees + "/stats"
	RouteEmployeesExport string = RouteEmployees + "/export"
	RouteEmployeesID     string = RouteEmployees + "/{" + PathID + "}"
	RouteEmployeesIDf    string = RouteEmployees + "/%s"
	RouteQuestions       string = "/questions"
	RouteCache           string = "/cache"
	RouteCacheCounters   string = RouteCache + "/counters"
	RouteTimers          string = "/timers"
)

const PathID string = "id"

const (
	ParameterAssessmentSubmitted   string = "assessment_submitted"
	ParameterStatus                string = "status"
	ParameterRole                  string = "role"
	ParameterTag                   string = "tag"
	ParameterInterestArea          string = "interest_area"
	ParameterLongTermGoals         string = "long_term_goals"
	ParameterWorkCulturePreference string = "work_culture_preference"
	ParameterLearningAttitude      string = "learning_attitude"
	ParameterSearch                string = "search"
	ParameterSortBy                string = "sortBy"
	ParameterSortByAlias           string = "sort_by"
	ParameterOrder                 string = "order"
	ParameterOrderAlias            string = "sort_order"
)

const HeaderCorrelationId string = "Correlation-Id"

type Message struct {
	Message string `json:"message"`
}

type EmployeeStats struct {
	Total                    int            `json:"total"`
	Submitted                int            `json:"submitted"`
	Pending                  int            `json:"pending"`
	CompletionRate           int            `json:"completion_rate"`
	RoleDistribution         map[string]int `json:"role_distribution"`
	LearningAttitudes        map[string]int `json:"learning_attitudes"`
	AverageLearningScore     float64        `json:"average_learning_score"`
	LearningScoreSampleCount int            `json:"learning_score_sample_count"`
}

type Timers struct {
	Totals   map[string]int64 `json:"totals,omitempty"`
	Averages map[string]int64 `json:"averages,omitempty"`
}
