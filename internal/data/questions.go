package data

type Question struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Questions are the assessment questions the dashboard knows about, in the
// order they're presented and exported.
var Questions = []Question{
	{ID: "q1", Label: "What interests you most about your current role?", Category: "Interest"},
	{ID: "q2", Label: "Describe your ideal work environment", Category: "Work Culture"},
	{ID: "q3", Label: "What motivates you to perform your best?", Category: "Motivation"},
	{ID: "q4", Label: "How do you handle challenging situations?", Category: "Problem Solving"},
	{ID: "q5", Label: "What are your key strengths?", Category: "Strengths"},
	{ID: "q14", Label: "Where do you see yourself in 5 years?", Category: "Career Goals"},
	{ID: "q16", Label: "How do you approach learning new skills?", Category: "Learning"},
	{ID: "q17", Label: "What learning resources do you prefer?", Category: "Learning"},
	{ID: "q19", Label: "What work culture do you thrive in?", Category: "Culture"},
	{ID: "q20", Label: "What are your long-term career aspirations?", Category: "Goals"},
}
