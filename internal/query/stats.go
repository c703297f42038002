package query

import (
	"math"

	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
)

// Stats summarizes a list of employees for the analytics view.
func Stats(employees []*data.Employee) *data.EmployeeStats {
	var scoreTotal int

	stats := &data.EmployeeStats{
		Total:             len(employees),
		RoleDistribution:  make(map[string]int),
		LearningAttitudes: make(map[string]int),
	}
	for _, employee := range employees {
		if employee.AssessmentSubmitted {
			stats.Submitted++
		}
		stats.RoleDistribution[employee.Role]++
		if employee.LearningAttitude != "" {
			stats.LearningAttitudes[employee.LearningAttitude]++
		}
		if employee.LearningScore != nil {
			scoreTotal += *employee.LearningScore
			stats.LearningScoreSampleCount++
		}
	}
	stats.Pending = stats.Total - stats.Submitted
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Submitted) / float64(stats.Total) * 100))
	}
	if stats.LearningScoreSampleCount > 0 {
		stats.AverageLearningScore = float64(scoreTotal) / float64(stats.LearningScoreSampleCount)
	}
	return stats
}
