package domain

import "math"

// Statistics summarises a user's task list.
type Statistics struct {
	Total          int
	Completed      int
	Pending        int
	CompletionRate int
	PendingSync    int
}

// ComputeStatistics derives counts from a task list. CompletionRate is a
// rounded percentage and 0 for an empty list.
func ComputeStatistics(tasks []Task) Statistics {
	stats := Statistics{Total: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		}
		if task.PendingSync {
			stats.PendingSync++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}
