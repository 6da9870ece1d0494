package status

import (
	"slices"
	"strings"
)

// SortOrder selects how the timeline is ordered
type SortOrder string

const (
	SortByStartDate SortOrder = "Start Date"
	SortByEndDate   SortOrder = "End Date"
)

// DefaultSortOrder is used when no valid order is requested
const DefaultSortOrder = SortByEndDate

// SortOrders lists the choices offered by the order selector
var SortOrders = []SortOrder{SortByStartDate, SortByEndDate}

// ParseSortOrder accepts the display names and the short forms "start"/"end"
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start date", "start":
		return SortByStartDate
	case "end date", "end":
		return SortByEndDate
	default:
		return DefaultSortOrder
	}
}

// TasksForProject keeps the tasks of one project in their original order.
// An empty project means nothing is selected and yields no tasks.
func TasksForProject(tasks []Task, project string) []Task {
	out := []Task{}
	if project == "" {
		return out
	}
	for _, t := range tasks {
		if t.ProjectName == project {
			out = append(out, t)
		}
	}
	return out
}

// SortTasks returns a sorted copy of tasks. The sort is stable, so tasks that
// compare equal keep their relative order.
func SortTasks(tasks []Task, order SortOrder) []Task {
	sorted := slices.Clone(tasks)
	if sorted == nil {
		sorted = []Task{}
	}
	if order == SortByStartDate {
		slices.SortStableFunc(sorted, compareStart)
	} else {
		slices.SortStableFunc(sorted, compareEnd)
	}
	return sorted
}

func compareStart(a, b Task) int {
	return strings.Compare(a.Start, b.Start)
}

// compareEnd puts tasks with an end date first, ordered by that date
func compareEnd(a, b Task) int {
	switch {
	case a.HasEnd() && !b.HasEnd():
		return -1
	case !a.HasEnd() && b.HasEnd():
		return 1
	case !a.HasEnd() && !b.HasEnd():
		return 0
	}
	return strings.Compare(*a.End, *b.End)
}
