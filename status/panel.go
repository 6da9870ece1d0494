package status

import (
	"slices"
	"strings"
)

// View is one of the two switchable status displays
type View string

const (
	ViewActions  View = "actions"
	ViewTimeline View = "timeline"
)

// ParseView falls back to the action log for unknown values
func ParseView(s string) View {
	if View(strings.ToLower(strings.TrimSpace(s))) == ViewTimeline {
		return ViewTimeline
	}
	return ViewActions
}

// Empty-state texts
const (
	NoActionsMessage   = "It looks like there haven't been any actions in this session."
	NoActionsHint      = "Send a chat message to get started."
	NoProjectMessage   = "Select a project to view its tasks."
	NoTasksMessage     = "It looks like there aren't any tasks for this project."
	ProjectPlaceholder = ""
)

// TaskItem is a timeline row: a collapsible panel titled with the task name
// on the left and its date range on the right.
type TaskItem struct {
	Title       string `json:"title"`
	Period      string `json:"period"`
	Description string `json:"description"`
}

// Selector describes a single-choice dropdown
type Selector struct {
	Name     string   `json:"name"`
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
}

// Panel is everything the status window renders for one request
type Panel struct {
	View     View       `json:"view"`
	Actions  []string   `json:"actions"`
	Project  Selector   `json:"project"`
	Order    Selector   `json:"order"`
	Tasks    []TaskItem `json:"tasks"`
	Empty    []string   `json:"empty,omitempty"`
	Snapshot Snapshot   `json:"-"`
}

// BuildPanel derives the status window for the requested view, project and
// sort order. Both views are always populated so switching views needs no
// new snapshot; Empty carries the message for the active view.
func BuildPanel(s Snapshot, view View, project string, order SortOrder) Panel {
	if s.Projects == nil {
		s.Projects = []string{}
	}

	if !slices.Contains(s.Projects, project) {
		project = ProjectPlaceholder
	}

	orders := make([]string, len(SortOrders))
	for i, o := range SortOrders {
		orders[i] = string(o)
	}

	p := Panel{
		View:     view,
		Actions:  make([]string, 0, len(s.Actions)),
		Project:  Selector{Name: "project", Options: s.Projects, Selected: project},
		Order:    Selector{Name: "order", Options: orders, Selected: string(order)},
		Tasks:    []TaskItem{},
		Snapshot: s,
	}

	for _, a := range s.Actions {
		p.Actions = append(p.Actions, a.Name)
	}

	for _, t := range SortTasks(TasksForProject(s.Timeline, project), order) {
		p.Tasks = append(p.Tasks, TaskItem{
			Title:       t.TaskName,
			Period:      t.Period(),
			Description: t.Description(),
		})
	}

	switch {
	case view == ViewActions && len(p.Actions) == 0:
		p.Empty = []string{NoActionsMessage, NoActionsHint}
	case view == ViewTimeline && project == ProjectPlaceholder:
		p.Empty = []string{NoProjectMessage}
	case view == ViewTimeline && len(p.Tasks) == 0:
		p.Empty = []string{NoTasksMessage}
	}

	return p
}
