package status

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidSnapshot is returned for undecodable snapshots and tasks that
// violate the timeline invariants
var ErrInvalidSnapshot = errors.New("invalid status snapshot")

// Snapshot is the assistant's view of the current projects, the actions it
// has performed and the resulting task timeline.
type Snapshot struct {
	Projects []string `json:"projects"`
	Actions  []Action `json:"actions"`
	Timeline []Task   `json:"timeline"`
}

// Action is an operation the assistant performed, with free-form parameters
type Action struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Task is a timeline entry belonging to a project. Dates are kept as the
// strings the assistant produced; they are compared lexicographically.
type Task struct {
	ProjectName string  `json:"projectName"`
	TaskName    string  `json:"taskName"`
	TaskDesc    *string `json:"taskDesc"`
	Start       string  `json:"start"`
	End         *string `json:"end"`
}

// Source produces status snapshots for a thread
type Source interface {
	Fetch(ctx context.Context, threadID string) (Snapshot, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, threadID string) (Snapshot, error)

func (f SourceFunc) Fetch(ctx context.Context, threadID string) (Snapshot, error) {
	return f(ctx, threadID)
}

// Validate checks the task has its required fields and an end that does not
// precede its start.
func (t Task) Validate() error {
	switch {
	case t.ProjectName == "":
		return fmt.Errorf("%w: task %q has no project name", ErrInvalidSnapshot, t.TaskName)
	case t.TaskName == "":
		return fmt.Errorf("%w: task in %q has no name", ErrInvalidSnapshot, t.ProjectName)
	case t.Start == "":
		return fmt.Errorf("%w: task %q has no start date", ErrInvalidSnapshot, t.TaskName)
	case t.HasEnd() && *t.End < t.Start:
		return fmt.Errorf("%w: task %q ends (%s) before it starts (%s)",
			ErrInvalidSnapshot, t.TaskName, *t.End, t.Start)
	}
	return nil
}

// DropInvalidTasks removes timeline tasks that fail Validate and returns why
// each was dropped. Projects and actions are kept as they are.
func (s *Snapshot) DropInvalidTasks() []error {
	var problems []error
	kept := make([]Task, 0, len(s.Timeline))
	for _, t := range s.Timeline {
		if err := t.Validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		kept = append(kept, t)
	}
	s.Timeline = kept
	return problems
}

// Normalize replaces nil collections so the snapshot encodes as empty arrays
// and objects rather than null.
func (s *Snapshot) Normalize() {
	if s.Projects == nil {
		s.Projects = []string{}
	}
	if s.Actions == nil {
		s.Actions = []Action{}
	}
	if s.Timeline == nil {
		s.Timeline = []Task{}
	}
	for i := range s.Actions {
		if s.Actions[i].Params == nil {
			s.Actions[i].Params = map[string]any{}
		}
	}
}

// HasEnd reports whether the task carries a non-empty end date
func (t Task) HasEnd() bool {
	return t.End != nil && *t.End != ""
}

// Period renders the task's date range
func (t Task) Period() string {
	if t.HasEnd() {
		return t.Start + " to " + *t.End
	}
	return t.Start
}

// NoDescription is shown for tasks without a description
const NoDescription = "No description is provided for this task"

// Description returns the task description or the placeholder text
func (t Task) Description() string {
	if t.TaskDesc != nil && *t.TaskDesc != "" {
		return *t.TaskDesc
	}
	return NoDescription
}
