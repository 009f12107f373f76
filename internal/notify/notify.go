// Package notify describes status and review events to an external
// delivery system.
//
// Dispatch is fire-and-forget: the core emits events after a transaction
// commits, and a dispatcher that fails must log and drop rather than
// propagate, since notification delivery is never allowed to fail a
// caller's operation.
package notify

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// EventType identifies what happened to a task.
type EventType string

const (
	// EventTaskCompleted fires when a status transition finalizes work on
	// a task.
	EventTaskCompleted EventType = "task.completed"

	// EventReviewRequested fires when a completion asks for review.
	EventReviewRequested EventType = "review.requested"

	// EventReviewClaimed fires when a reviewer claims a task's review.
	EventReviewClaimed EventType = "review.claimed"

	// EventReviewCompleted fires when a reviewer approves, assists with,
	// or rejects a task.
	EventReviewCompleted EventType = "review.completed"

	// EventReviewDisputed fires when a completed review is disputed back
	// into the queue.
	EventReviewDisputed EventType = "review.disputed"
)

// Event is the payload handed to a dispatcher.
type Event struct {
	// ID is a unique event id.
	ID string

	// Type identifies the event.
	Type EventType

	// TaskID is the task the event concerns.
	TaskID int64

	// ChallengeID is the task's parent challenge.
	ChallengeID int64

	// ActorID is the user who caused the event.
	ActorID int64

	// TargetUserID is the user the event should reach, when the event has
	// a specific audience (for example the review requester). Nil for
	// broadcast events.
	TargetUserID *int64

	// Status carries the new task or review status, when relevant.
	Status string

	// Comment carries reviewer commentary, when provided.
	Comment string

	// Tags carries completion tags supplied by the contributor.
	Tags []string

	// Time is when the event occurred.
	Time time.Time
}

// NewEvent builds an event with a fresh id and the current time.
func NewEvent(eventType EventType, taskID, challengeID, actorID int64) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		TaskID:      taskID,
		ChallengeID: challengeID,
		ActorID:     actorID,
		Time:        time.Now(),
	}
}

// Dispatcher delivers events. Implementations must not block the caller
// for long and must not return delivery failures to it.
type Dispatcher interface {
	Dispatch(event Event)
}

// Noop discards all events.
type Noop struct{}

// Dispatch discards the event.
func (Noop) Dispatch(event Event) {}

// Console writes one styled line per event. It stands in for the real
// delivery system in the CLI and in tests.
type Console struct {
	writer     io.Writer
	labelStyle lipgloss.Style
}

// NewConsole builds a console dispatcher writing to writer.
func NewConsole(writer io.Writer) *Console {
	if writer == nil {
		writer = io.Discard
	}
	return &Console{
		writer:     writer,
		labelStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
	}
}

// Dispatch writes the event. Write failures are dropped.
func (c *Console) Dispatch(event Event) {
	if c == nil {
		return
	}
	label := c.labelStyle.Render(string(event.Type))
	line := fmt.Sprintf("%s task=%d actor=%d", label, event.TaskID, event.ActorID)
	if event.Status != "" {
		line += " status=" + event.Status
	}
	if event.TargetUserID != nil {
		line += fmt.Sprintf(" for=%d", *event.TargetUserID)
	}
	fmt.Fprintln(c.writer, line)
}

// Recorder captures events for assertions in tests.
type Recorder struct {
	Events []Event
}

// Dispatch records the event.
func (r *Recorder) Dispatch(event Event) {
	r.Events = append(r.Events, event)
}

// ByType returns the recorded events of the given type.
func (r *Recorder) ByType(eventType EventType) []Event {
	var matched []Event
	for _, event := range r.Events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
