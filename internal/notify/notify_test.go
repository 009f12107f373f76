package notify

import (
	"strings"
	"testing"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventTaskCompleted, 1, 3, 7)

	if event.ID == "" {
		t.Error("expected a generated event id")
	}
	if event.Type != EventTaskCompleted {
		t.Errorf("expected type %s, got %s", EventTaskCompleted, event.Type)
	}
	if event.TaskID != 1 || event.ChallengeID != 3 || event.ActorID != 7 {
		t.Errorf("expected ids carried on event, got %+v", event)
	}
	if event.Time.IsZero() {
		t.Error("expected event time to be set")
	}

	other := NewEvent(EventTaskCompleted, 1, 3, 7)
	if other.ID == event.ID {
		t.Error("expected unique event ids")
	}
}

func TestRecorder(t *testing.T) {
	recorder := &Recorder{}
	recorder.Dispatch(NewEvent(EventTaskCompleted, 1, 3, 7))
	recorder.Dispatch(NewEvent(EventReviewRequested, 1, 3, 7))
	recorder.Dispatch(NewEvent(EventTaskCompleted, 2, 3, 7))

	if len(recorder.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recorder.Events))
	}
	if got := recorder.ByType(EventTaskCompleted); len(got) != 2 {
		t.Errorf("expected 2 completion events, got %d", len(got))
	}
	if got := recorder.ByType(EventReviewDisputed); len(got) != 0 {
		t.Errorf("expected no disputed events, got %d", len(got))
	}
}

func TestConsole_Dispatch(t *testing.T) {
	var buf strings.Builder
	console := NewConsole(&buf)

	target := int64(7)
	event := NewEvent(EventReviewCompleted, 1, 3, 42)
	event.Status = "approved"
	event.TargetUserID = &target
	console.Dispatch(event)

	line := buf.String()
	for _, want := range []string{"review.completed", "task=1", "actor=42", "status=approved", "for=7"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected console line to contain %q, got %q", want, line)
		}
	}
}

func TestConsole_NilWriter(t *testing.T) {
	console := NewConsole(nil)
	console.Dispatch(NewEvent(EventTaskCompleted, 1, 3, 7))
}
