package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbuddy/medbuddy/internal/domain/medication"
	"github.com/medbuddy/medbuddy/internal/platform/websocket"
)

type mockSource struct {
	due      map[string][]*medication.DueReminder
	err      error
	lastHHMM string
}

func (m *mockSource) DueAt(ctx context.Context, hhmm string) ([]*medication.DueReminder, error) {
	m.lastHHMM = hhmm
	if m.err != nil {
		return nil, m.err
	}
	return m.due[hhmm], nil
}

type mockPublisher struct {
	events []websocket.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event websocket.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestRunOnce(t *testing.T) {
	patientID := uuid.New()
	medID := uuid.New()
	source := &mockSource{due: map[string][]*medication.DueReminder{
		"09:00": {{
			MedicationID: medID,
			PatientID:    patientID,
			Name:         "Metformin",
			Dosage:       "500mg",
			Time:         "09:00",
		}},
	}}
	pub := &mockPublisher{}
	d := NewDispatcher(source, pub, zerolog.Nop())

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	d.runOnce(context.Background(), now)

	if source.lastHHMM != "09:00" {
		t.Errorf("queried time: got %q, want 09:00", source.lastHHMM)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}

	event := pub.events[0]
	if event.Type != websocket.EventTypeReminderDue {
		t.Errorf("type: got %q, want %q", event.Type, websocket.EventTypeReminderDue)
	}
	if event.Topic != websocket.PatientTopic(patientID) {
		t.Errorf("topic: got %q, want %q", event.Topic, websocket.PatientTopic(patientID))
	}

	var reminder medication.DueReminder
	if err := json.Unmarshal(event.Data, &reminder); err != nil {
		t.Fatalf("decode event data: %v", err)
	}
	if reminder.MedicationID != medID || reminder.Name != "Metformin" {
		t.Fatalf("unexpected reminder payload %+v", reminder)
	}
}

func TestRunOnce_NothingDue(t *testing.T) {
	source := &mockSource{due: map[string][]*medication.DueReminder{}}
	pub := &mockPublisher{}
	d := NewDispatcher(source, pub, zerolog.Nop())

	d.runOnce(context.Background(), time.Date(2026, 3, 14, 3, 17, 0, 0, time.Local))

	if source.lastHHMM != "03:17" {
		t.Errorf("queried time: got %q, want 03:17", source.lastHHMM)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no events, got %d", len(pub.events))
	}
}

func TestRunOnce_SourceError(t *testing.T) {
	source := &mockSource{err: errors.New("db down")}
	pub := &mockPublisher{}
	d := NewDispatcher(source, pub, zerolog.Nop())

	// Must not panic or publish.
	d.runOnce(context.Background(), time.Now())
	if len(pub.events) != 0 {
		t.Fatalf("expected no events on source error, got %d", len(pub.events))
	}
}

func TestRunOnce_MultiplePatients(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	source := &mockSource{due: map[string][]*medication.DueReminder{
		"21:00": {
			{MedicationID: uuid.New(), PatientID: p1, Name: "Metformin", Dosage: "500mg", Time: "21:00"},
			{MedicationID: uuid.New(), PatientID: p2, Name: "Lisinopril", Dosage: "10mg", Time: "21:00"},
		},
	}}
	pub := &mockPublisher{}
	d := NewDispatcher(source, pub, zerolog.Nop())

	d.runOnce(context.Background(), time.Date(2026, 3, 14, 21, 0, 0, 0, time.Local))

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	topics := map[string]bool{pub.events[0].Topic: true, pub.events[1].Topic: true}
	if !topics[websocket.PatientTopic(p1)] || !topics[websocket.PatientTopic(p2)] {
		t.Fatalf("expected one event per patient topic, got %v", topics)
	}
}
