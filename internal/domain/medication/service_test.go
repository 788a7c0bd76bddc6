package medication

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// mockRepo is an in-memory Repository for service tests.
type mockRepo struct {
	records   map[uuid.UUID]*Record
	batchErr  error
	createdIn []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*Record)}
}

func (m *mockRepo) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	m.records[rec.ID] = &cp
	m.createdIn = append(m.createdIn, rec.ID)
	return nil
}

func (m *mockRepo) CreateBatch(ctx context.Context, recs []*Record) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	for _, rec := range recs {
		if err := m.Create(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *rec
	cp.Reminders = append([]ReminderSlot(nil), rec.Reminders...)
	return &cp, nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var recs []*Record
	for _, rec := range m.records {
		if rec.PatientID == patientID {
			recs = append(recs, rec)
		}
	}
	return recs, len(recs), nil
}

func (m *mockRepo) Update(ctx context.Context, rec *Record) error {
	if _, ok := m.records[rec.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.records, id)
	return nil
}

func (m *mockRepo) ListDueAt(ctx context.Context, hhmm string) ([]*DueReminder, error) {
	var due []*DueReminder
	for _, rec := range m.records {
		for _, slot := range rec.Reminders {
			if slot.Enabled && slot.Time == hhmm {
				due = append(due, &DueReminder{
					MedicationID: rec.ID,
					PatientID:    rec.PatientID,
					Name:         rec.Name,
					Dosage:       rec.Dosage,
					Time:         slot.Time,
				})
			}
		}
	}
	return due, nil
}

func validRecord() *Record {
	return &Record{
		PatientID: uuid.New(),
		Name:      "Metformin",
		Dosage:    "500mg",
		Frequency: "twice daily",
	}
}

func TestCreate_FillsDefaults(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rec.Duration != DurationUnspecified {
		t.Errorf("duration: got %q, want %q", rec.Duration, DurationUnspecified)
	}
	if rec.StartDate.IsZero() {
		t.Error("expected start date to default to now")
	}
	if len(rec.Reminders) != 2 {
		t.Fatalf("expected 2 derived reminders for twice daily, got %d", len(rec.Reminders))
	}
	for _, slot := range rec.Reminders {
		if slot.ID == uuid.Nil {
			t.Errorf("slot %s: expected ID stamped before persist", slot.Time)
		}
	}
}

func TestCreate_KeepsProvidedReminders(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	rec.Reminders = []ReminderSlot{{Time: "07:30", Enabled: true}}
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(rec.Reminders) != 1 || rec.Reminders[0].Time != "07:30" {
		t.Fatalf("expected provided reminders untouched, got %+v", rec.Reminders)
	}
}

func TestCreate_ValidatesRequiredFields(t *testing.T) {
	svc := NewService(newMockRepo())

	tests := []struct {
		name   string
		mutate func(*Record)
		want   string
	}{
		{"missing patient", func(r *Record) { r.PatientID = uuid.Nil }, "patientId"},
		{"missing name", func(r *Record) { r.Name = "" }, "name"},
		{"missing dosage", func(r *Record) { r.Dosage = "" }, "dosage"},
		{"missing frequency", func(r *Record) { r.Frequency = "" }, "frequency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			err := svc.Create(context.Background(), rec)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestCreateBatch_ValidatesBeforePersisting(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	recs := []*Record{validRecord(), validRecord()}
	recs[1].Dosage = ""

	if err := svc.CreateBatch(context.Background(), recs); err == nil {
		t.Fatal("expected validation error")
	}
	if len(repo.createdIn) != 0 {
		t.Fatalf("expected no records persisted, got %d", len(repo.createdIn))
	}
}

func TestUpdate_FrequencyChangeReschedules(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	upd := *rec
	upd.Frequency = "three times a day"
	upd.Reminders = nil
	if err := svc.Update(context.Background(), &upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	assertTimes(t, upd.Reminders, "09:00", "14:00", "21:00")
	for _, slot := range upd.Reminders {
		if slot.ID == uuid.Nil {
			t.Errorf("slot %s: expected ID stamped", slot.Time)
		}
	}
}

func TestUpdate_KeepsRemindersWhenFrequencyUnchanged(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	original := rec.Reminders[0].ID

	upd := *rec
	upd.Dosage = "1000mg"
	upd.Reminders = nil
	if err := svc.Update(context.Background(), &upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(upd.Reminders) != 2 || upd.Reminders[0].ID != original {
		t.Fatalf("expected existing reminders preserved, got %+v", upd.Reminders)
	}
}

func TestAddReminder(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.AddReminder(context.Background(), rec.ID, "07:15", true)
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}
	if len(updated.Reminders) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(updated.Reminders))
	}
	last := updated.Reminders[2]
	if last.Time != "07:15" || !last.Enabled || last.ID == uuid.Nil {
		t.Fatalf("unexpected new slot %+v", last)
	}
}

func TestAddReminder_RejectsBadTime(t *testing.T) {
	svc := NewService(newMockRepo())
	for _, bad := range []string{"25:00", "9:00", "09:60", "noon", ""} {
		if _, err := svc.AddReminder(context.Background(), uuid.New(), bad, true); err == nil {
			t.Errorf("%q: expected invalid time error", bad)
		}
	}
}

func TestUpdateReminder(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slotID := rec.Reminders[0].ID

	newTime := "08:45"
	disabled := false
	updated, err := svc.UpdateReminder(context.Background(), rec.ID, slotID, &newTime, &disabled)
	if err != nil {
		t.Fatalf("UpdateReminder: %v", err)
	}
	if updated.Reminders[0].Time != "08:45" || updated.Reminders[0].Enabled {
		t.Fatalf("unexpected slot %+v", updated.Reminders[0])
	}
	// other slot untouched
	if updated.Reminders[1].Time != "21:00" || !updated.Reminders[1].Enabled {
		t.Fatalf("unexpected sibling slot %+v", updated.Reminders[1])
	}
}

func TestUpdateReminder_UnknownSlot(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	enabled := false
	_, err := svc.UpdateReminder(context.Background(), rec.ID, uuid.New(), nil, &enabled)
	if err != ErrReminderNotFound {
		t.Fatalf("got %v, want ErrReminderNotFound", err)
	}
}

func TestDeleteReminder(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slotID := rec.Reminders[0].ID

	updated, err := svc.DeleteReminder(context.Background(), rec.ID, slotID)
	if err != nil {
		t.Fatalf("DeleteReminder: %v", err)
	}
	if len(updated.Reminders) != 1 || updated.Reminders[0].Time != "21:00" {
		t.Fatalf("unexpected reminders after delete: %+v", updated.Reminders)
	}

	if _, err := svc.DeleteReminder(context.Background(), rec.ID, slotID); err != ErrReminderNotFound {
		t.Fatalf("got %v, want ErrReminderNotFound", err)
	}
}

func TestToggleReminder(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slotID := rec.Reminders[0].ID

	updated, err := svc.ToggleReminder(context.Background(), rec.ID, slotID, false)
	if err != nil {
		t.Fatalf("ToggleReminder: %v", err)
	}
	if updated.Reminders[0].Enabled {
		t.Error("expected slot disabled")
	}

	due, err := svc.DueAt(context.Background(), "09:00")
	if err != nil {
		t.Fatalf("DueAt: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("disabled slot should not fire, got %d due", len(due))
	}
}

func TestDueAt(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	rec := validRecord()
	rec.StartDate = time.Now().Add(-24 * time.Hour)
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	due, err := svc.DueAt(context.Background(), "21:00")
	if err != nil {
		t.Fatalf("DueAt: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due reminder, got %d", len(due))
	}
	if due[0].Name != "Metformin" || due[0].PatientID != rec.PatientID {
		t.Fatalf("unexpected due reminder %+v", due[0])
	}
}
