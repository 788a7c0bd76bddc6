package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medbuddy/medbuddy/internal/domain/identity"
	"github.com/medbuddy/medbuddy/internal/domain/medication"
	"github.com/medbuddy/medbuddy/internal/platform/ai"
)

type mockGenerator struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
	lastTokens int
	calls      int
}

func (m *mockGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	m.calls++
	m.lastSystem = system
	m.lastUser = user
	m.lastTokens = maxTokens
	return m.reply, m.err
}

type mockDirectory struct{ users map[uuid.UUID]*identity.User }

func (m *mockDirectory) Get(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

type medsRepo struct {
	records  []*medication.Record
	batchErr error
}

func (m *medsRepo) Create(ctx context.Context, rec *medication.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *medsRepo) CreateBatch(ctx context.Context, recs []*medication.Record) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.records = append(m.records, recs...)
	return nil
}

func (m *medsRepo) GetByID(ctx context.Context, id uuid.UUID) (*medication.Record, error) {
	return nil, pgx.ErrNoRows
}

func (m *medsRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*medication.Record, int, error) {
	return nil, 0, nil
}

func (m *medsRepo) Update(ctx context.Context, rec *medication.Record) error { return nil }
func (m *medsRepo) Delete(ctx context.Context, id uuid.UUID) error           { return nil }
func (m *medsRepo) ListDueAt(ctx context.Context, hhmm string) ([]*medication.DueReminder, error) {
	return nil, nil
}

type serviceFixture struct {
	svc       *Service
	gen       *mockGenerator
	repo      *medsRepo
	patientID uuid.UUID
}

func newServiceFixture() *serviceFixture {
	patientID := uuid.New()
	gen := &mockGenerator{}
	repo := &medsRepo{}
	dir := &mockDirectory{users: map[uuid.UUID]*identity.User{
		patientID: {ID: patientID, Name: "Pat Smith", Role: identity.RolePatient},
	}}
	svc := NewService(gen, dir, medication.NewService(repo), zerolog.Nop())
	return &serviceFixture{svc: svc, gen: gen, repo: repo, patientID: patientID}
}

func TestProcessDischarge(t *testing.T) {
	f := newServiceFixture()
	f.gen.reply = bulletReply

	recs, err := f.svc.ProcessDischarge(context.Background(), f.patientID, "Patient discharged on antibiotics.")
	if err != nil {
		t.Fatalf("ProcessDischarge: %v", err)
	}
	if len(recs) != 2 || len(f.repo.records) != 2 {
		t.Fatalf("expected 2 stored records, got %d returned / %d stored", len(recs), len(f.repo.records))
	}

	if f.gen.lastSystem != bulletSystemPrompt {
		t.Errorf("system prompt: got %q", f.gen.lastSystem)
	}
	if !strings.Contains(f.gen.lastUser, "Patient discharged on antibiotics.") {
		t.Error("user prompt should embed the summary")
	}
	if f.gen.lastTokens != extractionMaxTokens {
		t.Errorf("max tokens: got %d, want %d", f.gen.lastTokens, extractionMaxTokens)
	}

	first := recs[0]
	if first.PatientID != f.patientID || first.Name != "Amoxicillin" {
		t.Errorf("unexpected record %+v", first)
	}
	if first.EndDate != nil {
		t.Error("bullet extraction should leave records open-ended")
	}
	if len(first.Reminders) == 0 {
		t.Error("expected reminder slots derived from frequency")
	}

	// Duration omitted in the reply falls back to the sentinel.
	if recs[1].Duration != medication.DurationUnspecified {
		t.Errorf("duration: got %q, want %q", recs[1].Duration, medication.DurationUnspecified)
	}
}

func TestProcessSummary(t *testing.T) {
	f := newServiceFixture()
	f.gen.reply = `[{"name":"Amoxicillin","dosage":"500mg","frequency":"three times a day"}]`

	recs, err := f.svc.ProcessSummary(context.Background(), f.patientID, "Discharged with amoxicillin.")
	if err != nil {
		t.Fatalf("ProcessSummary: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	if f.gen.lastSystem != jsonSystemPrompt {
		t.Errorf("system prompt: got %q", f.gen.lastSystem)
	}

	rec := recs[0]
	if rec.Instructions != "Take 500mg three times a day" {
		t.Errorf("instructions: got %q", rec.Instructions)
	}
	if rec.EndDate == nil {
		t.Fatal("expected a seven-day end date")
	}
	gap := rec.EndDate.Sub(rec.StartDate)
	if gap < 7*24*time.Hour-time.Minute || gap > 7*24*time.Hour+time.Minute {
		t.Errorf("course length: got %s, want 7 days", gap)
	}
	assertSlots := []string{"09:00", "14:00", "21:00"}
	if len(rec.Reminders) != len(assertSlots) {
		t.Fatalf("expected %d reminders, got %d", len(assertSlots), len(rec.Reminders))
	}
	for i, want := range assertSlots {
		if rec.Reminders[i].Time != want {
			t.Errorf("reminder %d: got %q, want %q", i, rec.Reminders[i].Time, want)
		}
	}
}

func TestProcessSummary_SuppliedInstructionsKept(t *testing.T) {
	f := newServiceFixture()
	f.gen.reply = `[{"name":"Warfarin","dosage":"5mg","frequency":"every evening","instructions":"Take on an empty stomach"}]`

	recs, err := f.svc.ProcessSummary(context.Background(), f.patientID, "Discharged with warfarin.")
	if err != nil {
		t.Fatalf("ProcessSummary: %v", err)
	}
	if recs[0].Instructions != "Take on an empty stomach" {
		t.Errorf("instructions: got %q, want the reply's own text", recs[0].Instructions)
	}
}

func TestProcess_Validation(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		name    string
		id      uuid.UUID
		summary string
	}{
		{"blank summary", f.patientID, "   "},
		{"missing patient id", uuid.Nil, "some summary"},
		{"summary too long", f.patientID, strings.Repeat("x", maxSummaryLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ProcessDischarge(context.Background(), tt.id, tt.summary)
			var extErr *Error
			if !errors.As(err, &extErr) || extErr.Kind != KindValidation {
				t.Fatalf("got %v, want validation error", err)
			}
			if f.gen.calls != 0 {
				t.Error("generator should not be called on invalid input")
			}
		})
	}
}

func TestProcess_SummaryAtLimitAccepted(t *testing.T) {
	f := newServiceFixture()
	f.gen.reply = bulletReply

	_, err := f.svc.ProcessDischarge(context.Background(), f.patientID, strings.Repeat("x", maxSummaryLength))
	if err != nil {
		t.Fatalf("summary of exactly %d chars should pass: %v", maxSummaryLength, err)
	}
}

func TestProcess_UnknownPatient(t *testing.T) {
	f := newServiceFixture()
	f.gen.reply = bulletReply

	_, err := f.svc.ProcessDischarge(context.Background(), uuid.New(), "some summary")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("got %v, want ErrPatientNotFound", err)
	}
}

func TestProcess_DoctorIsNotAPatient(t *testing.T) {
	f := newServiceFixture()
	doctorID := uuid.New()
	dir := &mockDirectory{users: map[uuid.UUID]*identity.User{
		doctorID: {ID: doctorID, Role: identity.RoleDoctor},
	}}
	svc := NewService(f.gen, dir, medication.NewService(f.repo), zerolog.Nop())

	_, err := svc.ProcessDischarge(context.Background(), doctorID, "some summary")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("got %v, want ErrPatientNotFound", err)
	}
}

func TestProcess_GeneratorErrorPassedThrough(t *testing.T) {
	f := newServiceFixture()
	f.gen.err = &ai.ServiceError{Status: 429, Detail: "rate limited"}

	_, err := f.svc.ProcessDischarge(context.Background(), f.patientID, "some summary")
	var svcErr *ai.ServiceError
	if !errors.As(err, &svcErr) || svcErr.Status != 429 {
		t.Fatalf("got %v, want the upstream service error", err)
	}
	if len(f.repo.records) != 0 {
		t.Error("nothing should be stored on generator failure")
	}
}

func TestProcess_NothingStoredOnParseFailure(t *testing.T) {
	f := newServiceFixture()
	f.gen.reply = "The summary does not mention any medications."

	_, err := f.svc.ProcessDischarge(context.Background(), f.patientID, "some summary")
	var extErr *Error
	if !errors.As(err, &extErr) || extErr.Kind != KindNoMedications {
		t.Fatalf("got %v, want no_medications error", err)
	}
	if len(f.repo.records) != 0 {
		t.Error("nothing should be stored when parsing fails")
	}
}
