package medication

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const recordCols = `id, patient_id, name, dosage, frequency, duration,
	instructions, start_date, end_date, reminders, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var reminders []byte
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.Name, &rec.Dosage, &rec.Frequency,
		&rec.Duration, &rec.Instructions, &rec.StartDate, &rec.EndDate,
		&reminders, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reminders, &rec.Reminders); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	return &rec, nil
}

const insertRecordSQL = `
	INSERT INTO medication_record (id, patient_id, name, dosage, frequency,
		duration, instructions, start_date, end_date, reminders)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

func recordArgs(rec *Record) ([]interface{}, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	reminders, err := json.Marshal(rec.Reminders)
	if err != nil {
		return nil, fmt.Errorf("encode reminders: %w", err)
	}
	return []interface{}{
		rec.ID, rec.PatientID, rec.Name, rec.Dosage, rec.Frequency,
		rec.Duration, rec.Instructions, rec.StartDate, rec.EndDate, reminders,
	}, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertRecordSQL, args...)
	return err
}

func (r *repoPG) CreateBatch(ctx context.Context, recs []*Record) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		args, err := recordArgs(rec)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertRecordSQL, args...); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM medication_record WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM medication_record WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordCols+` FROM medication_record
		 WHERE patient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, rec *Record) error {
	reminders, err := json.Marshal(rec.Reminders)
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE medication_record SET name=$2, dosage=$3, frequency=$4,
			duration=$5, instructions=$6, start_date=$7, end_date=$8,
			reminders=$9, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.Name, rec.Dosage, rec.Frequency,
		rec.Duration, rec.Instructions, rec.StartDate, rec.EndDate, reminders)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM medication_record WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListDueAt(ctx context.Context, hhmm string) ([]*DueReminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.patient_id, m.name, m.dosage, slot->>'time'
		FROM medication_record m,
		     jsonb_array_elements(m.reminders) slot
		WHERE slot->>'time' = $1
		  AND (slot->>'enabled')::boolean
		  AND m.start_date <= NOW()
		  AND (m.end_date IS NULL OR m.end_date >= NOW())`, hhmm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*DueReminder
	for rows.Next() {
		var d DueReminder
		if err := rows.Scan(&d.MedicationID, &d.PatientID, &d.Name, &d.Dosage, &d.Time); err != nil {
			return nil, err
		}
		due = append(due, &d)
	}
	return due, rows.Err()
}
