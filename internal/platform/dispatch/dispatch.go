// Package dispatch fires medication reminders. A minute-level cron tick asks
// the medication store which reminder slots match the current wall-clock time
// and publishes a reminder.due event on each patient's topic.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/medbuddy/medbuddy/internal/domain/medication"
	"github.com/medbuddy/medbuddy/internal/platform/websocket"
)

// tickTimeout bounds one dispatch pass, query and publish included.
const tickTimeout = 30 * time.Second

// Source yields the reminders due at a given HH:MM wall-clock time.
// Satisfied by medication.Service.
type Source interface {
	DueAt(ctx context.Context, hhmm string) ([]*medication.DueReminder, error)
}

type Dispatcher struct {
	source    Source
	publisher websocket.EventPublisher
	scheduler *gocron.Scheduler
	log       zerolog.Logger
}

func NewDispatcher(source Source, publisher websocket.EventPublisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		source:    source,
		publisher: publisher,
		scheduler: gocron.NewScheduler(time.Local),
		log:       log,
	}
}

// Start begins the minute tick. It returns immediately; dispatch runs on the
// scheduler's goroutine until Stop is called.
func (d *Dispatcher) Start() error {
	_, err := d.scheduler.Every(1).Minute().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()
		d.runOnce(ctx, time.Now())
	})
	if err != nil {
		return err
	}
	d.scheduler.StartAsync()
	d.log.Info().Msg("reminder dispatcher started")
	return nil
}

func (d *Dispatcher) Stop() {
	d.scheduler.Stop()
	d.log.Info().Msg("reminder dispatcher stopped")
}

// runOnce dispatches every reminder due at the given instant.
func (d *Dispatcher) runOnce(ctx context.Context, now time.Time) {
	hhmm := now.Format("15:04")

	due, err := d.source.DueAt(ctx, hhmm)
	if err != nil {
		d.log.Error().Err(err).Str("time", hhmm).Msg("failed to load due reminders")
		return
	}
	if len(due) == 0 {
		return
	}

	for _, reminder := range due {
		data, err := json.Marshal(reminder)
		if err != nil {
			d.log.Error().Err(err).Str("medication_id", reminder.MedicationID.String()).
				Msg("failed to encode reminder")
			continue
		}

		event := websocket.Event{
			Type:      websocket.EventTypeReminderDue,
			Topic:     websocket.PatientTopic(reminder.PatientID),
			Timestamp: now,
			Data:      data,
		}
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.log.Error().Err(err).Str("topic", event.Topic).Msg("failed to publish reminder")
		}
	}

	d.log.Info().Str("time", hhmm).Int("reminders", len(due)).Msg("dispatched reminders")
}
