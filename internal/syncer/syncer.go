package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inspectsync/internal/events"
	"inspectsync/internal/metrics"
	"inspectsync/internal/models"
	"inspectsync/internal/snapshot"
)

// ChangeKind tells whether a staged record is new or replaces one.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
)

// Change is one record staged into the snapshot during a cycle.
type Change struct {
	CycleID       string          `json:"cycle_id"`
	Kind          ChangeKind      `json:"kind"`
	BookingID     string          `json:"booking_id"`
	Booking       models.Booking  `json:"booking"`
	Previous      *models.Booking `json:"previous,omitempty"`
	ChangedFields []string        `json:"changed_fields,omitempty"`
}

// DecodeChange parses an event payload published by the Syncer.
func DecodeChange(payload []byte) (Change, error) {
	var c Change
	err := json.Unmarshal(payload, &c)
	return c, err
}

// CycleResult summarizes one cycle.
type CycleResult struct {
	CycleID  string
	Empty    bool
	Changes  []Change
	Skipped  int
	Total    int
	Duration time.Duration
}

// Added returns the number of new records.
func (r *CycleResult) Added() int {
	return r.count(ChangeAdded)
}

// Updated returns the number of replaced records.
func (r *CycleResult) Updated() int {
	return r.count(ChangeUpdated)
}

func (r *CycleResult) count(kind ChangeKind) int {
	n := 0
	for _, c := range r.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// BookingSource lists booking identifiers and fetches raw records.
type BookingSource interface {
	ListBookingIDs(ctx context.Context) []string
	GetBooking(ctx context.Context, id string) map[string]string
}

// Mirror receives the whole snapshot after it has been written.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, s *snapshot.Snapshot) error
}

// Options configures a Syncer. Only SnapshotPath is required.
type Options struct {
	SnapshotPath string
	Backup       *snapshot.BackupService
	Bus          *events.EventBus
	Mirrors      []Mirror
	Metrics      *metrics.Metrics
}

// Syncer runs list-fetch-compare-write cycles against a BookingSource.
type Syncer struct {
	source      BookingSource
	opts        Options
	logger      *zerolog.Logger
	now         func() time.Time
	lastSuccess atomic.Int64
}

func New(source BookingSource, opts Options, logger *zerolog.Logger) *Syncer {
	return &Syncer{
		source: source,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// LastSuccess returns when a cycle last wrote the snapshot, or the zero time.
func (s *Syncer) LastSuccess() time.Time {
	ns := s.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// RunCycle performs one full pass. An empty identifier list ends the cycle
// without touching the snapshot file.
func (s *Syncer) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := s.now()
	res := &CycleResult{CycleID: uuid.NewString()}
	log := s.logger.With().Str("cycle_id", res.CycleID).Logger()

	log.Info().Msgf("Syncing at %s", start.Format(models.CreatedAtLayout))

	ids := s.source.ListBookingIDs(ctx)
	if len(ids) == 0 {
		log.Warn().Msg("No booking IDs found.")
		res.Empty = true
		s.finish(res, start, "empty")
		return res, nil
	}

	existing, err := snapshot.Load(s.opts.SnapshotPath)
	if err != nil {
		s.finish(res, start, "error")
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	updated := existing.Clone()

	for _, id := range ids {
		fields := s.source.GetBooking(ctx, id)
		if fields == nil {
			res.Skipped++
			if s.opts.Metrics != nil {
				s.opts.Metrics.IncSkipped()
			}
			log.Debug().Str("booking_id", id).Msg("no data for booking, keeping previous row")
			continue
		}

		record := models.FromFields(fields)
		prev, ok := existing.Get(id)
		if ok && prev == record {
			continue
		}

		change := Change{CycleID: res.CycleID, BookingID: id, Booking: record}
		if ok {
			p := prev
			change.Kind = ChangeUpdated
			change.Previous = &p
			change.ChangedFields = models.Diff(prev, record)
			log.Info().Strs("fields", change.ChangedFields).Msgf("Updated booking ID: %s", id)
		} else {
			change.Kind = ChangeAdded
			log.Info().Msgf("Added booking ID: %s", id)
		}
		res.Changes = append(res.Changes, change)
		updated.Set(id, record)
	}

	s.backup(&log)

	if err := snapshot.Write(s.opts.SnapshotPath, updated); err != nil {
		s.finish(res, start, "error")
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	res.Total = updated.Len()
	writtenAt := s.now()
	s.lastSuccess.Store(writtenAt.UnixNano())
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveWrite(res.Total, writtenAt)
	}

	s.publish(res.Changes)
	s.mirror(ctx, &log, updated)

	s.finish(res, start, "ok")
	log.Info().
		Int("added", res.Added()).
		Int("updated", res.Updated()).
		Int("skipped", res.Skipped).
		Msgf("Sync complete. Total bookings now: %d", res.Total)
	return res, nil
}

func (s *Syncer) finish(res *CycleResult, start time.Time, result string) {
	res.Duration = s.now().Sub(start)
	if s.opts.Metrics == nil {
		return
	}
	s.opts.Metrics.IncCycle(result)
	s.opts.Metrics.ObserveDuration(res.Duration)
	for _, c := range res.Changes {
		s.opts.Metrics.IncChanged(string(c.Kind))
	}
}

func (s *Syncer) backup(log *zerolog.Logger) {
	if !s.opts.Backup.Enabled() {
		return
	}
	if _, err := s.opts.Backup.PerformBackup(); err != nil {
		log.Error().Err(err).Msg("snapshot backup failed")
	}
	s.opts.Backup.CleanupOldBackups()
}

func (s *Syncer) publish(changes []Change) {
	if s.opts.Bus == nil {
		return
	}
	for _, c := range changes {
		payload, err := json.Marshal(c)
		if err != nil {
			s.logger.Error().Err(err).Str("booking_id", c.BookingID).Msg("encode change")
			continue
		}
		eventType := events.BookingAdded
		if c.Kind == ChangeUpdated {
			eventType = events.BookingUpdated
		}
		failed := s.opts.Bus.Publish(events.Event{
			ID:      c.CycleID + ":" + c.BookingID,
			Type:    eventType,
			Payload: payload,
		})
		if failed > 0 && s.opts.Metrics != nil {
			s.opts.Metrics.AddHandlerErrors(failed)
		}
	}
}

func (s *Syncer) mirror(ctx context.Context, log *zerolog.Logger, snap *snapshot.Snapshot) {
	for _, m := range s.opts.Mirrors {
		if err := m.Mirror(ctx, snap); err != nil {
			if s.opts.Metrics != nil {
				s.opts.Metrics.IncMirrorError(m.Name())
			}
			log.Error().Err(err).Str("mirror", m.Name()).Msg("mirror update failed")
		}
	}
}
