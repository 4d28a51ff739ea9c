package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ordenaclinic/ordenaclinic/internal/platform/websocket"
)

// Queue event types published after each operation.
const (
	EventPatientAdded = "queue.added"
	EventQueueCleared = "queue.cleared"
	EventQueueLoaded  = "queue.loaded"
	EventQueueSorted  = "queue.sorted"
)

// Service owns one triage queue. It is the only component that mutates the
// queue and is not safe for concurrent use.
type Service struct {
	repo    QueueRepository
	logger  zerolog.Logger
	pub     websocket.EventPublisher
	topic   string
	example *Dataset
}

func NewService(repo QueueRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetPublisher attaches an optional publisher notified on the given topic.
func (s *Service) SetPublisher(pub websocket.EventPublisher, topic string) {
	s.pub = pub
	s.topic = topic
}

// SetExample overrides the dataset used by LoadExample.
func (s *Service) SetExample(ds *Dataset) {
	s.example = ds
}

// Add validates and admits a patient at the back of the arrival order. On a
// validation error the queue is left unchanged.
func (s *Service) Add(ctx context.Context, c Candidate) (Patient, error) {
	p, err := s.admit(c)
	if err != nil {
		return Patient{}, err
	}

	last, err := s.repo.MaxArrival(ctx)
	if err != nil {
		return Patient{}, fmt.Errorf("read arrival counter: %w", err)
	}
	p.arrivalSeq = last + 1

	if err := s.repo.Append(ctx, p); err != nil {
		return Patient{}, fmt.Errorf("store patient: %w", err)
	}

	s.logger.Info().
		Str("patient_id", p.id.String()).
		Int("arrival_seq", p.arrivalSeq).
		Int("triage_level", int(p.level)).
		Str("flags", p.flags.String()).
		Msg("patient added")
	s.publish(ctx, EventPatientAdded, p)
	return p, nil
}

// Clear empties the queue and resets the arrival counter.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	s.logger.Info().Msg("queue cleared")
	s.publish(ctx, EventQueueCleared, nil)
	return nil
}

// CurrentQueue returns the queue in arrival order.
func (s *Service) CurrentQueue(ctx context.Context) ([]Patient, error) {
	return s.repo.List(ctx)
}

// SortSnapshot sorts a copy of the queue. The stored order is not changed.
func (s *Service) SortSnapshot(ctx context.Context) (Result, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list queue: %w", err)
	}
	res := MergeSort(patients, PriorityKey)

	s.logger.Debug().
		Int("patients", len(res.Patients)).
		Int("comparisons", res.Metrics.Comparisons).
		Dur("elapsed", res.Metrics.Elapsed).
		Msg("queue sorted")
	s.publish(ctx, EventQueueSorted, res.Metrics)
	return res, nil
}

// Load replaces the queue with the given candidates, numbered 1..n in order.
// If any candidate is invalid the queue is left unchanged and the error names
// its position.
func (s *Service) Load(ctx context.Context, candidates []Candidate) ([]Patient, error) {
	patients := make([]Patient, 0, len(candidates))
	for i, c := range candidates {
		p, err := s.admit(c)
		if err != nil {
			return nil, fmt.Errorf("patient %d: %w", i+1, err)
		}
		p.arrivalSeq = i + 1
		patients = append(patients, p)
	}
	if err := s.repo.Replace(ctx, patients); err != nil {
		return nil, fmt.Errorf("replace queue: %w", err)
	}

	s.logger.Info().Int("patients", len(patients)).Msg("queue loaded")
	s.publish(ctx, EventQueueLoaded, nil)
	return patients, nil
}

// LoadExample replaces the queue with the demonstration dataset.
func (s *Service) LoadExample(ctx context.Context) ([]Patient, error) {
	ds := s.example
	if ds == nil {
		ds = ExampleDataset()
	}
	return s.Load(ctx, ds.Patients)
}

// DisabledFlags reports the flags an intake form should disable.
func (s *Service) DisabledFlags(ageYears, ageMonths int, current Flags) Flags {
	return DisabledFlags(ageYears, ageMonths, current)
}

// admit validates a candidate and builds a patient without an arrival
// sequence.
func (s *Service) admit(c Candidate) (Patient, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Patient{}, ErrMissingName
	}
	switch {
	case c.faults.has(faultYearsMissing):
		return Patient{}, invalidAge("age in years is required")
	case c.faults.has(faultYearsNotWhole):
		return Patient{}, invalidAge("age in years must be a whole number")
	case c.faults.has(faultMonthsNotWhole):
		return Patient{}, invalidAge("age in months must be a whole number")
	}
	if c.AgeYears < 0 {
		return Patient{}, invalidAge("age in years must not be negative, got %d", c.AgeYears)
	}
	if c.AgeMonths < 0 || c.AgeMonths > 11 {
		return Patient{}, invalidAge("age in months must be between 0 and 11, got %d", c.AgeMonths)
	}
	level := Level(c.TriageLevel)
	if c.faults.has(faultTriageMissing) {
		return Patient{}, &ValidationError{Code: ErrInvalidTriage.Code, Message: "triage level is required"}
	}
	if c.faults.has(faultTriageNotWhole) || !level.Valid() {
		return Patient{}, ErrInvalidTriage
	}

	requested, unknown := ParseFlags(c.Flags)
	if len(unknown) > 0 {
		s.logger.Warn().Strs("flags", unknown).Msg("ignoring unknown priority flags")
	}
	flags := Normalize(c.AgeYears, c.AgeMonths, requested)
	if flags != requested {
		s.logger.Debug().
			Str("requested", requested.String()).
			Str("kept", flags.String()).
			Msg("conflicting priority flags dropped")
	}

	return Patient{
		id:        uuid.New(),
		name:      name,
		ageYears:  c.AgeYears,
		ageMonths: c.AgeMonths,
		level:     level,
		flags:     flags,
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload any) {
	if s.pub == nil {
		return
	}
	size, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("count queue for event")
	}
	ev := websocket.Event{
		Type:      eventType,
		Topic:     s.topic,
		QueueSize: size,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", eventType).Msg("marshal event payload")
		} else {
			ev.Data = data
		}
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish queue event")
	}
}
