package triage

import (
	"context"
)

// MemoryRepo is a process-local QueueRepository. It is not safe for
// concurrent use; callers serialize access (see SessionStore).
type MemoryRepo struct {
	patients []Patient
	arrival  int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Append(_ context.Context, p Patient) error {
	r.patients = append(r.patients, p)
	if p.arrivalSeq > r.arrival {
		r.arrival = p.arrivalSeq
	}
	return nil
}

// List returns a copy of the queue in insertion order.
func (r *MemoryRepo) List(_ context.Context) ([]Patient, error) {
	out := make([]Patient, len(r.patients))
	copy(out, r.patients)
	return out, nil
}

func (r *MemoryRepo) Count(_ context.Context) (int, error) {
	return len(r.patients), nil
}

// MaxArrival is the highest arrival sequence handed out since the last
// Clear, or 0.
func (r *MemoryRepo) MaxArrival(_ context.Context) (int, error) {
	return r.arrival, nil
}

func (r *MemoryRepo) Replace(_ context.Context, patients []Patient) error {
	r.patients = make([]Patient, len(patients))
	copy(r.patients, patients)
	r.arrival = 0
	for _, p := range patients {
		if p.arrivalSeq > r.arrival {
			r.arrival = p.arrivalSeq
		}
	}
	return nil
}

func (r *MemoryRepo) Clear(_ context.Context) error {
	r.patients = nil
	r.arrival = 0
	return nil
}
