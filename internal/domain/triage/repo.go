package triage

import (
	"context"
)

// QueueRepository stores admitted patients in insertion order.
type QueueRepository interface {
	Append(ctx context.Context, p Patient) error
	List(ctx context.Context) ([]Patient, error)
	Count(ctx context.Context) (int, error)
	MaxArrival(ctx context.Context) (int, error)
	Replace(ctx context.Context, patients []Patient) error
	Clear(ctx context.Context) error
}
