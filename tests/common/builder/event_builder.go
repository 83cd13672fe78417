//go:build unit || e2e

package builder

import (
	"time"

	domevent "ticketing/internal/domain/event"

	"github.com/google/uuid"
)

type EventBuilder struct {
	ID         uuid.UUID
	Name       string
	PriceCents int64
	Capacity   int32
	Available  int32
	StartDate  time.Time
	EndDate    time.Time
	Status     domevent.Status
}

func NewEventBuilder() *EventBuilder {
	now := time.Now().UTC().Truncate(time.Second)
	return &EventBuilder{
		ID:         uuid.New(),
		Name:       "Summer Jazz Festival",
		PriceCents: 500000,
		Capacity:   100,
		Available:  100,
		StartDate:  now.Add(48 * time.Hour),
		EndDate:    now.Add(54 * time.Hour),
		Status:     domevent.StatusActive,
	}
}

func (e *EventBuilder) With(mutate func(*EventBuilder)) *EventBuilder {
	mutate(e)
	return e
}

func (e *EventBuilder) BuildDomain() (*domevent.Event, error) {
	return domevent.ReconstructEvent(
		e.ID, e.Name, e.PriceCents,
		e.Capacity, e.Available,
		e.StartDate, e.EndDate,
		e.Status,
	)
}
