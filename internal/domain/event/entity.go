package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotActive        = errors.New("event is not active")
	ErrAlreadyStarted   = errors.New("event has already started")
	ErrInvalidCapacity  = errors.New("capacity must be positive")
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrInvalidWindow    = errors.New("event start must be before end")
	ErrAvailableBounds  = errors.New("available must be between 0 and capacity")
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusDraft     Status = "DRAFT"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

// Event はチケット販売対象の公演。コアが書き換えるのは available のみで、
// その更新は必ずリポジトリの条件付き UPDATE を通す（アプリ層で read-modify-write しない）。
type Event struct {
	id         uuid.UUID
	name       string
	priceCents int64
	capacity   int32
	available  int32
	startDate  time.Time
	endDate    time.Time
	status     Status
}

func NewEvent(name string, priceCents int64, capacity int32, startDate, endDate time.Time) (*Event, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if priceCents < 0 {
		return nil, ErrNegativePrice
	}
	if !startDate.Before(endDate) {
		return nil, ErrInvalidWindow
	}

	return &Event{
		id:         uuid.New(),
		name:       name,
		priceCents: priceCents,
		capacity:   capacity,
		available:  capacity,
		startDate:  startDate,
		endDate:    endDate,
		status:     StatusActive,
	}, nil
}

func ReconstructEvent(
	id uuid.UUID,
	name string,
	priceCents int64,
	capacity, available int32,
	startDate, endDate time.Time,
	status Status,
) (*Event, error) {
	if available < 0 || available > capacity {
		return nil, ErrAvailableBounds
	}
	return &Event{
		id:         id,
		name:       name,
		priceCents: priceCents,
		capacity:   capacity,
		available:  available,
		startDate:  startDate,
		endDate:    endDate,
		status:     status,
	}, nil
}

// CheckBookable は予約受付可能かを判定する。在庫数はここでは見ない
// （同時予約下では条件付き UPDATE だけが信頼できるため）。
func (e *Event) CheckBookable(now time.Time) error {
	if e.status != StatusActive {
		return ErrNotActive
	}
	if !now.Before(e.startDate) {
		return ErrAlreadyStarted
	}
	return nil
}

func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.startDate)
}

func (e *Event) HasEnded(now time.Time) bool {
	return now.After(e.endDate)
}

func (e *Event) ID() uuid.UUID        { return e.id }
func (e *Event) Name() string         { return e.name }
func (e *Event) PriceCents() int64    { return e.priceCents }
func (e *Event) Capacity() int32      { return e.capacity }
func (e *Event) Available() int32     { return e.available }
func (e *Event) StartDate() time.Time { return e.startDate }
func (e *Event) EndDate() time.Time   { return e.endDate }
func (e *Event) Status() Status       { return e.status }
