package request

import (
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	EventID  uuid.UUID `json:"event_id" binding:"required"`
	Quantity int32     `json:"quantity" binding:"required,gt=0"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

func (r CancelBookingRequest) GetReason() string {
	if r.Reason == nil || *r.Reason == "" {
		return "cancelled by user"
	}
	return *r.Reason
}
