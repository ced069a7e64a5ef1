package models

import (
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      string    `json:"status"` // draft, published, ended

	TicketTypes []TicketType `json:"ticket_types,omitempty"`
}

// HasEnded reports whether ticket sales are closed. Events without an
// explicit end date close at their start date.
func (e *Event) HasEnded(now time.Time) bool {
	end := e.EndDate
	if end.IsZero() {
		end = e.StartDate
	}
	return !end.After(now)
}

// TicketTypeByID returns the ticket type with the given id, or nil.
func (e *Event) TicketTypeByID(id string) *TicketType {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].ID == id {
			return &e.TicketTypes[i]
		}
	}
	return nil
}

type TicketType struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"` // smallest currency unit
	Quota     int    `json:"quota"`
	SoldCount int    `json:"sold_count"`
}

// AvailableQuota never goes negative even if the backend briefly reports
// sold_count above quota while a rollback settles.
func (t *TicketType) AvailableQuota() int {
	left := t.Quota - t.SoldCount
	if left < 0 {
		return 0
	}
	return left
}
