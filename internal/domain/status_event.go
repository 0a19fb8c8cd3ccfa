package domain

import "time"

// StatusChangeEvent is one entry of a ticket's immutable status log.
// Sequence is the insert-order tiebreaker for events sharing a timestamp.
type StatusChangeEvent struct {
	ID         string
	TicketID   string
	Status     TicketStatus
	OccurredAt time.Time
	Sequence   int64
}
