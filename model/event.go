package model

import "time"

type EventType string

const (
	EventComplaintCreated  EventType = "complaint.created"
	EventComplaintAnalyzed EventType = "complaint.analyzed"
	EventComplaintStatus   EventType = "complaint.status"
	EventComplaintMedia    EventType = "complaint.media"
)

// Event is pushed to dashboard subscribers whenever a complaint changes.
type Event struct {
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaintId"`
	Status      Status    `json:"status,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	At          time.Time `json:"at"`
}
