// Package audit reports settled voucher submissions to external sinks. Every
// sink is best-effort: a failing recorder is logged by the screen and never
// changes what the crew member sees.
package audit

import (
	"time"

	"github.com/google/uuid"

	"voucherdesk/internal/voucher"
)

const (
	EventType     = "voucher.submission.settled"
	SchemaVersion = "1"
)

// Event is the wire and storage shape of one settled submission.
type Event struct {
	EventID      string    `json:"event_id" bson:"event_id"`
	SessionID    string    `json:"session_id" bson:"session_id"`
	SubmissionID string    `json:"submission_id" bson:"submission_id"`
	Kind         string    `json:"kind" bson:"kind"`
	Step         string    `json:"step" bson:"step"`
	Message      string    `json:"message,omitempty" bson:"message,omitempty"`
	Seats        []string  `json:"seats,omitempty" bson:"seats,omitempty"`
	FlightNumber string    `json:"flight_number" bson:"flight_number"`
	FlightDate   string    `json:"flight_date" bson:"flight_date"`
	Aircraft     string    `json:"aircraft" bson:"aircraft"`
	CrewID       string    `json:"crew_id" bson:"crew_id"`
	StartedAt    time.Time `json:"started_at" bson:"started_at"`
	SettledAt    time.Time `json:"settled_at" bson:"settled_at"`
}

// NewEvent flattens a screen report. The crew name is not carried; the crew
// id identifies the requester.
func NewEvent(report voucher.Report) Event {
	return Event{
		EventID:      uuid.NewString(),
		SessionID:    report.ScreenID,
		SubmissionID: report.SubmissionID,
		Kind:         string(report.Outcome.Kind),
		Step:         report.Outcome.Step,
		Message:      report.Outcome.Message,
		Seats:        append([]string(nil), report.Outcome.Seats...),
		FlightNumber: report.Request.FlightNumber,
		FlightDate:   report.Request.FlightDate,
		Aircraft:     string(report.Request.AircraftType),
		CrewID:       report.Request.CrewID,
		StartedAt:    report.StartedAt,
		SettledAt:    report.SettledAt,
	}
}

// PartitionKey groups events of the same flight and date.
func (e Event) PartitionKey() string {
	return e.FlightNumber + "|" + e.FlightDate
}
