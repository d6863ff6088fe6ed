package models

import "time"

type ScheduleType string

const (
	ScheduleNow   ScheduleType = "now"
	ScheduleLater ScheduleType = "later"
)

// EmailStatusToSend marks alerts waiting for the external mailer.
const EmailStatusToSend = "tosend"

// EmailAlert is a schedulable notification row. The mailer that consumes
// "tosend" rows lives outside this service.
type EmailAlert struct {
	UID          string
	FromAddr     string
	ToAddr       string
	Subject      string
	Text         string
	HTML         string
	ScheduleType ScheduleType
	// ScheduleDate is nil for immediate alerts.
	ScheduleDate *time.Time
	Status       string
}
