package job

import "time"

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Trigger records what started a refresh run.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Run is one pass of the refresh job over the supported currencies.
type Run struct {
	ID               int64      `json:"id"`
	Trigger          Trigger    `json:"trigger"`
	Status           Status     `json:"status"`
	Requested        int        `json:"requested"`
	Updated          int64      `json:"updated"`
	Failed           int        `json:"failed"`
	FailedCurrencies []string   `json:"failed_currencies,omitempty"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}
