// Package models defines server-side data models persisted in the database.
package models

import "time"

// SyncStatus is the state of one sync attempt in the ledger.
type SyncStatus string

const (
	SyncStatusTodo  SyncStatus = "todo"
	SyncStatusDone  SyncStatus = "done"
	SyncStatusError SyncStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s SyncStatus) Terminal() bool {
	return s == SyncStatusDone || s == SyncStatusError
}

// SyncLogEntry is the durable record of one sync attempt.
type SyncLogEntry struct {
	// UID is fresh per attempt and never equal to BinaryUID.
	UID       string     `json:"uid"`
	BinaryUID string     `json:"binary_uid"`
	Checksum  string     `json:"checksum"`
	SyncDate  time.Time  `json:"sync_date"`
	Status    SyncStatus `json:"status"`
	// Action is free-form; only the "upload" prefix is inspected.
	Action   string `json:"action"`
	ErrorMsg string `json:"error_msg,omitempty"`
}
