package model

import (
	"fmt"
	"time"
)

// Mode is the submission target of an import.
type Mode string

const (
	ModeCreatePackets Mode = "create-packets"
	ModeSyncFreshmen  Mode = "sync-freshmen"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCreatePackets, ModeSyncFreshmen:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

type ImportStatus string

const (
	ImportStatusUploaded   ImportStatus = "UPLOADED"
	ImportStatusIgnored    ImportStatus = "IGNORED"
	ImportStatusEmpty      ImportStatus = "EMPTY"
	ImportStatusSubmitting ImportStatus = "SUBMITTING"
	ImportStatusSubmitted  ImportStatus = "SUBMITTED"
	ImportStatusRejected   ImportStatus = "REJECTED"
	ImportStatusFailed     ImportStatus = "FAILED"
)

// Terminal reports whether no further transition is expected.
func (s ImportStatus) Terminal() bool {
	switch s {
	case ImportStatusUploaded, ImportStatusSubmitting:
		return false
	}
	return true
}

type Import struct {
	ID           int64        `json:"id" db:"id"`
	FileName     string       `json:"file_name" db:"file_name"`
	S3Path       string       `json:"s3_path" db:"s3_path"`
	Mode         Mode         `json:"mode" db:"mode"`
	StartDate    string       `json:"start_date,omitempty" db:"start_date"`
	Status       ImportStatus `json:"status" db:"status"`
	RecordCount  int          `json:"record_count" db:"record_count"`
	SkippedCount int          `json:"skipped_count" db:"skipped_count"`
	HTTPStatus   int          `json:"http_status,omitempty" db:"http_status"`
	ErrorMessage *string      `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}
