package models

import "errors"

// Record-level errors shared across packages
var (
	ErrNoRecords        = errors.New("no ETL records found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
