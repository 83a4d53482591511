package handlers

import "github.com/gofiber/fiber/v3"

// ErrSnapshotNotFound is returned when no snapshot has been fetched yet
var ErrSnapshotNotFound = fiber.NewError(fiber.StatusNotFound, "snapshot not found, run fetch first")

// ErrNoRecords is returned when the snapshot holds no records
var ErrNoRecords = fiber.NewError(fiber.StatusNotFound, "no ETL records found")
