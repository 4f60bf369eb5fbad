// Package blob exposes the blob storage contract and the constructors for its
// backends. Packages outside internal/blob depend on this package rather than
// on internal/infra/blob directly.
package blob

import (
	"ontosim/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverMemory     = core.DriverMemory
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
)

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = core.ErrNotFound
	// ErrExists reports a write to an occupied key.
	ErrExists = core.ErrExists
)
