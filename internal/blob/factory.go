package blob

import (
	"context"
	"fmt"
	"os"
)

// Open selects a blob.Store implementation using environment variables.
//
//	ONTOSIM_BLOB_DRIVER: memory|fs|s3 (default memory)
//	ONTOSIM_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in internal/infra/blob/s3)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("ONTOSIM_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverMemory)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("ONTOSIM_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
