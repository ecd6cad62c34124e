package history

import "codeberg.org/mutker/acclogger/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("history_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("history_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("history_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("history_schema_migration_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed
	ErrRecordFailed = errors.ErrorCode("history_record_failed")
	ErrQueryFailed  = errors.ErrorCode("history_query_failed")
	ErrInvalidEntry = errors.ErrorCode("history_invalid_entry")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
