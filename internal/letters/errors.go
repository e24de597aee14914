package letters

import "errors"

var (
	// ErrNoIdentifier reports a file name without the underscore separator.
	ErrNoIdentifier = errors.New("no identifier found")
	// ErrRecordNotFound reports an identifier with no matching record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrImportFailed reports a media import failure.
	ErrImportFailed = errors.New("media import failed")
	// ErrUpdateFailed reports a failure reading or writing the record's entries.
	ErrUpdateFailed = errors.New("record update failed")
	// ErrDuplicateIdentifier reports records sharing an identifier under the error policy.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrBatchInProgress reports that another run holds the batch lock.
	ErrBatchInProgress = errors.New("another import run is in progress")
)
