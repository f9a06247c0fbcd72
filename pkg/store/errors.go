package store

import "fmt"

// StorageError indicates the underlying database could not complete a read
// or write. Callers on the write path of a live test run are expected to
// log and continue rather than abort the run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SchemaError indicates the store could not initialize its schema. It is
// fatal at Start time: no further operation on the store is meaningful.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ValidationError indicates malformed input to a write operation, rejected
// before reaching the database.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return &StorageError{Op: op, Err: err}
}
