package ingest

// ParseError means the uploaded file passed validation but could not be read
// into records.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "CSV parsing failed: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed store call. Op names the call
// ("bulk insert", "insert user", "fetch users").
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "database " + e.Op + " failed: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
