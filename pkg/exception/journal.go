package exception

import "errors"

// Journal errors
var (
	ErrJournalNilDB     = errors.New("journal: nil database client")
	ErrJournalQueueSize = errors.New("journal: invalid queue size")
)
