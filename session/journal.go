package session

import (
	"time"

	"smppgw/pdu"
)

// TransactionRecord describes one completed outbound transaction.
type TransactionRecord struct {
	SessionID string
	SystemID  string
	Command   pdu.CommandID
	Sequence  uint32
	Status    pdu.Status
	Err       string
	Started   time.Time
	Duration  time.Duration
}

// Journal receives a record for every outbound transaction, successful or
// not. Record runs on the caller's goroutine and should not block long.
type Journal interface {
	Record(TransactionRecord)
}
