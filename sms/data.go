package sms

import "time"

// Received describes a delivered and decoded mobile originated message.
type Received struct {
	From string // from which number
	To   string // to which number
	Text string // message text (already decoded)
	Addr string // link identifier
}

// SendMessage is an outgoing message and, after sending, the message ids
// the SMSC assigned to its parts.
type SendMessage struct {
	From string
	To   string
	Text string
	IDs  []string
}

// Receipt is a parsed delivery receipt.
type Receipt struct {
	ID     string    // message identifier
	Sub    int       // number of SMS parts
	Dlvrd  int       // number of delivered parts
	Submit time.Time // message send date
	Done   time.Time // date when the message reached its final state
	Stat   string    // message_state in string form
	Err    int       // network_error_code
	Text   string    // leading characters of the original text
	Addr   string    // link identifier
}
