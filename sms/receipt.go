package sms

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// reReceipt describes the format of a delivery receipt.
var reReceipt = regexp.MustCompile(`^\s*id:(\S+) sub:(\d+) dlvrd:(\d+) submit date:(\d+) done date:(\d+) stat:(\w+) err:(\d+)(?: [Tt]ext:(.*?))?\s*$`)

const (
	receiptTimeFormat        = `0601021504` // format for representing date in the receipt
	receiptTimeSecondsFormat = `060102150405`
)

// ErrNotReceipt is returned for short messages that are not receipts.
var ErrNotReceipt = errors.New("sms: not a delivery receipt")

// Receipt states.
const (
	StatDelivered     = "DELIVRD"
	StatExpired       = "EXPIRED"
	StatDeleted       = "DELETED"
	StatUndeliverable = "UNDELIV"
	StatAccepted      = "ACCEPTD"
	StatUnknown       = "UNKNOWN"
	StatRejected      = "REJECTD"
)

// ParseReceipt parses the short_message of a delivery receipt.
func ParseReceipt(text string) (*Receipt, error) {
	parts := reReceipt.FindStringSubmatch(text)
	if parts == nil {
		return nil, ErrNotReceipt
	}
	r := &Receipt{ID: parts[1], Stat: parts[6], Text: parts[8]}
	var err error
	if r.Sub, err = strconv.Atoi(parts[2]); err != nil {
		return nil, fmt.Errorf("receipt sub: %w", err)
	}
	if r.Dlvrd, err = strconv.Atoi(parts[3]); err != nil {
		return nil, fmt.Errorf("receipt dlvrd: %w", err)
	}
	if r.Submit, err = parseReceiptTime(parts[4]); err != nil {
		return nil, fmt.Errorf("receipt submit date: %w", err)
	}
	if r.Done, err = parseReceiptTime(parts[5]); err != nil {
		return nil, fmt.Errorf("receipt done date: %w", err)
	}
	if r.Err, err = strconv.Atoi(parts[7]); err != nil {
		return nil, fmt.Errorf("receipt err: %w", err)
	}
	return r, nil
}

func parseReceiptTime(s string) (time.Time, error) {
	if len(s) == len(receiptTimeSecondsFormat) {
		return time.Parse(receiptTimeSecondsFormat, s)
	}
	return time.Parse(receiptTimeFormat, s)
}

// FormatReceipt renders r in the receipt format. Text is cut to 20
// characters.
func FormatReceipt(r Receipt) string {
	text := []rune(r.Text)
	if len(text) > 20 {
		text = text[:20]
	}
	return fmt.Sprintf("id:%s sub:%03d dlvrd:%03d submit date:%s done date:%s stat:%s err:%03d text:%s",
		r.ID, r.Sub, r.Dlvrd, r.Submit.Format(receiptTimeFormat), r.Done.Format(receiptTimeFormat),
		r.Stat, r.Err, string(text))
}
