package sms

import (
	"bytes"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// MaxParts is the default limit of parts a long message is split into.
var MaxParts = 8

// EsmClassUDHI marks a short_message that starts with a user data header.
const EsmClassUDHI uint8 = 0x40

// ErrTooLong is returned when a text needs more than the allowed parts.
var ErrTooLong = errors.New("sms: message too long")

// Segment is one submit_sm worth of a message.
type Segment struct {
	EsmClass   uint8
	DataCoding uint8
	Message    []byte
}

// Split encodes text with the coding chosen by Coding and cuts it into
// segments that fit one short_message. Multi-part segments carry an 8-bit
// concatenation header with a random reference.
func Split(text string, maxParts int) ([]Segment, error) {
	return split(text, maxParts, byte(rand.Intn(0xff)+1))
}

func split(text string, maxParts int, ref byte) ([]Segment, error) {
	code := Coding(text)
	data := Encode(code, text)
	// the maximum length of a single message and of a part
	single, part := 160, 153
	if code != CodingDefault {
		single, part = 140, 134
	}
	if len(data) <= single {
		return []Segment{{DataCoding: code, Message: data}}, nil
	}
	var chunks [][]byte
	for len(data) > 0 {
		end := part
		if end > len(data) {
			end = len(data)
		} else {
			end = cut(code, data, end)
		}
		chunks = append(chunks, data[:end])
		data = data[end:]
	}
	if maxParts > 0 && len(chunks) > maxParts {
		return nil, ErrTooLong
	}
	if len(chunks) > 0xff {
		return nil, ErrTooLong
	}
	// the last field stores the part number, the penultimate the total,
	// and before it the reference shared by the whole group
	segments := make([]Segment, len(chunks))
	for i, chunk := range chunks {
		msg := make([]byte, 0, 6+len(chunk))
		msg = append(msg, 0x05, 0x00, 0x03, ref, byte(len(chunks)), byte(i+1))
		msg = append(msg, chunk...)
		segments[i] = Segment{EsmClass: EsmClassUDHI, DataCoding: code, Message: msg}
	}
	return segments, nil
}

// cut moves end back so an escape sequence or a surrogate pair stays whole.
func cut(code uint8, data []byte, end int) int {
	switch code {
	case CodingDefault:
		if data[end-1] == gsmEscape {
			// count the run of escapes; an odd run means the last one is open
			n := 0
			for i := end - 1; i >= 0 && data[i] == gsmEscape; i-- {
				n++
			}
			if n%2 == 1 {
				end--
			}
		}
	case CodingUCS2:
		end -= end % 2
		if hi := uint16(data[end-2])<<8 | uint16(data[end-1]); hi >= 0xD800 && hi < 0xDC00 {
			end -= 2
		}
	}
	return end
}

// Concat is the parsed concatenation header of a short message.
type Concat struct {
	Ref   uint16
	Total int
	Seq   int
}

// ParseUDH splits a short_message with a user data header into the
// concatenation element, if any, and the payload.
func ParseUDH(msg []byte) (c Concat, payload []byte, ok bool) {
	if len(msg) == 0 {
		return c, msg, false
	}
	n := int(msg[0]) + 1
	if n > len(msg) {
		return c, msg, false
	}
	header, payload := msg[1:n], msg[n:]
	for len(header) >= 2 {
		id, l := header[0], int(header[1])
		if 2+l > len(header) {
			break
		}
		v := header[2 : 2+l]
		switch {
		case id == 0x00 && l == 3:
			c, ok = Concat{Ref: uint16(v[0]), Total: int(v[1]), Seq: int(v[2])}, true
		case id == 0x08 && l == 4:
			c, ok = Concat{Ref: uint16(v[0])<<8 | uint16(v[1]), Total: int(v[2]), Seq: int(v[3])}, true
		}
		header = header[2+l:]
	}
	if ok && (c.Total == 0 || c.Seq == 0 || c.Seq > c.Total) {
		ok = false
	}
	return c, payload, ok
}

type assemblyKey struct {
	from string
	ref  uint16
}

type assembly struct {
	parts   [][]byte
	have    int
	updated time.Time
}

// Assembler joins the parts of concatenated mobile originated messages.
type Assembler struct {
	// MaxAge drops groups not completed in time. Zero keeps them forever.
	MaxAge time.Duration

	mu     sync.Mutex
	groups map[assemblyKey]*assembly
}

// Add stores one part sent by from. It returns the joined payload and true
// once every part of the group has arrived.
func (a *Assembler) Add(from string, c Concat, payload []byte) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	if a.groups == nil {
		a.groups = make(map[assemblyKey]*assembly)
	}
	a.prune(now)
	key := assemblyKey{from: from, ref: c.Ref}
	g, ok := a.groups[key]
	if !ok || len(g.parts) != c.Total {
		g = &assembly{parts: make([][]byte, c.Total)}
		a.groups[key] = g
	}
	if g.parts[c.Seq-1] == nil {
		g.have++
	}
	g.parts[c.Seq-1] = append([]byte{}, payload...)
	g.updated = now
	if g.have < c.Total {
		return nil, false
	}
	delete(a.groups, key)
	return bytes.Join(g.parts, nil), true
}

// Pending returns the number of incomplete groups.
func (a *Assembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

func (a *Assembler) prune(now time.Time) {
	if a.MaxAge <= 0 {
		return
	}
	for k, g := range a.groups {
		if now.Sub(g.updated) > a.MaxAge {
			delete(a.groups, k)
		}
	}
}
