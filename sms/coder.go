package sms

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// data_coding values.
const (
	CodingDefault uint8 = 0 // GSM 03.38, one septet per byte
	CodingLatin1  uint8 = 3
	CodingBinary  uint8 = 4
	CodingUCS2    uint8 = 8
)

const gsmEscape = 0x1B

// gsmBasic is the GSM 03.38 default alphabet indexed by code.
var gsmBasic = []rune("@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞ\x1bÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà")

// gsmExtension holds characters sent as escape plus code.
var gsmExtension = map[byte]rune{
	0x0A: '\f',
	0x14: '^',
	0x28: '{',
	0x29: '}',
	0x2F: '\\',
	0x3C: '[',
	0x3D: '~',
	0x3E: ']',
	0x40: '|',
	0x65: '€',
}

var (
	utf8Gsm    = make(map[rune]byte, len(gsmBasic))
	utf8GsmExt = make(map[rune]byte, len(gsmExtension))
)

func init() {
	for i, r := range gsmBasic {
		if i != gsmEscape {
			utf8Gsm[r] = byte(i)
		}
	}
	for b, r := range gsmExtension {
		utf8GsmExt[r] = b
	}
}

// Coding returns CodingDefault when every character of text has a GSM
// 03.38 representation and CodingUCS2 otherwise.
func Coding(text string) uint8 {
	for _, r := range text {
		if _, ok := utf8Gsm[r]; ok {
			continue
		}
		if _, ok := utf8GsmExt[r]; ok {
			continue
		}
		return CodingUCS2
	}
	return CodingDefault
}

// Decode converts short message bytes in the given data_coding to a string.
func Decode(code uint8, text []byte) string {
	switch code {
	case CodingUCS2:
		es, _, _ := transform.Bytes(
			unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), text)
		return string(es)
	case CodingLatin1:
		es, _, _ := transform.Bytes(charmap.Windows1252.NewDecoder(), text)
		return string(es)
	case CodingDefault:
		var result strings.Builder
		for i := 0; i < len(text); i++ {
			c := text[i]
			if c == gsmEscape && i+1 < len(text) {
				i++
				if r, ok := gsmExtension[text[i]]; ok {
					result.WriteRune(r)
				} else {
					result.WriteRune(' ')
				}
				continue
			}
			if int(c) < len(gsmBasic) && c != gsmEscape {
				result.WriteRune(gsmBasic[c])
				continue
			}
			result.WriteRune('?')
		}
		return result.String()
	default:
		return string(text)
	}
}

// Encode converts text to short message bytes in the given data_coding.
// Characters without a GSM representation become '?'.
func Encode(code uint8, text string) []byte {
	switch code {
	case CodingUCS2:
		enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
		es, _, _ := transform.Bytes(enc, []byte(text))
		return es
	case CodingLatin1:
		es, _, _ := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte(text))
		return es
	case CodingDefault:
		var result bytes.Buffer
		for _, r := range text {
			if b, ok := utf8Gsm[r]; ok {
				result.WriteByte(b)
				continue
			}
			if b, ok := utf8GsmExt[r]; ok {
				result.WriteByte(gsmEscape)
				result.WriteByte(b)
				continue
			}
			result.WriteByte('?')
		}
		return result.Bytes()
	default:
		return []byte(text)
	}
}
