// Package whatsapp builds click-to-chat links that open a conversation with
// the store's WhatsApp number and a prefilled message.
package whatsapp

import (
	"strings"

	"github.com/go-faster/errors"
)

// BaseURL is the click-to-chat endpoint.
const BaseURL = "https://wa.me/"

// ErrNoNumber is returned when no destination number is configured.
var ErrNoNumber = errors.New("whatsapp number not configured")

// Linker produces links to one destination number.
type Linker struct {
	number string
}

// NewLinker creates a Linker for number. Everything except digits is
// dropped, so "+211 912-345-678" and "211912345678" are equivalent.
func NewLinker(number string) *Linker {
	return &Linker{number: digits(number)}
}

// Number returns the normalized destination number.
func (l *Linker) Number() string {
	return l.number
}

// Link returns the chat URL carrying encoded, which must already be
// percent-encoded.
func (l *Linker) Link(encoded string) (string, error) {
	if l.number == "" {
		return "", ErrNoNumber
	}
	if encoded == "" {
		return BaseURL + l.number, nil
	}
	return BaseURL + l.number + "?text=" + encoded, nil
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
