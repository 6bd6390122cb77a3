package cart

import (
	"fmt"
	"strings"

	"github.com/xenking/nilecart/internal/domain/money"
)

const (
	messageHeader   = "*NileCart Order Request - South Sudan*"
	messageGreeting = "Hello! I would like to place an order for the following items:"
	messagePayment  = "*Payment Method:* Cash on Delivery (COD)"
	messageClosing  = "Please confirm availability and estimated delivery time. Thank you!"
)

// FormatMessage renders the human-readable order request for s. It returns
// an empty string for an empty cart. addr may be nil.
func FormatMessage(s State, addr *DeliveryAddress) string {
	if s.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString(messageHeader + "\n\n")
	b.WriteString(messageGreeting + "\n\n")

	for i, l := range s.lines {
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, l.Name)
		fmt.Fprintf(&b, "   Category: %s\n", l.Category)
		fmt.Fprintf(&b, "   Price: %s\n", money.FormatUSD(l.Price))
		fmt.Fprintf(&b, "   Quantity: %d\n", l.Quantity)
		fmt.Fprintf(&b, "   Subtotal: %s\n\n", money.FormatUSD(l.Subtotal()))
	}

	fmt.Fprintf(&b, "*Total Amount: %s*\n\n", money.FormatUSD(s.Total()))

	if addr != nil {
		b.WriteString("*Delivery Address:*\n")
		fmt.Fprintf(&b, "Name: %s\n", addr.FullName)
		fmt.Fprintf(&b, "Phone: %s\n", addr.PhoneNumber)
		fmt.Fprintf(&b, "Address: %s\n", addr.Street)
		fmt.Fprintf(&b, "City: %s, %s\n", addr.City, addr.State)
		if addr.Landmark != "" {
			fmt.Fprintf(&b, "Landmark: %s\n", addr.Landmark)
		}
		b.WriteString("\n")
	}

	b.WriteString(messagePayment + "\n\n")
	b.WriteString(messageClosing)

	return b.String()
}

// EncodeMessage percent-encodes text for use as a single URI component.
// Unreserved characters (A-Z a-z 0-9 - _ . ! ~ * ' ( )) are kept; every
// other byte of the UTF-8 encoding becomes %XX. The result decodes with
// url.PathUnescape.
func EncodeMessage(text string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(text) * 3 / 2)
	for i := range len(text) {
		c := text[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
