package cart

import (
	"strings"

	"github.com/go-faster/errors"
)

// ErrAddressIncomplete is returned when a required delivery field is blank.
var ErrAddressIncomplete = errors.New("delivery address incomplete")

// DeliveryAddress is where a checked-out order should be delivered.
// Landmark is optional; every other field is required.
type DeliveryAddress struct {
	FullName    string
	PhoneNumber string
	Street      string
	City        string
	State       string
	Landmark    string
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (a DeliveryAddress) Trimmed() DeliveryAddress {
	return DeliveryAddress{
		FullName:    strings.TrimSpace(a.FullName),
		PhoneNumber: strings.TrimSpace(a.PhoneNumber),
		Street:      strings.TrimSpace(a.Street),
		City:        strings.TrimSpace(a.City),
		State:       strings.TrimSpace(a.State),
		Landmark:    strings.TrimSpace(a.Landmark),
	}
}

// Validate returns an error wrapping ErrAddressIncomplete that names every
// blank required field.
func (a DeliveryAddress) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"phoneNumber", a.PhoneNumber},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrAddressIncomplete, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}
