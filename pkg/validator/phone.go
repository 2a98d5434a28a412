package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates the number has too few or too many digits for E.164
	ErrInvalidLength = errors.New("phone number must have between 10 and 15 digits including country code")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// DefaultCountryCode is prepended to 10-digit national numbers (Mexico)
const DefaultCountryCode = "52"

// PhoneValidator normalizes international phone numbers to E.164 (+<digits>)
type PhoneValidator struct {
	countryCode string
}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{countryCode: DefaultCountryCode}
}

// NewPhoneValidatorWithCountry uses countryCode for numbers entered without one
func NewPhoneValidatorWithCountry(countryCode string) *PhoneValidator {
	return &PhoneValidator{countryCode: strings.TrimPrefix(countryCode, "+")}
}

// Validate validates a phone number
// Accepts: +52 55 1234 5678, 52-55-1234-5678, (55) 1234 5678, 0052 55 1234 5678
// Returns the E.164 form (+525512345678) and error if invalid
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	// National number without country code
	if len(sanitized) == 10 {
		sanitized = v.countryCode + sanitized
	}

	if len(sanitized) < 11 || len(sanitized) > 15 {
		return "", ErrInvalidLength
	}

	return "+" + sanitized, nil
}

// Sanitize removes separators and the international call prefix
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")
	phone = strings.ReplaceAll(phone, "+", "")
	phone = strings.ReplaceAll(phone, ".", "")

	// 00 is the international call prefix in most of the world
	phone = strings.TrimPrefix(phone, "00")

	return phone
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}

// WhatsAppAddress returns the number in the form WhatsApp APIs expect (digits, no plus)
func (v *PhoneValidator) WhatsAppAddress(phone string) (string, error) {
	e164, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(e164, "+"), nil
}
