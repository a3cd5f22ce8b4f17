package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyEmail indicates the email address is empty
	ErrEmptyEmail = errors.New("email address cannot be empty")

	// ErrInvalidFormat indicates the email address is not well formed
	ErrInvalidFormat = errors.New("email address is not valid")

	// ErrFakeDomain indicates the email address uses a throwaway domain
	ErrFakeDomain = errors.New("email address uses a blocked domain")
)

// fakeDomains are throwaway or placeholder domains that must never receive
// transactional mail
var fakeDomains = []string{
	"example.com",
	"example.org",
	"example.net",
	"test.com",
	"fake.com",
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"throwaway.email",
	"invalid",
	"localhost",
}

// emailRegex is deliberately loose; the mail provider does the final word
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailValidator handles email address validation
type EmailValidator struct {
	blockFakeDomains bool
}

// NewEmailValidator creates a new email validator instance
func NewEmailValidator(blockFakeDomains bool) *EmailValidator {
	return &EmailValidator{blockFakeDomains: blockFakeDomains}
}

// Validate validates an email address.
// Returns the sanitized (lowercased, trimmed) address and an error if invalid.
func (v *EmailValidator) Validate(email string) (string, error) {
	sanitized := v.Sanitize(email)

	if sanitized == "" {
		return "", ErrEmptyEmail
	}

	if !emailRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if v.blockFakeDomains && v.IsFakeDomain(sanitized) {
		return "", ErrFakeDomain
	}

	return sanitized, nil
}

// Sanitize lowercases and trims an email address
func (v *EmailValidator) Sanitize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsFakeDomain reports whether the address' domain is on the blocklist
func (v *EmailValidator) IsFakeDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}

	domain := strings.ToLower(email[at+1:])
	for _, fake := range fakeDomains {
		if domain == fake || strings.HasSuffix(domain, "."+fake) {
			return true
		}
	}

	return false
}

// FilterValid splits addresses into deliverable and rejected sets.
// Used by the mail endpoints to drop bad recipients instead of failing the
// whole send.
func (v *EmailValidator) FilterValid(emails []string) (valid []string, rejected map[string]error) {
	rejected = make(map[string]error)
	for _, email := range emails {
		sanitized, err := v.Validate(email)
		if err != nil {
			rejected[email] = err
			continue
		}
		valid = append(valid, sanitized)
	}
	return valid, rejected
}

// IsValid is a convenience method that returns true if the address is valid
func (v *EmailValidator) IsValid(email string) bool {
	_, err := v.Validate(email)
	return err == nil
}

// MustValidate validates and panics if invalid (use for testing only)
func (v *EmailValidator) MustValidate(email string) string {
	sanitized, err := v.Validate(email)
	if err != nil {
		panic(fmt.Sprintf("invalid email address %s: %v", email, err))
	}
	return sanitized
}
