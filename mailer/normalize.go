package mailer

import (
	"encoding/json"
	"regexp"
	"strings"

	"studio-admin/apperrors"
)

// addressPattern requires a local part, an @ and a multi-label domain whose
// last label is at least two characters.
var addressPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// AddressList tolerates the recipient shapes the API accepts: a single
// address, a comma-joined string, an array of strings, or null.
type AddressList []string

func (a *AddressList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AddressList(splitAddresses(single))
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = AddressList(many)
	return nil
}

func splitAddresses(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Normalize trims every address and drops empty entries, preserving order.
// It performs no syntax validation and no de-duplication.
func Normalize(addresses []string) []string {
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// ValidateAddress checks one address against the syntax pattern.
func ValidateAddress(addr string) error {
	if !addressPattern.MatchString(addr) {
		return apperrors.Validation("invalid email address: %s", addr)
	}
	return nil
}

// ValidateAddresses normalizes and validates a human-supplied list. Any
// malformed address rejects the whole list.
func ValidateAddresses(addresses []string) ([]string, error) {
	normalized := Normalize(addresses)
	for _, addr := range normalized {
		if err := ValidateAddress(addr); err != nil {
			return nil, err
		}
	}
	return normalized, nil
}
