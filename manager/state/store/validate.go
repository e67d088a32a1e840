package store

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/vnetkit/bindstate/api"
)

// checkID validates an object ID or a component of a composite key. Keys
// holding the separator would let prefix scans of one port reach the rows
// of another.
func checkID(field, value string, maxLen int) error {
	if value == "" {
		return errors.Wrapf(ErrInvalidID, "%s must not be empty", field)
	}
	return checkKeyPart(field, value, maxLen)
}

// checkKeyPart is checkID for key components that may be empty, such as
// the host of an unbound port.
func checkKeyPart(field, value string, maxLen int) error {
	if strings.Contains(value, api.KeySeparator) {
		return errors.Wrapf(ErrInvalidID, "%s must not contain NUL characters", field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return errors.Wrapf(ErrInvalidID, "%s is longer than %d characters", field, maxLen)
	}
	return nil
}
