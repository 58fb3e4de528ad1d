package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as a UUID in any of the accepted forms.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
