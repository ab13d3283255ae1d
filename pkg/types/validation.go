package types

import (
	"regexp"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// IsValidUsername checks the account-name format: 1-50 characters,
// alphanumeric plus underscore and hyphen.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidRole reports whether a role is one of the two known roles.
func IsValidRole(role Role) bool {
	return role == RoleUser || role == RolePharmacist
}
