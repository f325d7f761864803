package internal

import "strings"

// NormalizeIdentity trims and lower-cases an identity. The empty string
// means the identity is unusable.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
