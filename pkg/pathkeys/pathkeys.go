// Package pathkeys implements the boundary transform between DB-stored
// rooted paths and provider-level object keys.
//
// Stored paths carry the root marker prefix; provider keys never do. The
// transform is applied exactly once per direction, at the service boundary -
// drivers only ever see provider keys. Double application in either
// direction is an error, not a no-op, so mixed-up paths fail loudly.
package pathkeys

import (
	"fmt"
	"strings"
)

// RootMarker prefixes every DB-internal path.
const RootMarker = "imaginary://"

// ToProviderKey strips the root marker from a stored path. Fails when the
// marker is absent: the input was already a provider key.
func ToProviderKey(storedPath string) (string, error) {
	if !strings.HasPrefix(storedPath, RootMarker) {
		return "", fmt.Errorf("path %q has no root marker; already a provider key?", storedPath)
	}
	return strings.TrimPrefix(storedPath, RootMarker), nil
}

// ToStoredPath adds the root marker to a provider key. Fails when the marker
// is already present: the input was already a stored path.
func ToStoredPath(providerKey string) (string, error) {
	if strings.HasPrefix(providerKey, RootMarker) {
		return "", fmt.Errorf("key %q already carries the root marker", providerKey)
	}
	return RootMarker + providerKey, nil
}

// IsStoredPath reports whether s carries the root marker.
func IsStoredPath(s string) bool {
	return strings.HasPrefix(s, RootMarker)
}
