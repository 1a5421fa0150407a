// Package enums holds the string-backed value sets stored in the database and
// carried on the wire.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](valid []T, raw, kind string) (T, error) {
	if v := T(raw); slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
