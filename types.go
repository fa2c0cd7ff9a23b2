// File: scray/properties/types.go
package properties

import (
	"cmp"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

// String declares a string property.
func String(name string) *Property[string, string] { return Identity[string](name) }

// Int declares an int property. Stored strings such as "25" or "0x19" are
// converted on read.
func Int(name string) *Property[int, int] { return Identity[int](name) }

// Int64 declares an int64 property.
func Int64(name string) *Property[int64, int64] { return Identity[int64](name) }

// Float64 declares a float64 property.
func Float64(name string) *Property[float64, float64] { return Identity[float64](name) }

// Bool declares a bool property. Accepts the strconv.ParseBool spellings.
func Bool(name string) *Property[bool, bool] { return Identity[bool](name) }

// Duration declares a property stored as a duration string ("1m30s") and
// used as a time.Duration.
func Duration(name string) *Property[string, time.Duration] {
	return NewProperty(name,
		func(d time.Duration) (string, error) { return d.String(), nil },
		time.ParseDuration,
	)
}

// StringList declares a property stored as a comma separated string and
// used as a slice. Elements are trimmed, empty elements dropped.
func StringList(name string) *Property[string, []string] {
	return NewProperty(name,
		func(v []string) (string, error) { return strings.Join(v, ","), nil },
		func(s string) ([]string, error) {
			var out []string
			for _, part := range strings.Split(s, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out, nil
		},
	)
}

// URL declares a property stored as a string and used as a parsed URL.
func URL(name string) *Property[string, *url.URL] {
	return NewProperty(name,
		func(u *url.URL) (string, error) {
			if u == nil {
				return "", fmt.Errorf("nil URL")
			}
			return u.String(), nil
		},
		func(s string) (*url.URL, error) {
			if len(s) > 2048 {
				return nil, fmt.Errorf("URL too long: %d bytes", len(s))
			}
			return url.Parse(s)
		},
	)
}

// Range accepts values in the closed interval [lo, hi].
func Range[T cmp.Ordered](lo, hi T) func(T) bool {
	return func(v T) bool { return v >= lo && v <= hi }
}

// Min accepts values >= lo.
func Min[T cmp.Ordered](lo T) func(T) bool {
	return func(v T) bool { return v >= lo }
}

// NonEmpty accepts strings that are not blank.
func NonEmpty(s string) bool { return strings.TrimSpace(s) != "" }

// OneOf accepts only the listed values.
func OneOf[T comparable](allowed ...T) func(T) bool {
	return func(v T) bool { return slices.Contains(allowed, v) }
}

// Matches accepts strings matching the regular expression. It panics if the
// pattern does not compile, like regexp.MustCompile.
func Matches(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return re.MatchString
}

// All accepts values satisfying every constraint.
func All[T any](constraints ...func(T) bool) func(T) bool {
	return func(v T) bool {
		for _, c := range constraints {
			if c != nil && !c(v) {
				return false
			}
		}
		return true
	}
}
