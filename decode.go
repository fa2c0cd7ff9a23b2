// FILE: scray/properties/decode.go
package properties

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// decodeStorage coerces a raw store value into the storage type S. File and
// environment stores hand out strings, TOML and JSON stores hand out numbers
// of their own width, so the conversion is weakly typed. Conversions that
// would drop data are rejected with ErrStorageFormat.
func decodeStorage[S any](raw any) (S, error) {
	if s, ok := raw.(S); ok {
		return s, nil
	}

	var out S
	if raw == nil {
		return out, fmt.Errorf("nil value")
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "toml",
		WeaklyTypedInput: true,
		DecodeHook:       StorageDecodeHook(),
	})
	if err != nil {
		return out, fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return out, fmt.Errorf("cannot decode %T into %s: %w", raw, reflect.TypeFor[S](), err)
	}
	return out, nil
}

// StorageDecodeHook returns the composite decode hook used for storage values
// and for Scan. It is exported for tools that decode raw values the same way.
func StorageDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		lossyConversionHookFunc(),
		stringToNetIPHookFunc(),
		stringToURLHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// lossyConversionHookFunc rejects what weak decoding would otherwise accept
// by dropping data: an empty string into a number or bool, a fractional or
// non-finite float into an integer, and a negative number into an unsigned
// integer.
func lossyConversionHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		target := t.Kind()
		signed := target >= reflect.Int && target <= reflect.Int64
		unsigned := target >= reflect.Uint && target <= reflect.Uintptr
		isFloat := target == reflect.Float32 || target == reflect.Float64
		if !signed && !unsigned && !isFloat && target != reflect.Bool {
			return data, nil
		}

		v := reflect.ValueOf(data)
		switch f.Kind() {
		case reflect.String:
			if strings.TrimSpace(v.String()) == "" {
				return nil, fmt.Errorf("%w: empty string is not a valid %s", ErrStorageFormat, t)
			}
		case reflect.Float32, reflect.Float64:
			if !signed && !unsigned {
				return data, nil
			}
			x := v.Float()
			if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
				return nil, fmt.Errorf("%w: %v is not a whole number", ErrStorageFormat, x)
			}
			if unsigned && x < 0 {
				return nil, fmt.Errorf("%w: negative value %v for %s", ErrStorageFormat, x, t)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if unsigned && v.Int() < 0 {
				return nil, fmt.Errorf("%w: negative value %d for %s", ErrStorageFormat, v.Int(), t)
			}
		}
		return data, nil
	}
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}
		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

// stringToURLHookFunc handles url.URL and *url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// Scan resolves every registered property under prefix and decodes the
// resulting tree into target, a non-nil pointer to a struct or map. Fields
// are matched with the "toml" struct tag against the name segments after
// the prefix. Only legal in PhaseUse.
func (r *Registry) Scan(prefix string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("scan target must be non-nil pointer, got %T", target)
	}

	prefix = strings.TrimSuffix(prefix, ".")

	r.mu.Lock()
	if err := r.checkPhase("scan", prefix, PhaseUse); err != nil {
		r.mu.Unlock()
		return err
	}
	nested := make(map[string]any)
	for name, d := range r.props {
		rel := name
		if prefix != "" {
			if !strings.HasPrefix(name, prefix+".") {
				continue
			}
			rel = strings.TrimPrefix(name, prefix+".")
		}
		res, err := r.resolveLocked(d)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		setNestedValue(nested, rel, res.Value)
	}
	r.mu.Unlock()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "toml",
		WeaklyTypedInput: true,
		DecodeHook:       StorageDecodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(nested); err != nil {
		return fmt.Errorf("decode failed for prefix %q: %w", prefix, err)
	}
	return nil
}
