// FILE: scray/properties/internal/schema/schema_test.go
package schema

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scray/properties"
)

const clientSchema = `
[[property]]
name = "client.host"
type = "string"
description = "server host"
pattern = "^[a-z.]+$"

[[property]]
name = "client.port"
type = "int"
default = 8080
min = 1
max = 65535

[[property]]
name = "client.timeout"
type = "duration"
default = "30s"
min = "1s"

[[property]]
name = "client.mode"
enum = ["fast", "safe"]
default = "safe"

[[property]]
name = "client.tags"
type = "list"
default = ["a", "b"]

[[property]]
name = "client.endpoint"
type = "url"

[[property]]
name = "client.ratio"
type = "float"
default = 0.5
max = 1

[[property]]
name = "client.verbose"
type = "bool"
default = false
`

func TestParse(t *testing.T) {
	ds, err := Parse([]byte(clientSchema))
	require.NoError(t, err)
	require.Len(t, ds, 8)
	assert.Equal(t, "client.host", ds[0].Name())
	assert.Equal(t, "server host", ds[0].Description())

	r := properties.New()
	require.NoError(t, r.Register(ds...))
	require.NoError(t, r.Advance(properties.PhaseConfig))
	require.NoError(t, r.Push(properties.NewMemoryStore("test", map[string]any{
		"client.host":     "example.org",
		"client.port":     "9090",
		"client.endpoint": "https://example.org/api",
	})))
	require.NoError(t, r.Advance(properties.PhaseUse))

	host, err := properties.GetByName[string](r, "client.host")
	require.NoError(t, err)
	assert.Equal(t, "example.org", host)

	port, err := properties.GetByName[int64](r, "client.port")
	require.NoError(t, err)
	assert.Equal(t, int64(9090), port)

	timeout, err := properties.GetByName[time.Duration](r, "client.timeout")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)

	tags, err := properties.GetByName[[]string](r, "client.tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	ratio, err := properties.GetByName[float64](r, "client.ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, ratio)

	mode, err := r.Value("client.mode")
	require.NoError(t, err)
	assert.Equal(t, "safe", mode)
}

func TestConstraintsFromSchema(t *testing.T) {
	ds, err := Parse([]byte(clientSchema))
	require.NoError(t, err)

	r := properties.New()
	require.NoError(t, r.Register(ds...))
	require.NoError(t, r.Advance(properties.PhaseConfig))
	require.NoError(t, r.Push(properties.NewMemoryStore("", map[string]any{
		"client.host":     "example.org",
		"client.endpoint": "https://example.org",
	})))
	require.NoError(t, r.Advance(properties.PhaseUse))

	tests := []struct {
		name string
		raw  any
		ok   bool
	}{
		{"client.port", "0", false},
		{"client.port", 70000, false},
		{"client.port", 443, true},
		{"client.timeout", "500ms", false},
		{"client.timeout", "2m", true},
		{"client.mode", "slow", false},
		{"client.mode", "fast", true},
		{"client.host", "UPPER", false},
		{"client.ratio", 1.5, false},
	}
	for _, tt := range tests {
		err := r.SetRaw(tt.name, tt.raw, true)
		if tt.ok {
			assert.NoError(t, err, "%s=%v", tt.name, tt.raw)
		} else {
			assert.ErrorIs(t, err, properties.ErrConstraintViolation, "%s=%v", tt.name, tt.raw)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"UnknownType", "[[property]]\nname = \"a\"\ntype = \"complex\""},
		{"MissingName", "[[property]]\ntype = \"int\""},
		{"UnknownKey", "[[property]]\nname = \"a\"\ncolour = \"red\""},
		{"DefaultOutOfRange", "[[property]]\nname = \"a\"\ntype = \"int\"\nmin = 10\ndefault = 5"},
		{"DefaultNotInEnum", "[[property]]\nname = \"a\"\nenum = [\"x\"]\ndefault = \"y\""},
		{"MinAboveMax", "[[property]]\nname = \"a\"\ntype = \"float\"\nmin = 2\nmax = 1"},
		{"BadPattern", "[[property]]\nname = \"a\"\npattern = \"[\""},
		{"PatternOnInt", "[[property]]\nname = \"a\"\ntype = \"int\"\npattern = \"x\""},
		{"BoundsOnBool", "[[property]]\nname = \"a\"\ntype = \"bool\"\nmax = 1"},
		{"BadDefault", "[[property]]\nname = \"a\"\ntype = \"duration\"\ndefault = \"soon\""},
		{"FractionalIntBound", "[[property]]\nname = \"a\"\ntype = \"int\"\nmin = 1.5"},
		{"EmptyIntDefault", "[[property]]\nname = \"a\"\ntype = \"int\"\ndefault = \"\""},
		{"EmptyBoolDefault", "[[property]]\nname = \"a\"\ntype = \"bool\"\ndefault = \"\""},
		{"Syntax", "[[property]\nname = \"a\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.schema))
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(clientSchema), 0644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, ds, 8)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
