package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scray/properties"
)

const testSchema = `
[[property]]
name = "client.host"
description = "server host"

[[property]]
name = "client.port"
type = "int"
default = 8080
min = 1
max = 65535
`

type fixture struct {
	dir    string
	schema string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, schema: filepath.Join(dir, "schema.toml")}
	require.NoError(t, os.WriteFile(f.schema, []byte(testSchema), 0644))
	return f
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(args ...string) (string, string, error) {
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"validate", "dump", "explain", "set"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}

	logLevel := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, logLevel)
	assert.Equal(t, "warn", logLevel.DefValue)
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		f := newFixture(t)
		file := f.write(t, "app.toml", "[client]\nhost = \"example.org\"\n")

		out, _, err := execute("validate", "--schema", f.schema, "--file", file)
		require.NoError(t, err)
		assert.Contains(t, out, "ok: 2 properties resolved")
	})

	t.Run("MissingValue", func(t *testing.T) {
		f := newFixture(t)

		out, _, err := execute("validate", "--schema", f.schema)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 properties failed validation")
		assert.Contains(t, out, "error:")
		assert.Contains(t, out, "client.host")
	})

	t.Run("BadStoredValue", func(t *testing.T) {
		f := newFixture(t)
		file := f.write(t, "app.properties", "client.host=example.org\nclient.port=many\n")

		_, _, err := execute("validate", "--schema", f.schema, "--file", file)
		require.Error(t, err)
	})

	t.Run("EmptyNumericValue", func(t *testing.T) {
		f := newFixture(t)

		out, _, err := execute("validate", "--schema", f.schema,
			"--set", "client.host=h", "--set", "client.port=")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 properties failed validation")
		assert.Contains(t, out, "client.port")
	})

	t.Run("JSON", func(t *testing.T) {
		f := newFixture(t)

		out, _, err := execute("validate", "--schema", f.schema, "--set", "client.host=h", "--format", "json")
		require.NoError(t, err)

		var result ValidationResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.True(t, result.Valid)
		assert.Equal(t, 2, result.Properties)
	})

	t.Run("SchemaRequired", func(t *testing.T) {
		_, _, err := execute("validate")
		assert.Error(t, err)
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := execute("validate", "--schema", f.schema, "--format", "xml")
		assert.Error(t, err)
	})

	t.Run("InvalidSet", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := execute("validate", "--schema", f.schema, "--set", "client.host")
		assert.Error(t, err)
	})
}

func TestExplain(t *testing.T) {
	f := newFixture(t)
	file := f.write(t, "app.yaml", "client:\n  host: example.org\n  port: 9000\n")

	out, _, err := execute("explain", "--schema", f.schema, "--file", file,
		"--set", "client.port=9100", "client.host", "client.port")
	require.NoError(t, err)
	assert.Contains(t, out, "client.host = example.org (file:"+file+")")
	assert.Contains(t, out, "client.port = 9100 (args)")

	_, _, err = execute("explain", "--schema", f.schema, "--file", file, "client.unknown")
	assert.ErrorIs(t, err, properties.ErrDescriptorMissing)
}

func TestEnvironmentStores(t *testing.T) {
	f := newFixture(t)
	dotenv := f.write(t, "app.env", "APP_CLIENT_HOST=dotenv.example.org\nAPP_CLIENT_PORT=7000\n")

	out, _, err := execute("explain", "--schema", f.schema, "--dotenv", dotenv,
		"--env-prefix", "APP_", "--format", "json", "client.host", "client.port")
	require.NoError(t, err)

	var explained []Explanation
	require.NoError(t, json.Unmarshal([]byte(out), &explained))
	require.Len(t, explained, 2)
	assert.Equal(t, "dotenv.example.org", explained[0].Value)
	assert.Equal(t, "dotenv:"+dotenv, explained[0].Source)
	assert.Equal(t, "7000", explained[1].Value)

	t.Setenv("APP_CLIENT_HOST", "env.example.org")
	out, _, err = execute("explain", "--schema", f.schema, "--dotenv", dotenv,
		"--env-prefix", "APP_", "client.host")
	require.NoError(t, err)
	assert.Contains(t, out, "client.host = env.example.org (env:APP_)")
}

func TestDump(t *testing.T) {
	f := newFixture(t)
	file := f.write(t, "app.json", `{"client": {"host": "example.org"}}`)

	out, _, err := execute("dump", "--schema", f.schema, "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "[client]")
	assert.Contains(t, out, `host = "example.org"`)
	assert.Contains(t, out, "port = 8080")

	out, _, err = execute("dump", "--schema", f.schema, "--file", file, "--format", "json")
	require.NoError(t, err)
	var explained []Explanation
	require.NoError(t, json.Unmarshal([]byte(out), &explained))
	require.Len(t, explained, 2)
	assert.Equal(t, "client.port", explained[1].Name)
	assert.True(t, explained[1].Default)
	assert.Equal(t, properties.SourceDefault, explained[1].Source)

	out, _, err = execute("dump", "--schema", f.schema, "--file", file, "--debug")
	require.NoError(t, err)
	assert.Contains(t, out, "Phase: use")
	assert.Contains(t, out, "file:"+file)
}

func TestSet(t *testing.T) {
	f := newFixture(t)
	base := f.write(t, "base.toml", "[client]\nhost = \"example.org\"\n")
	target := filepath.Join(f.dir, "override.toml")

	out, _, err := execute("set", "--schema", f.schema, "--file", base, "--target", target, "client.port", "7000")
	require.NoError(t, err)
	assert.Contains(t, out, "client.port = 7000")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port = 7000")

	out, _, err = execute("explain", "--schema", f.schema, "--file", base, "--file", target, "client.port")
	require.NoError(t, err)
	assert.Contains(t, out, "client.port = 7000 (file:"+target+")")

	_, _, err = execute("set", "--schema", f.schema, "--file", base, "--target", target, "client.port", "0")
	assert.ErrorIs(t, err, properties.ErrConstraintViolation)

	_, _, err = execute("set", "--schema", f.schema, "--file", base, "--target", target,
		"--no-overwrite", "client.port", "7100")
	assert.ErrorIs(t, err, properties.ErrValueExists)
}

func TestMetricsOutput(t *testing.T) {
	f := newFixture(t)

	_, stderr, err := execute("validate", "--schema", f.schema, "--set", "client.host=h", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, stderr, "properties_resolutions_total")
	assert.Contains(t, stderr, "properties_phase 2")
}
