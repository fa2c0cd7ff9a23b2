// FILE: scray/properties/store_test.go
package properties

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	seed := map[string]any{"a": 1}
	m := NewMemoryStore("", seed)
	seed["a"] = 2

	v, ok := m.Get(String("a"))
	require.True(t, ok)
	assert.Equal(t, 1, v, "seed must be copied")

	require.NoError(t, m.Put(String("b"), "x"))
	m.Delete("a")
	assert.Equal(t, map[string]any{"b": "x"}, m.Values())

	assert.Equal(t, "memory", m.String())
	assert.Equal(t, "memory:cli", NewMemoryStore("cli", nil).String())
}

func TestEnvStore(t *testing.T) {
	t.Setenv("APP_CLIENT_MAX_CONNECTIONS", "25")
	t.Setenv("APP_CLIENT_HOST", "env.local")

	maxConns := Int("client.max-connections")
	host := String("client.host")
	unset := String("client.unset").WithDefault("d")

	env := NewEnvStore("APP_")
	assert.Equal(t, "APP_CLIENT_MAX_CONNECTIONS", env.Variable("client.max-connections"))
	assert.Equal(t, "env:APP_", env.String())

	r := newUseRegistry(t, []Descriptor{maxConns, host, unset}, env)
	assert.Equal(t, 25, MustGet(r, maxConns))
	assert.Equal(t, "env.local", MustGet(r, host))
	assert.Equal(t, "d", MustGet(r, unset))

	// The environment is read on every lookup
	t.Setenv("APP_CLIENT_HOST", "changed.local")
	assert.Equal(t, "changed.local", MustGet(r, host))

	// Read-only
	assert.ErrorIs(t, Set(r, host, "x", true), ErrUnsupportedWrite)

	t.Run("OversizedValueIgnored", func(t *testing.T) {
		t.Setenv("BIG_VALUE", strings.Repeat("x", MaxValueSize+1))
		_, ok := NewEnvStore("BIG_").Get(String("value"))
		assert.False(t, ok)
	})

	t.Run("CustomTransform", func(t *testing.T) {
		t.Setenv("custom__client__host", "custom")
		store := NewEnvStoreWithTransform(func(name string) string {
			return "custom__" + strings.ReplaceAll(name, ".", "__")
		})
		v, ok := store.Get(String("client.host"))
		require.True(t, ok)
		assert.Equal(t, "custom", v)
		assert.Equal(t, "env", store.String())
	})
}

func TestArgsStore(t *testing.T) {
	t.Run("Forms", func(t *testing.T) {
		store := NewArgsStore([]string{
			"positional",
			"--server.port", "9090",
			"--server.host=example.org",
			"--debug",
			"--",
			"--verbose",
			"--scray-properties", "/etc/app.properties",
		}, "--scray-properties")
		require.NoError(t, store.Init())

		assert.Equal(t, map[string]any{
			"server.port": "9090",
			"server.host": "example.org",
			"debug":       "true",
			"verbose":     "true",
		}, store.values)
		assert.Equal(t, "args", store.String())
	})

	t.Run("InvalidKey", func(t *testing.T) {
		store := NewArgsStore([]string{"--bad key=1"})
		assert.ErrorIs(t, store.Init(), ErrInvalidName)
	})

	t.Run("Resolution", func(t *testing.T) {
		port := Int("server.port").WithDefault(80)
		debug := Bool("debug").WithDefault(false)
		r := newUseRegistry(t, []Descriptor{port, debug},
			NewMemoryStore("", map[string]any{"server.port": 8080}),
			NewArgsStore([]string{"--server.port=9090", "--debug"}))

		assert.Equal(t, 9090, MustGet(r, port))
		assert.True(t, MustGet(r, debug))
	})
}

func TestDotEnvStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.env")
	content := `# comment
APP_CLIENT_HOST=dotenv.local
export APP_CLIENT_PORT=7000
APP_CLIENT_NAME="quoted value"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	host := String("client.host")
	port := Int("client.port")
	name := String("client.name")

	store := NewDotEnvStore(path, "APP_")
	assert.Equal(t, "APP_CLIENT_HOST", store.Variable("client.host"))
	r := newUseRegistry(t, []Descriptor{host, port, name}, store)

	assert.Equal(t, "dotenv.local", MustGet(r, host))
	assert.Equal(t, 7000, MustGet(r, port))
	assert.Equal(t, "quoted value", MustGet(r, name))

	res, err := r.Explain("client.host")
	require.NoError(t, err)
	assert.Equal(t, "dotenv:"+path, res.Source)

	t.Run("Missing", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.env")
		assert.Error(t, NewDotEnvStore(missing, "").Init())
		assert.NoError(t, NewDotEnvStore(missing, "", Optional()).Init())
	})
}
