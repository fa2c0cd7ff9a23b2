// FILE: scray/properties/bootstrap_test.go
package properties

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapDiscovery(t *testing.T) {
	host := String("client.host").WithDefault("default.local")

	writeFile := func(t *testing.T, dir, content string) string {
		t.Helper()
		path := filepath.Join(dir, DefaultPropertyFile)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	// isolated keeps the host environment out of discovery
	isolated := func(t *testing.T) BootstrapOptions {
		t.Helper()
		t.Setenv(DefaultPropertyFileEnv, "")
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_DIRS", t.TempDir())
		opts := DefaultBootstrapOptions("scray-test")
		opts.Args = nil
		opts.UseCurrentDir = false
		return opts
	}

	resolve := func(t *testing.T, opts BootstrapOptions) Resolution {
		t.Helper()
		r := New(WithBootstrap(opts))
		require.NoError(t, r.Register(host))
		require.NoError(t, r.Advance(PhaseConfig))
		require.NoError(t, r.Advance(PhaseUse))
		res, err := r.Explain("client.host")
		require.NoError(t, err)
		return res
	}

	t.Run("CLIFlag", func(t *testing.T) {
		opts := isolated(t)
		path := writeFile(t, t.TempDir(), "client.host=flag.local\n")
		t.Setenv(DefaultPropertyFileEnv, writeFile(t, t.TempDir(), "client.host=env.local\n"))
		opts.Args = []string{"--verbose", "--scray-properties", path}

		res := resolve(t, opts)
		assert.Equal(t, "flag.local", res.Value)
		assert.Equal(t, "file:"+path, res.Source)

		opts.Args = []string{"--scray-properties=" + path}
		assert.Equal(t, path, opts.ExplicitPath())
	})

	t.Run("EnvVar", func(t *testing.T) {
		opts := isolated(t)
		path := writeFile(t, t.TempDir(), "client.host=env.local\n")
		t.Setenv(DefaultPropertyFileEnv, path)
		opts.Resources = fstest.MapFS{DefaultPropertyFile: {Data: []byte("client.host=resource.local\n")}}

		assert.Equal(t, "env.local", resolve(t, opts).Value)
	})

	t.Run("ExplicitPathMustExist", func(t *testing.T) {
		opts := isolated(t)
		t.Setenv(DefaultPropertyFileEnv, filepath.Join(t.TempDir(), "missing.properties"))

		r := New(WithBootstrap(opts))
		err := r.Advance(PhaseConfig)
		assert.ErrorIs(t, err, ErrStoreInit)
		assert.Equal(t, PhaseConfig, r.Phase())
		assert.Empty(t, r.Stores())
	})

	t.Run("Resource", func(t *testing.T) {
		opts := isolated(t)
		opts.Resources = fstest.MapFS{DefaultPropertyFile: {Data: []byte("client.host=resource.local\n")}}
		opts.SearchPaths = []string{t.TempDir()}
		writeFile(t, opts.SearchPaths[0], "client.host=search.local\n")

		res := resolve(t, opts)
		assert.Equal(t, "resource.local", res.Value)
		assert.Equal(t, "resource:"+DefaultPropertyFile, res.Source)
	})

	t.Run("SearchPaths", func(t *testing.T) {
		opts := isolated(t)
		empty, dir := t.TempDir(), t.TempDir()
		opts.SearchPaths = []string{empty, dir}
		path := writeFile(t, dir, "client.host=search.local\n")

		res := resolve(t, opts)
		assert.Equal(t, "search.local", res.Value)
		assert.Equal(t, "file:"+path, res.Source)
	})

	t.Run("XDGConfigHome", func(t *testing.T) {
		opts := isolated(t)
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)
		appDir := filepath.Join(xdg, "scray-test")
		require.NoError(t, os.MkdirAll(appDir, 0755))
		writeFile(t, appDir, "client.host=xdg.local\n")

		assert.Equal(t, "xdg.local", resolve(t, opts).Value)
	})

	t.Run("NothingFound", func(t *testing.T) {
		opts := isolated(t)
		res := resolve(t, opts)
		assert.True(t, res.Defaulted())
	})

	t.Run("UserStoresOverride", func(t *testing.T) {
		opts := isolated(t)
		opts.Resources = fstest.MapFS{DefaultPropertyFile: {Data: []byte("client.host=resource.local\n")}}

		r, err := NewBuilder().
			WithBootstrap(opts).
			Register(host).
			WithStores(NewMemoryStore("user", map[string]any{"client.host": "user.local"})).
			Build()
		require.NoError(t, err)
		assert.Equal(t, "user.local", MustGet(r, host))
		require.Len(t, r.Stores(), 2)
		assert.Equal(t, "resource:"+DefaultPropertyFile, storeName(r.Stores()[0]))
	})
}

func TestXDGConfigPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/home/u/.cfg")
	t.Setenv("XDG_CONFIG_DIRS", "/a"+string(os.PathListSeparator)+"/b")
	assert.Equal(t, []string{"/home/u/.cfg/app", "/a/app", "/b/app"}, getXDGConfigPaths("app"))

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_DIRS", "")
	t.Setenv("HOME", "/home/u")
	assert.Equal(t, []string{"/home/u/.config/app", "/etc/xdg/app", "/etc/app"}, getXDGConfigPaths("app"))
}
