// FILE: scray/properties/envstore.go
package properties

import (
	"os"
	"strings"
)

// MaxValueSize bounds a single environment or argument value.
const MaxValueSize = 1 << 20

// EnvTransformFunc converts a property name to an environment variable name
type EnvTransformFunc func(name string) string

// EnvStore is a read-only store looking up environment variables. The
// environment is consulted on every Get.
type EnvStore struct {
	prefix    string
	transform EnvTransformFunc
	lookup    func(string) (string, bool)
}

// NewEnvStore maps "client.max-connections" to PREFIX_CLIENT_MAX_CONNECTIONS.
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{
		prefix:    prefix,
		transform: DefaultEnvTransform(prefix),
		lookup:    os.LookupEnv,
	}
}

// NewEnvStoreWithTransform uses a custom name mapping.
func NewEnvStoreWithTransform(transform EnvTransformFunc) *EnvStore {
	return &EnvStore{
		transform: transform,
		lookup:    os.LookupEnv,
	}
}

// DefaultEnvTransform creates the default environment variable transformer:
// dots and dashes become underscores, everything is uppercased.
func DefaultEnvTransform(prefix string) EnvTransformFunc {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	return func(name string) string {
		env := strings.ToUpper(replacer.Replace(name))
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}

// Init is a no-op.
func (e *EnvStore) Init() error { return nil }

// Get returns the environment value for d. Oversized values are ignored.
func (e *EnvStore) Get(d Descriptor) (any, bool) {
	value, ok := e.lookup(e.transform(d.Name()))
	if !ok || len(value) > MaxValueSize {
		return nil, false
	}
	return value, true
}

// Variable returns the environment variable name used for a property.
func (e *EnvStore) Variable(name string) string {
	return e.transform(name)
}

func (e *EnvStore) String() string {
	if e.prefix == "" {
		return "env"
	}
	return "env:" + e.prefix
}
