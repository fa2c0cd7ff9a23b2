// FILE: scray/properties/dotenvstore.go
package properties

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DotEnvStore is a read-only store backed by a .env file. Property names are
// mapped to variable names the same way EnvStore maps them, so one naming
// scheme covers both the process environment and the file.
type DotEnvStore struct {
	path      string
	cfg       fileConfig
	transform EnvTransformFunc
	values    map[string]string
}

// NewDotEnvStore creates a store for the .env file at path. WithFormat and
// Persist do not apply.
func NewDotEnvStore(path, prefix string, opts ...FileOption) *DotEnvStore {
	return &DotEnvStore{
		path:      path,
		cfg:       newFileConfig(opts),
		transform: DefaultEnvTransform(prefix),
	}
}

// Init reads and parses the file.
func (e *DotEnvStore) Init() error {
	data, err := readLocalFile(e.path, e.cfg.maxSize)
	if err != nil {
		if e.cfg.optional && errors.Is(err, fs.ErrNotExist) {
			e.values = make(map[string]string)
			return nil
		}
		return err
	}
	values, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse env file '%s': %w", e.path, err)
	}
	e.values = values
	return nil
}

// Get returns the value of the variable mapped from d's name.
func (e *DotEnvStore) Get(d Descriptor) (any, bool) {
	v, ok := e.values[e.transform(d.Name())]
	if !ok || len(v) > MaxValueSize {
		return nil, false
	}
	return v, true
}

// Variable returns the variable name used for a property.
func (e *DotEnvStore) Variable(name string) string {
	return e.transform(name)
}

func (e *DotEnvStore) String() string { return "dotenv:" + e.path }
