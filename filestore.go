// FILE: scray/properties/filestore.go
package properties

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	javaprops "github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// Supported file formats.
const (
	FormatAuto       = "auto"
	FormatTOML       = "toml"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatProperties = "properties"
)

// DefaultMaxFileSize bounds the size of a property file.
const DefaultMaxFileSize int64 = 10 << 20

// FileOption configures a FileStore or ResourceStore.
type FileOption func(*fileConfig)

type fileConfig struct {
	format   string
	maxSize  int64
	optional bool
	persist  bool
}

// WithFormat forces the file format instead of detecting it.
func WithFormat(format string) FileOption {
	return func(c *fileConfig) { c.format = format }
}

// WithMaxFileSize limits the accepted file size. Zero or less disables the limit.
func WithMaxFileSize(n int64) FileOption {
	return func(c *fileConfig) { c.maxSize = n }
}

// Optional makes a missing file load as an empty store instead of failing.
func Optional() FileOption {
	return func(c *fileConfig) { c.optional = true }
}

// Persist makes every Put rewrite the file atomically.
func Persist() FileOption {
	return func(c *fileConfig) { c.persist = true }
}

func newFileConfig(opts []FileOption) fileConfig {
	cfg := fileConfig{format: FormatAuto, maxSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FileStore is a writable store backed by a local file. Nested tables are
// flattened to dot-separated property names.
type FileStore struct {
	path    string
	cfg     fileConfig
	mu      sync.RWMutex
	format  string // resolved format of the last load
	values  map[string]any
	watcher *watcher
}

// NewFileStore creates a store for the file at path. Nothing is read until
// Init.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	return &FileStore{
		path:   path,
		cfg:    newFileConfig(opts),
		values: make(map[string]any),
	}
}

// Init loads the file.
func (f *FileStore) Init() error {
	return f.Reload()
}

// Reload reads the file again and replaces the held values. On error the
// previous values are kept.
func (f *FileStore) Reload() error {
	data, err := readLocalFile(f.path, f.cfg.maxSize)
	if err != nil {
		if f.cfg.optional && errors.Is(err, fs.ErrNotExist) {
			f.mu.Lock()
			f.values = make(map[string]any)
			f.mu.Unlock()
			return nil
		}
		return err
	}

	format := resolveFormat(f.cfg.format, f.path, data)
	values, err := parseContent(data, format)
	if err != nil {
		return fmt.Errorf("failed to parse %s file '%s': %w", format, f.path, err)
	}

	f.mu.Lock()
	f.format = format
	f.values = values
	f.mu.Unlock()
	return nil
}

// Get returns the value held under d's name.
func (f *FileStore) Get(d Descriptor) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[d.Name()]
	return v, ok
}

// Put stores value under d's name, and rewrites the file if the store was
// created with Persist.
func (f *FileStore) Put(d Descriptor, value any) error {
	f.mu.Lock()
	prev, existed := f.values[d.Name()]
	f.values[d.Name()] = value
	f.mu.Unlock()

	if !f.cfg.persist {
		return nil
	}
	if err := f.Save(); err != nil {
		f.mu.Lock()
		if existed {
			f.values[d.Name()] = prev
		} else {
			delete(f.values, d.Name())
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

// Save atomically writes the held values back to the file in its format.
func (f *FileStore) Save() error {
	f.mu.RLock()
	values := maps.Clone(f.values)
	format := f.format
	f.mu.RUnlock()

	if format == "" {
		format = resolveFormat(f.cfg.format, f.path, nil)
	}
	data, err := encodeContent(values, format)
	if err != nil {
		return fmt.Errorf("failed to marshal properties to %s: %w", format, err)
	}
	return atomicWriteFile(f.path, data)
}

// Values returns a copy of the held values.
func (f *FileStore) Values() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.values)
}

// Path returns the file path.
func (f *FileStore) Path() string { return f.path }

// Close stops the watcher, if any.
func (f *FileStore) Close() error {
	f.StopWatch()
	return nil
}

func (f *FileStore) String() string { return "file:" + f.path }

// ResourceStore is a read-only store backed by a file inside an fs.FS, such
// as an embed.FS packaged with the binary.
type ResourceStore struct {
	fsys   fs.FS
	name   string
	cfg    fileConfig
	values map[string]any
}

// NewResourceStore creates a store for the named file in fsys.
func NewResourceStore(fsys fs.FS, name string, opts ...FileOption) *ResourceStore {
	return &ResourceStore{
		fsys: fsys,
		name: name,
		cfg:  newFileConfig(opts),
	}
}

// Init reads and parses the resource.
func (r *ResourceStore) Init() error {
	data, err := fs.ReadFile(r.fsys, r.name)
	if err != nil {
		if r.cfg.optional && errors.Is(err, fs.ErrNotExist) {
			r.values = make(map[string]any)
			return nil
		}
		return fmt.Errorf("failed to read resource '%s': %w", r.name, err)
	}
	if r.cfg.maxSize > 0 && int64(len(data)) > r.cfg.maxSize {
		return fmt.Errorf("resource '%s' exceeds maximum size %d bytes", r.name, r.cfg.maxSize)
	}

	format := resolveFormat(r.cfg.format, r.name, data)
	values, err := parseContent(data, format)
	if err != nil {
		return fmt.Errorf("failed to parse %s resource '%s': %w", format, r.name, err)
	}
	r.values = values
	return nil
}

// Get returns the value held under d's name. Values are immutable after Init.
func (r *ResourceStore) Get(d Descriptor) (any, bool) {
	v, ok := r.values[d.Name()]
	return v, ok
}

func (r *ResourceStore) String() string { return "resource:" + r.name }

// readLocalFile reads path, enforcing the size limit.
func readLocalFile(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat property file '%s': %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("property file '%s' is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("property file '%s' exceeds maximum size %d bytes", path, maxSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open property file '%s': %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if maxSize > 0 {
		reader = io.LimitReader(file, maxSize)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read property file '%s': %w", path, err)
	}
	return data, nil
}

// resolveFormat picks the format: explicit option, then extension, then
// content sniffing. Java properties is the fallback.
func resolveFormat(format, path string, data []byte) string {
	if format != "" && format != FormatAuto {
		return format
	}
	if f := detectFileFormat(path); f != "" {
		return f
	}
	if data != nil {
		if f := detectFormatFromContent(data); f != "" {
			return f
		}
	}
	return FormatProperties
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".properties", ".props":
		return FormatProperties
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing. Every
// candidate must decode into a table, which rules out bare YAML scalars.
func detectFormatFromContent(data []byte) string {
	var table map[string]any
	if err := json.Unmarshal(data, &table); err == nil {
		return FormatJSON
	}
	table = nil
	if err := toml.Unmarshal(data, &table); err == nil {
		return FormatTOML
	}
	table = nil
	if err := yaml.Unmarshal(data, &table); err == nil && table != nil {
		return FormatYAML
	}
	return ""
}

// parseContent decodes data and flattens it to property names.
func parseContent(data []byte, format string) (map[string]any, error) {
	nested := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&nested); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
	case FormatProperties:
		loader := &javaprops.Loader{Encoding: javaprops.UTF8, DisableExpansion: true}
		p, err := loader.LoadBytes(data)
		if err != nil {
			return nil, err
		}
		flat := make(map[string]any, p.Len())
		for _, key := range p.Keys() {
			if v, ok := p.Get(key); ok {
				flat[key] = v
			}
		}
		return flat, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return flattenMap(nested, ""), nil
}

// encodeContent is the inverse of parseContent.
func encodeContent(values map[string]any, format string) ([]byte, error) {
	if format == FormatProperties {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		p := javaprops.NewProperties()
		p.DisableExpansion = true
		for _, k := range keys {
			if _, _, err := p.Set(k, fmt.Sprint(values[k])); err != nil {
				return nil, err
			}
		}
		var buf bytes.Buffer
		if _, err := p.Write(&buf, javaprops.UTF8); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	nested := make(map[string]any)
	for k, v := range values {
		setNestedValue(nested, k, v)
	}

	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(nested); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return json.MarshalIndent(nested, "", "  ")
	case FormatYAML:
		return yaml.Marshal(nested)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
