// FILE: scray/properties/bootstrap.go
package properties

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Conventional names used by DefaultBootstrapOptions.
const (
	DefaultPropertyFileEnv = "SCRAY_PROPERTIES"
	DefaultPropertyFile    = "scray.properties"
)

// BootstrapOptions configures the default store discovery run when a
// registry enters PhaseConfig. The first match wins:
//  1. an explicit path from CLIFlag in Args, or from EnvVar (a local file,
//     which must exist)
//  2. ResourceName inside Resources (a packaged resource)
//  3. ResourceName in SearchPaths, the working directory and XDG config dirs
//
// Finding nothing is not an error.
type BootstrapOptions struct {
	// EnvVar names the environment variable holding an explicit file path
	EnvVar string

	// CLIFlag is checked in Args, e.g. "--scray-properties"
	CLIFlag string

	// Args are the command-line arguments searched for CLIFlag
	Args []string

	// Resources holds packaged resources, e.g. an embed.FS
	Resources fs.FS

	// ResourceName is the conventional file name
	ResourceName string

	// SearchPaths are extra directories searched for ResourceName
	SearchPaths []string

	// AppName selects the XDG sub-directory; empty disables the XDG search
	AppName string

	// UseCurrentDir searches the working directory
	UseCurrentDir bool

	// FileOptions are applied to the discovered store
	FileOptions []FileOption
}

// DefaultBootstrapOptions returns the conventional discovery settings.
func DefaultBootstrapOptions(appName string) BootstrapOptions {
	return BootstrapOptions{
		EnvVar:        DefaultPropertyFileEnv,
		CLIFlag:       "--scray-properties",
		Args:          os.Args[1:],
		ResourceName:  DefaultPropertyFile,
		AppName:       appName,
		UseCurrentDir: true,
	}
}

// ExplicitPath returns the path named by the CLI flag or the env var.
func (o BootstrapOptions) ExplicitPath() string {
	if o.CLIFlag != "" {
		for i, arg := range o.Args {
			if arg == o.CLIFlag && i+1 < len(o.Args) {
				return o.Args[i+1]
			}
			if strings.HasPrefix(arg, o.CLIFlag+"=") {
				return strings.TrimPrefix(arg, o.CLIFlag+"=")
			}
		}
	}
	if o.EnvVar != "" {
		if path := os.Getenv(o.EnvVar); path != "" {
			return path
		}
	}
	return ""
}

// discover returns the store to push, or nil if nothing was found.
func (o BootstrapOptions) discover() (Store, error) {
	if path := o.ExplicitPath(); path != "" {
		return NewFileStore(path, o.FileOptions...), nil
	}

	if o.ResourceName == "" {
		return nil, nil
	}

	if o.Resources != nil {
		_, err := fs.Stat(o.Resources, o.ResourceName)
		if err == nil {
			return NewResourceStore(o.Resources, o.ResourceName, o.FileOptions...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	for _, dir := range o.searchPaths() {
		path := filepath.Join(dir, o.ResourceName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return NewFileStore(path, o.FileOptions...), nil
		}
	}
	return nil, nil
}

func (o BootstrapOptions) searchPaths() []string {
	paths := append([]string(nil), o.SearchPaths...)
	if o.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			paths = append(paths, cwd)
		}
	}
	if o.AppName != "" {
		paths = append(paths, getXDGConfigPaths(o.AppName)...)
	}
	return paths
}

// getXDGConfigPaths returns XDG-compliant config search paths
func getXDGConfigPaths(appName string) []string {
	var paths []string

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}

	return paths
}
