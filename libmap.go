package gstview

import (
	_ "embed"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Platform tags used in the library table.
const (
	PlatformLinux   = "linux"
	PlatformOSX     = "osx"
	PlatformWindows = "windows"
)

// LibPathEnv names a directory searched before the loader's default path.
const LibPathEnv = "GSTVIEW_LIB_PATH"

//go:embed libmap.yaml
var libmapYAML []byte

// LibraryMapping maps a logical library name to a file name on one
// platform.
type LibraryMapping struct {
	DLL    string `yaml:"dll"`
	OS     string `yaml:"os"`
	Target string `yaml:"target"`
}

// LibraryTable is an ordered list of mappings.
type LibraryTable struct {
	Entries []LibraryMapping `yaml:"dllmap"`
}

// ParseLibraryTable decodes a YAML table with a top-level dllmap list.
func ParseLibraryTable(data []byte) (*LibraryTable, error) {
	var t LibraryTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "parse library table")
	}
	for i, e := range t.Entries {
		if e.DLL == "" || e.OS == "" || e.Target == "" {
			return nil, errors.Errorf("library table entry %d: dll, os and target are required", i)
		}
	}
	return &t, nil
}

// Lookup returns the target of the first entry matching logical and
// platform exactly.
func (t *LibraryTable) Lookup(logical, platform string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, e := range t.Entries {
		if e.DLL == logical && e.OS == platform {
			return e.Target, true
		}
	}
	return "", false
}

// Resolve returns the mapped name, or logical unchanged when the table has
// no entry for it.
func (t *LibraryTable) Resolve(logical, platform string) string {
	if target, ok := t.Lookup(logical, platform); ok {
		return target
	}
	return logical
}

var (
	libTableOnce sync.Once
	libTable     *LibraryTable
)

// DefaultLibraryTable returns the embedded table. It is parsed on first use
// and kept for the life of the process.
func DefaultLibraryTable() *LibraryTable {
	libTableOnce.Do(func() {
		t, err := ParseLibraryTable(libmapYAML)
		if err != nil {
			log.Error("Embedded library table: %v", err)
			t = &LibraryTable{}
		}
		libTable = t
	})
	return libTable
}

// Resolve maps a logical library name for platform using the embedded
// table.
func Resolve(logical, platform string) string {
	return DefaultLibraryTable().Resolve(logical, platform)
}

// ResolveLibraryName maps a logical library name for the running platform.
func ResolveLibraryName(logical string) string {
	return Resolve(logical, CurrentPlatform())
}

// CurrentPlatform returns the platform tag of the running OS. Everything
// that is neither macOS nor Windows is treated as linux.
func CurrentPlatform() string {
	return platformTag(runtime.GOOS)
}

func platformTag(goos string) string {
	switch goos {
	case "darwin", "ios":
		return PlatformOSX
	case "windows":
		return PlatformWindows
	default:
		return PlatformLinux
	}
}

// usesPrefixConvention reports whether library names on platform may or
// may not carry a "lib" prefix depending on the toolchain that built them.
func usesPrefixConvention(platform string) bool {
	return platform == PlatformWindows
}

// TogglePrefix strips a leading "lib" (any case) or adds one.
func TogglePrefix(name string) string {
	if len(name) >= 3 && strings.EqualFold(name[:3], "lib") {
		return name[3:]
	}
	return "lib" + name
}

// NativeLoader loads native libraries by logical name.
type NativeLoader struct {
	Platform  string                             // Platform tag (default: CurrentPlatform())
	Table     *LibraryTable                      // Mapping table (default: DefaultLibraryTable())
	Open      func(name string) (uintptr, error) // Loader (default: the OS dynamic loader)
	SearchDir string                             // Searched before the loader's default path
}

var (
	libraryPathMu sync.RWMutex
	libraryPath   string
)

// SetLibraryPath sets the directory searched first by loaders created with
// NewNativeLoader. GSTVIEW_LIB_PATH takes precedence.
func SetLibraryPath(dir string) {
	libraryPathMu.Lock()
	libraryPath = dir
	libraryPathMu.Unlock()
}

func searchDir() string {
	if dir := os.Getenv(LibPathEnv); dir != "" {
		return dir
	}
	libraryPathMu.RLock()
	defer libraryPathMu.RUnlock()
	return libraryPath
}

// NewNativeLoader returns a loader for the running platform.
func NewNativeLoader() *NativeLoader {
	return &NativeLoader{
		Platform:  CurrentPlatform(),
		Table:     DefaultLibraryTable(),
		Open:      openLibrary,
		SearchDir: searchDir(),
	}
}

// Load resolves logical through the table and opens it. If that fails on a
// platform where the "lib" prefix is a toolchain convention, the name with
// the prefix toggled is tried once. The returned name is the one that
// loaded. Failure is a *ResolutionError.
func (l *NativeLoader) Load(logical string) (uintptr, string, error) {
	platform := l.Platform
	if platform == "" {
		platform = CurrentPlatform()
	}
	table := l.Table
	if table == nil {
		table = DefaultLibraryTable()
	}
	open := l.Open
	if open == nil {
		open = openLibrary
	}

	resolved := table.Resolve(logical, platform)
	names := []string{resolved}
	if usesPrefixConvention(platform) {
		names = append(names, TogglePrefix(resolved))
	}

	rerr := &ResolutionError{Name: logical, Platform: platform}
	for _, name := range names {
		for _, candidate := range l.candidates(name) {
			rerr.Tried = append(rerr.Tried, candidate)
			h, err := open(candidate)
			if err == nil {
				if candidate != resolved {
					log.Debug("Loaded %s as %s", logical, candidate)
				}
				return h, candidate, nil
			}
			rerr.Err = err
		}
	}
	return 0, "", rerr
}

func (l *NativeLoader) candidates(name string) []string {
	if l.SearchDir == "" || filepath.IsAbs(name) {
		return []string{name}
	}
	return []string{filepath.Join(l.SearchDir, name), name}
}
