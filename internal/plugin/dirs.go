package plugin

import (
	"os"
	"path/filepath"
	"strings"
)

// PathEnv overrides the system plugin directory with a list of directories.
const PathEnv = "QUIRE_PLUGINS_PATH"

// Dirs locates plugin files.
type Dirs struct {
	// User holds plugins installed by the user. Scanned first.
	User string
	// System holds plugins shipped with the editor.
	System string
	// Lib is the system library directory. Plugins installed below it are
	// system plugins for data directory resolution.
	Lib string
	// Data is the system data directory.
	Data string
	// Loaders holds loader shared objects.
	Loaders string
}

// DefaultDirs returns the standard layout for configDir and the given
// installation prefix.
func DefaultDirs(configDir, prefix string) Dirs {
	lib := filepath.Join(prefix, "lib", "quire")
	return Dirs{
		User:    filepath.Join(configDir, "plugins"),
		System:  filepath.Join(lib, "plugins"),
		Lib:     lib,
		Data:    filepath.Join(prefix, "share", "quire"),
		Loaders: filepath.Join(lib, "plugin-loaders"),
	}
}

// ScanPath returns the manifest directories in priority order: the user
// directory, then the directories listed in env (when set) or the system
// directory.
func (d Dirs) ScanPath(getenv func(string) string) []string {
	var dirs []string
	if d.User != "" {
		dirs = append(dirs, d.User)
	}
	if env := getenv(PathEnv); env != "" {
		for _, dir := range strings.Split(env, string(os.PathListSeparator)) {
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
		return dirs
	}
	if d.System != "" {
		dirs = append(dirs, d.System)
	}
	return dirs
}

// DataDir resolves the data directory of a plugin installed in installDir.
// System plugins keep their data under <Data>/plugins/<name>, user plugins
// next to their module in <installDir>/<name>.
func (d Dirs) DataDir(installDir, name string) string {
	if d.Lib != "" && isWithin(installDir, d.Lib) {
		return filepath.Join(d.Data, "plugins", name)
	}
	return filepath.Join(installDir, name)
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
