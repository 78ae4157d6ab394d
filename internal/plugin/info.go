package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// SupportedIAge is the only manifest schema version accepted.
const SupportedIAge = 2

// ManifestExt is the file extension of plugin manifests.
const ManifestExt = ".quire-plugin"

// DefaultLoaderID is used when a manifest omits Loader.
const DefaultLoaderID = "native"

// DefaultIconName is reported for plugins without an Icon key.
const DefaultIconName = "quire-plugin"

const manifestSection = "Plugin"

// Info describes one discovered plugin. Infos are shared by pointer between
// the Engine and any listing; they are mutated only on the loop goroutine.
type Info struct {
	file        string
	module      string
	loaderID    string
	depends     []string
	name        string
	description string
	icon        string
	authors     []string
	copyright   string
	website     string
	version     string

	dataDir string

	available bool
	plugin    Plugin
}

// ParseInfo reads and parses the manifest at path. locale selects the
// translated Name, Description and Icon values, e.g. "de_DE.UTF-8".
func ParseInfo(path, locale string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseInfoData(path, data, locale)
}

// ParseInfoData parses manifest content. path is recorded as the manifest
// location. No Info is returned unless every required key is valid.
func ParseInfoData(path string, data []byte, locale string) (*Info, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	section, ok := doc[manifestSection].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSection, path)
	}
	m := manifest(section)

	iage, ok := m.int("IAge")
	if !ok || iage != SupportedIAge {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedIAge, path)
	}

	module := m.string("Module")
	if module == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingModule, path)
	}

	name, ok := m.localeString("Name", locale)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingName, path)
	}

	loaderID := m.string("Loader")
	if loaderID == "" {
		loaderID = DefaultLoaderID
	}

	info := &Info{
		file:      path,
		module:    module,
		loaderID:  loaderID,
		depends:   m.strings("Depends"),
		name:      name,
		authors:   m.strings("Authors"),
		copyright: m.string("Copyright"),
		website:   m.string("Website"),
		version:   m.string("Version"),
		available: true,
	}
	info.description, _ = m.localeString("Description", locale)
	info.icon, _ = m.localeString("Icon", locale)
	if info.depends == nil {
		info.depends = []string{}
	}
	return info, nil
}

// File returns the manifest path.
func (i *Info) File() string { return i.file }

// ModuleName returns the module name, the plugin's identity.
func (i *Info) ModuleName() string { return i.module }

// LoaderID returns the declared loader id.
func (i *Info) LoaderID() string { return i.loaderID }

// Dependencies returns the module names this plugin depends on.
func (i *Info) Dependencies() []string { return i.depends }

// Name returns the human readable name.
func (i *Info) Name() string { return i.name }

// Description returns the description, possibly empty.
func (i *Info) Description() string { return i.description }

// IconName returns the icon name, DefaultIconName when unset.
func (i *Info) IconName() string {
	if i.icon == "" {
		return DefaultIconName
	}
	return i.icon
}

// Authors returns the author list.
func (i *Info) Authors() []string { return i.authors }

// Copyright returns the copyright line.
func (i *Info) Copyright() string { return i.copyright }

// Website returns the website URL.
func (i *Info) Website() string { return i.website }

// Version returns the version string.
func (i *Info) Version() string { return i.version }

// InstallDir returns the directory holding the manifest and module.
func (i *Info) InstallDir() string { return filepath.Dir(i.file) }

// DataDirName returns the base name of the plugin's data directory.
func (i *Info) DataDirName() string { return i.module }

// DataDir returns the resolved data directory, set when the Engine
// registers the plugin.
func (i *Info) DataDir() string { return i.dataDir }

// IsAvailable reports whether the plugin can still be activated.
func (i *Info) IsAvailable() bool { return i.available }

// IsActive reports whether a live plugin instance exists.
func (i *Info) IsActive() bool { return i.available && i.plugin != nil }

// IsConfigurable reports whether the active plugin offers options.
func (i *Info) IsConfigurable() bool {
	if !i.IsActive() {
		return false
	}
	return i.plugin.IsConfigurable()
}

// Plugin returns the live instance, or nil when inactive.
func (i *Info) Plugin() Plugin { return i.plugin }

// String returns the module name and version.
func (i *Info) String() string {
	if i.version == "" {
		return i.module
	}
	return i.module + " " + i.version
}

// markUnavailable drops the instance and disables further activation.
func (i *Info) markUnavailable() {
	i.available = false
	i.plugin = nil
}

// manifest reads typed values from the [Plugin] table.
type manifest map[string]any

func (m manifest) string(key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func (m manifest) int(key string) (int64, bool) {
	switch v := m[key].(type) {
	case int64:
		return v, true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// strings accepts a TOML array or a ";"-separated string.
func (m manifest) strings(key string) []string {
	switch v := m[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ";") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// localeString looks up key[locale] variants from most to least specific,
// then the untranslated key.
func (m manifest) localeString(key, locale string) (string, bool) {
	for _, variant := range localeVariants(locale) {
		if s, ok := m[key+"["+variant+"]"].(string); ok {
			return s, true
		}
	}
	s, ok := m[key].(string)
	return s, ok
}

// localeVariants expands "lang_COUNTRY.ENCODING@MODIFIER" into the lookup
// order lang_COUNTRY@MODIFIER, lang_COUNTRY, lang@MODIFIER, lang.
func localeVariants(locale string) []string {
	if locale == "" || locale == "C" || locale == "POSIX" {
		return nil
	}
	modifier := ""
	if i := strings.IndexByte(locale, '@'); i >= 0 {
		modifier = locale[i:]
		locale = locale[:i]
	}
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	lang, country := locale, ""
	if i := strings.IndexByte(locale, '_'); i >= 0 {
		lang, country = locale[:i], locale[i:]
	}

	var variants []string
	if country != "" && modifier != "" {
		variants = append(variants, lang+country+modifier)
	}
	if country != "" {
		variants = append(variants, lang+country)
	}
	if modifier != "" {
		variants = append(variants, lang+modifier)
	}
	return append(variants, lang)
}

// LocaleFromEnv returns the message locale from the environment.
func LocaleFromEnv(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return ""
}
