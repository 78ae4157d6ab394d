package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const wordcountManifest = `
[Plugin]
IAge = 2
Module = "wordcount"
Loader = "lua"
Depends = ["spell"]
Name = "Word Count"
"Name[de]" = "Wörter zählen"
"Name[de_AT]" = "Wörter zählen (AT)"
Description = "Counts words"
Authors = ["Jane Doe", "John Roe"]
Copyright = "Copyright 2024 Jane Doe"
Website = "https://example.org/wordcount"
Version = "1.2"
`

func TestParseInfoData(t *testing.T) {
	info, err := ParseInfoData("/p/wordcount.quire-plugin", []byte(wordcountManifest), "")
	if err != nil {
		t.Fatalf("ParseInfoData() error = %v", err)
	}

	if info.ModuleName() != "wordcount" {
		t.Errorf("ModuleName() = %q, want %q", info.ModuleName(), "wordcount")
	}
	if info.LoaderID() != "lua" {
		t.Errorf("LoaderID() = %q, want %q", info.LoaderID(), "lua")
	}
	if info.Name() != "Word Count" {
		t.Errorf("Name() = %q, want %q", info.Name(), "Word Count")
	}
	if diff := cmp.Diff([]string{"Jane Doe", "John Roe"}, info.Authors()); diff != "" {
		t.Errorf("Authors() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"spell"}, info.Dependencies()); diff != "" {
		t.Errorf("Dependencies() mismatch (-want +got):\n%s", diff)
	}
	if info.Version() != "1.2" {
		t.Errorf("Version() = %q, want %q", info.Version(), "1.2")
	}
	if info.InstallDir() != "/p" {
		t.Errorf("InstallDir() = %q, want %q", info.InstallDir(), "/p")
	}
	if info.DataDirName() != "wordcount" {
		t.Errorf("DataDirName() = %q, want %q", info.DataDirName(), "wordcount")
	}
	if info.IconName() != DefaultIconName {
		t.Errorf("IconName() = %q, want %q", info.IconName(), DefaultIconName)
	}
	if !info.IsAvailable() {
		t.Error("IsAvailable() = false, want true")
	}
	if info.IsActive() {
		t.Error("IsActive() = true, want false")
	}
	if info.String() != "wordcount 1.2" {
		t.Errorf("String() = %q, want %q", info.String(), "wordcount 1.2")
	}
}

func TestParseInfoData_Defaults(t *testing.T) {
	data := []byte("[Plugin]\nIAge = 2\nModule = \"bare\"\nName = \"Bare\"\n")
	info, err := ParseInfoData("/p/bare.quire-plugin", data, "")
	if err != nil {
		t.Fatalf("ParseInfoData() error = %v", err)
	}
	if info.LoaderID() != DefaultLoaderID {
		t.Errorf("LoaderID() = %q, want %q", info.LoaderID(), DefaultLoaderID)
	}
	if info.Dependencies() == nil || len(info.Dependencies()) != 0 {
		t.Errorf("Dependencies() = %#v, want empty slice", info.Dependencies())
	}
	if info.Description() != "" || info.Website() != "" || info.Copyright() != "" {
		t.Error("optional fields should be empty")
	}
}

func TestParseInfoData_Locale(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"", "Word Count"},
		{"C", "Word Count"},
		{"fr_FR.UTF-8", "Word Count"},
		{"de", "Wörter zählen"},
		{"de_DE.UTF-8", "Wörter zählen"},
		{"de_AT.UTF-8", "Wörter zählen (AT)"},
		{"de_AT.UTF-8@euro", "Wörter zählen (AT)"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			info, err := ParseInfoData("/p/wc.quire-plugin", []byte(wordcountManifest), tt.locale)
			if err != nil {
				t.Fatalf("ParseInfoData() error = %v", err)
			}
			if info.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", info.Name(), tt.want)
			}
		})
	}
}

func TestParseInfoData_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"no section", "IAge = 2\n", ErrMissingSection},
		{"no iage", "[Plugin]\nModule = \"m\"\nName = \"n\"\n", ErrUnsupportedIAge},
		{"old iage", "[Plugin]\nIAge = 1\nModule = \"m\"\nName = \"n\"\n", ErrUnsupportedIAge},
		{"new iage", "[Plugin]\nIAge = 3\nModule = \"m\"\nName = \"n\"\n", ErrUnsupportedIAge},
		{"trailing garbage iage", "[Plugin]\nIAge = \"2garbage\"\nModule = \"m\"\nName = \"n\"\n", ErrUnsupportedIAge},
		{"no module", "[Plugin]\nIAge = 2\nName = \"n\"\n", ErrMissingModule},
		{"empty module", "[Plugin]\nIAge = 2\nModule = \" \"\nName = \"n\"\n", ErrMissingModule},
		{"no name", "[Plugin]\nIAge = 2\nModule = \"m\"\n", ErrMissingName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseInfoData("/p/x.quire-plugin", []byte(tt.data), "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseInfoData() error = %v, want %v", err, tt.wantErr)
			}
			if info != nil {
				t.Errorf("ParseInfoData() info = %v, want nil", info)
			}
		})
	}
}

func TestParseInfoData_Syntax(t *testing.T) {
	if _, err := ParseInfoData("/p/x.quire-plugin", []byte("[Plugin\n"), ""); err == nil {
		t.Error("ParseInfoData() error = nil for invalid TOML")
	}
}

func TestParseInfoData_SemicolonLists(t *testing.T) {
	data := []byte("[Plugin]\nIAge = \"2\"\nModule = \"m\"\nName = \"n\"\nAuthors = \"A;B; ;C\"\nDepends = \"x;y\"\n")
	info, err := ParseInfoData("/p/m.quire-plugin", data, "")
	if err != nil {
		t.Fatalf("ParseInfoData() error = %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, info.Authors()); diff != "" {
		t.Errorf("Authors() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "y"}, info.Dependencies()); diff != "" {
		t.Errorf("Dependencies() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInfo_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wordcount.quire-plugin")
	if err := os.WriteFile(path, []byte(wordcountManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := ParseInfo(path, "de_DE")
	if err != nil {
		t.Fatalf("ParseInfo() error = %v", err)
	}
	if info.File() != path {
		t.Errorf("File() = %q, want %q", info.File(), path)
	}
	if info.Name() != "Wörter zählen" {
		t.Errorf("Name() = %q", info.Name())
	}

	if _, err := ParseInfo(filepath.Join(dir, "missing.quire-plugin"), ""); err == nil {
		t.Error("ParseInfo() error = nil for missing file")
	}
}

func TestLocaleFromEnv(t *testing.T) {
	env := map[string]string{"LANG": "en_US.UTF-8", "LC_MESSAGES": "de_DE.UTF-8"}
	if got := LocaleFromEnv(func(k string) string { return env[k] }); got != "de_DE.UTF-8" {
		t.Errorf("LocaleFromEnv() = %q, want %q", got, "de_DE.UTF-8")
	}
	env["LC_ALL"] = "fr_FR"
	if got := LocaleFromEnv(func(k string) string { return env[k] }); got != "fr_FR" {
		t.Errorf("LocaleFromEnv() = %q, want %q", got, "fr_FR")
	}
}

func TestDirs(t *testing.T) {
	d := DefaultDirs("/home/u/.config/quire", "/usr")
	want := Dirs{
		User:    "/home/u/.config/quire/plugins",
		System:  "/usr/lib/quire/plugins",
		Lib:     "/usr/lib/quire",
		Data:    "/usr/share/quire",
		Loaders: "/usr/lib/quire/plugin-loaders",
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("DefaultDirs() mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		installDir string
		want       string
	}{
		{"/usr/lib/quire/plugins", "/usr/share/quire/plugins/wc"},
		{"/usr/lib/quire", "/usr/share/quire/plugins/wc"},
		{"/usr/lib/quirex/plugins", "/usr/lib/quirex/plugins/wc"},
		{"/home/u/.config/quire/plugins", "/home/u/.config/quire/plugins/wc"},
	}
	for _, tt := range tests {
		if got := d.DataDir(tt.installDir, "wc"); got != tt.want {
			t.Errorf("DataDir(%q) = %q, want %q", tt.installDir, got, tt.want)
		}
	}
}

func TestDirs_ScanPath(t *testing.T) {
	d := Dirs{User: "/u", System: "/s"}

	got := d.ScanPath(func(string) string { return "" })
	if diff := cmp.Diff([]string{"/u", "/s"}, got); diff != "" {
		t.Errorf("ScanPath() mismatch (-want +got):\n%s", diff)
	}

	env := func(k string) string {
		if k == PathEnv {
			return "/a:/b::"
		}
		return ""
	}
	got = d.ScanPath(env)
	if diff := cmp.Diff([]string{"/u", "/a", "/b"}, got); diff != "" {
		t.Errorf("ScanPath() with env mismatch (-want +got):\n%s", diff)
	}
}
