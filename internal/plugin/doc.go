// Package plugin discovers, loads and activates editor plugins.
//
// # Manifests
//
// A plugin is described by a TOML manifest named "<module>.quire-plugin":
//
//	[Plugin]
//	IAge = 2
//	Module = "wordcount"
//	Loader = "lua"
//	Depends = []
//	Name = "Word Count"
//	"Name[de]" = "Wörter zählen"
//	Description = "Counts the words of the active document"
//	Authors = ["Jane Doe"]
//	Version = "1.0"
//
// IAge must equal SupportedIAge and Module and Name must be present, or the
// manifest is rejected as a whole. Loader defaults to "native".
//
// # Loaders
//
// Each runtime is served by a Loader identified by a case-insensitive id.
// The Engine resolves ids through its cache, then the built-in factories it
// was configured with, then shared objects in the loader directory that
// export RegisterPluginLoader. A miss is cached so the directory is scanned
// at most once per id.
//
// # Activation
//
// An active plugin is active in every window. Activation failures mark the
// Info unavailable for the rest of the process lifetime. The set of active
// modules is persisted in the settings key "plugins.active".
//
// All Engine methods must be called from the main loop goroutine.
package plugin
