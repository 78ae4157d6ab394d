package app

import (
	"github.com/dshills/quire/internal/settings"
)

// subscribe connects preference changes to the components that depend on
// them. Observers may run on the settings watcher goroutine, so every
// reaction is posted to the main loop.
func (a *App) subscribe() {
	a.subs = append(a.subs,
		a.settings.Subscribe(settings.KeyActivePlugins, a.onLoop(a.plugins.ActivePluginsChanged)),
		a.settings.Subscribe(settings.KeyAutoSave, a.onLoop(a.applyAutoSave)),
		a.settings.Subscribe(settings.KeyAutoSaveInterval, a.onLoop(a.applyAutoSave)),
		a.settings.Subscribe(settings.KeyDisableSaveToDisk, a.onLoop(a.applyAutoSave)),
		a.settings.Subscribe(settings.KeyMaxRecents, a.onLoop(a.applyMaxRecents)),
	)
}

func (a *App) onLoop(fn func()) settings.Observer {
	return func(change settings.Change) {
		a.log.Debug("setting %s changed (%s)", change.Path, change.Type)
		a.loop.Post(func() {
			if !a.shutdown {
				fn()
			}
		})
	}
}

// applyAutoSave pushes the auto-save preferences to every tab.
func (a *App) applyAutoSave() {
	prefs := a.settings.Get()
	for _, t := range a.Tabs() {
		t.SetAutoSaveInterval(prefs.Editor.AutoSaveInterval)
		t.SetAutoSaveEnabled(prefs.AutoSaveAllowed())
	}
}

func (a *App) applyMaxRecents() {
	n := a.settings.Get().Editor.MaxRecents
	if err := a.metadata.SetMaxRecents(n); err != nil {
		a.log.Warn("set max recents: %v", err)
	}
}
