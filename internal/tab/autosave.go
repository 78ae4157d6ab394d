package tab

import (
	"time"

	"github.com/dshills/quire/internal/document"
)

// AutoSaveEnabled reports whether auto-save is on for this tab.
func (t *Tab) AutoSaveEnabled() bool { return t.autoSave }

// AutoSaveInterval returns the auto-save interval in minutes.
func (t *Tab) AutoSaveInterval() int { return t.autoSaveInterval }

// AutoSaveScheduled reports whether an auto-save timer is installed.
func (t *Tab) AutoSaveScheduled() bool { return t.autoSaveTimer != 0 }

// SetAutoSaveEnabled turns auto-save on or off. It stays off while the
// save-to-disk lockdown is active. No timer is installed for untitled or
// read-only documents.
func (t *Tab) SetAutoSaveEnabled(enable bool) {
	if t.prefs().Lockdown.DisableSaveToDisk {
		enable = false
	}
	if t.autoSave == enable {
		return
	}
	t.autoSave = enable

	if !enable {
		t.removeAutoSave()
		return
	}
	if t.autoSaveTimer != 0 || t.doc.IsUntitled() || t.doc.ReadOnly() {
		return
	}
	switch t.state {
	case StateLoading, StateSaving, StateReverting,
		StateLoadingError, StateSavingError, StateRevertingError:
		// installed when the operation finishes
	default:
		t.installAutoSave()
	}
}

// SetAutoSaveInterval changes the interval in minutes and restarts a
// running timer.
func (t *Tab) SetAutoSaveInterval(minutes int) {
	if minutes <= 0 || t.autoSaveInterval == minutes {
		return
	}
	t.autoSaveInterval = minutes
	if !t.autoSave || t.autoSaveTimer == 0 {
		return
	}
	t.removeAutoSave()
	t.installAutoSave()
}

func (t *Tab) installAutoSave() {
	if t.disposed {
		return
	}
	interval := time.Duration(t.autoSaveInterval) * time.Minute
	t.autoSaveTimer = t.cfg.Scheduler.AddTimeout(interval, t.autoSaveFired)
}

func (t *Tab) installAutoSaveIfNeeded() {
	if t.autoSaveTimer != 0 {
		return
	}
	if t.state != StateNormal && t.state != StateShowingPrintPreview {
		return
	}
	if t.autoSave && !t.doc.IsUntitled() && !t.doc.ReadOnly() {
		t.installAutoSave()
	}
}

func (t *Tab) removeAutoSave() {
	if t.autoSaveTimer == 0 {
		return
	}
	t.cfg.Scheduler.Remove(t.autoSaveTimer)
	t.autoSaveTimer = 0
}

// autoSaveFired runs on the auto-save timer. Returning true keeps the
// timer; every other path consumes it.
func (t *Tab) autoSaveFired() bool {
	if t.doc.IsUntitled() || t.doc.ReadOnly() || !t.autoSave {
		t.autoSaveTimer = 0
		return false
	}
	if !t.doc.Modified() {
		return true
	}
	if t.state != StateNormal && t.state != StateShowingPrintPreview {
		t.log.Debug("auto-save of %s deferred in state %s", t.doc.ShortName(), t.state)
		t.autoSaveTimer = t.cfg.Scheduler.AddTimeout(AutoSaveRetryDelay, t.autoSaveFired)
		return false
	}

	t.autoSaveTimer = 0
	t.setState(StateSaving)
	t.saveURI = t.doc.Location()
	t.saveEncoding = t.doc.Encoding()
	t.startSave(t.saveFlags | document.SavePreserveBackup)
	return false
}
