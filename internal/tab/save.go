package tab

import (
	"context"
	"fmt"

	"github.com/dshills/quire/internal/document"
	"github.com/dshills/quire/internal/encoding"
)

// Save writes the document to its location with its current encoding. The
// document must be titled and writable; use SaveAs otherwise.
func (t *Tab) Save() {
	t.require("Save", StateNormal, StateExternallyModifiedNotification, StateShowingPrintPreview)
	if t.doc.IsUntitled() || t.doc.ReadOnly() {
		panic(fmt.Errorf("%w: %s", ErrNeedsSaveAs, t.doc.ShortName()))
	}

	flags := t.saveFlags
	if t.state == StateExternallyModifiedNotification {
		t.setPanel(nil)
		flags |= document.SaveIgnoreMTime
	}
	t.setState(StateSaving)
	t.saveURI = t.doc.Location()
	t.saveEncoding = t.doc.Encoding()
	t.removeAutoSave()
	t.startSave(flags)
}

// SaveAs writes the document to uri with enc and newline. A nil enc keeps
// the document's encoding. The tab's persistent save flags are reset.
func (t *Tab) SaveAs(uri string, enc *encoding.Encoding, newline encoding.NewlineType) {
	t.require("SaveAs", StateNormal, StateExternallyModifiedNotification, StateShowingPrintPreview)
	if enc == nil {
		enc = t.doc.Encoding()
	}

	t.saveFlags = 0
	flags := t.saveFlags
	if t.state == StateExternallyModifiedNotification {
		t.setPanel(nil)
		flags |= document.SaveIgnoreMTime
	}
	t.setState(StateSaving)
	t.saveURI = uri
	t.saveEncoding = enc
	t.removeAutoSave()
	t.doc.SetNewlineType(newline)
	t.startSave(flags)
}

func (t *Tab) startSave(flags document.SaveFlags) {
	t.progress.reset()
	t.saver = document.NewSaver(t.doc, t.saveURI, t.saveEncoding, t.doc.NewlineType(), flags, document.SaverConfig{
		FS:           t.cfg.FS,
		Scheduler:    t.cfg.Scheduler,
		CreateBackup: t.prefs().Editor.CreateBackupCopy,
		Logger:       t.log,
	})
	t.saver.Save(context.Background(), t.onSaving)
}

// resave restarts the pending save after the user answered a panel.
func (t *Tab) resave(flags document.SaveFlags) {
	t.setPanel(nil)
	t.setState(StateSaving)
	t.startSave(flags)
}

// endSaving clears the pending save target and rearms auto-save.
func (t *Tab) endSaving() {
	t.saveURI = ""
	t.saveEncoding = nil
	t.installAutoSaveIfNeeded()
}

func (t *Tab) onSaving(completed bool, err error) {
	if !completed {
		if t.saver == nil {
			return
		}
		t.reportProgress("Saving", t.saveURI, t.saver.BytesWritten(), t.saver.TotalBytes(), func() { t.saver.Cancel() })
		return
	}

	t.saver = nil
	t.progress.reset()
	t.setPanel(nil)

	if t.disposed {
		t.log.Debug("save of %s finished after close", t.saveURI)
		t.saveURI = ""
		t.saveEncoding = nil
		t.setState(t.stableState())
		return
	}

	if err == nil {
		t.addRecent(t.saveURI)
		t.rememberEncoding()
		t.setState(t.stableState())
		t.askIfExternallyModified = true
		t.endSaving()
		return
	}

	if document.IsCancelled(err) {
		t.log.Debug("save of %s cancelled", t.saveURI)
		t.setState(t.stableState())
		t.endSaving()
		return
	}

	t.log.Warn("save %s: %v", t.saveURI, err)
	t.setState(StateSavingError)
	t.setPanel(t.savingErrorPanel(err))
}

// savingErrorPanel picks the recovery offered for a failed save.
func (t *Tab) savingErrorPanel(err error) *Panel {
	name := t.doc.ShortName()
	p := &Panel{Err: err, URI: t.saveURI, Detail: errorDetail(err)}

	switch {
	case document.HasCode(err, document.CodeExternallyModified):
		p.Kind = PanelExternallyModifiedSaving
		p.Message = fmt.Sprintf("The file %s has been modified since reading it.", name)
		p.Detail = "If you save it, all the external changes could be lost. Save it anyway?"
		p.respond = func(r Response) {
			if r != ResponseYes {
				t.abandonSave()
				return
			}
			t.resave(t.saveFlags | document.SaveIgnoreMTime)
		}

	case document.HasCode(err, document.CodeCantCreateBackup):
		p.Kind = PanelNoBackup
		p.Message = fmt.Sprintf("Could not create a backup file while saving %s.", name)
		p.Detail = "Save the file anyway, without a backup copy?"
		p.respond = func(r Response) {
			if r != ResponseYes {
				t.abandonSave()
				return
			}
			t.saveFlags |= document.SaveIgnoreBackup
			t.resave(t.saveFlags)
		}

	case document.IsConversionError(err):
		p.Kind = PanelSavingConversion
		p.Message = fmt.Sprintf("Could not save the file %s using the %s character encoding.", name, t.saveEncoding.Charset())
		p.encoding = t.saveEncoding
		p.respond = func(r Response) {
			if r != ResponseOK || p.encoding == nil {
				t.abandonSave()
				return
			}
			t.saveEncoding = p.encoding
			t.resave(t.saveFlags)
		}

	default:
		t.removeRecent(t.saveURI)
		p.Kind = PanelUnrecoverableSaving
		p.Message = fmt.Sprintf("Could not save the file %s.", name)
		p.respond = func(Response) { t.abandonSave() }
	}
	return p
}

// abandonSave leaves SavingError without saving.
func (t *Tab) abandonSave() {
	t.setState(t.stableState())
	t.endSaving()
	t.setPanel(nil)
}
