package tab

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/quire/internal/document"
	"github.com/dshills/quire/internal/encoding"
)

// Load reads uri into the tab's document. A nil enc detects the encoding.
// linePos is the one based line to place the cursor on; 0 restores the
// remembered position. create makes a missing file load as empty.
func (t *Tab) Load(uri string, enc *encoding.Encoding, linePos int, create bool) {
	t.require("Load", StateNormal)

	t.setState(StateLoading)
	t.tmpLinePos = linePos
	t.tmpEncoding = enc
	t.removeAutoSave()
	t.startLoad(uri, enc, create)
}

// Revert reloads the document from its location with its current encoding.
func (t *Tab) Revert() {
	t.require("Revert", StateNormal, StateExternallyModifiedNotification)
	if t.doc.IsUntitled() {
		panic(fmt.Errorf("%w: Revert of an untitled document", ErrIllegalState))
	}

	if t.state == StateExternallyModifiedNotification {
		t.setPanel(nil)
	}
	t.setState(StateReverting)
	t.tmpLinePos = 0
	t.tmpEncoding = t.doc.Encoding()
	t.removeAutoSave()
	t.startLoad(t.doc.Location(), t.tmpEncoding, false)
}

func (t *Tab) startLoad(uri string, enc *encoding.Encoding, create bool) {
	prefs := t.prefs()
	t.loadURI = uri
	t.progress.reset()
	t.loader = document.NewLoader(t.doc, uri, enc, document.LoaderConfig{
		FS:          t.cfg.FS,
		Scheduler:   t.cfg.Scheduler,
		Metadata:    t.cfg.Metadata,
		Candidates:  encoding.ParseList(prefs.Encodings.AutoDetected),
		Create:      create,
		MaxFileSize: prefs.Editor.MaxFileSize,
		Logger:      t.log,
	})
	t.loader.Load(context.Background(), t.onLoading)
}

func (t *Tab) onLoading(completed bool, err error) {
	if !completed {
		if t.loader == nil {
			return
		}
		verb := "Loading"
		if t.state == StateReverting {
			verb = "Reverting"
		}
		t.reportProgress(verb, t.loadURI, t.loader.BytesRead(), t.loader.TotalBytes(), func() { t.loader.Cancel() })
		return
	}

	reverting := t.state == StateReverting
	uri := t.loadURI
	linePos := t.tmpLinePos
	t.loader = nil
	t.progress.reset()
	t.setPanel(nil)
	defer func() {
		t.tmpLinePos = 0
		t.tmpEncoding = nil
	}()

	if err != nil && !document.HasCode(err, document.CodeConversionFallback) {
		t.loadFailed(uri, linePos, reverting, err)
		return
	}

	t.addRecent(uri)
	if err == nil {
		t.rememberEncoding()
	}

	openElsewhere := t.cfg.OpenElsewhere != nil && t.cfg.OpenElsewhere(t, uri)
	if err != nil {
		t.doc.SetReadOnly(true)
		p := t.loadingErrorPanel(PanelConversionFallback, uri, linePos, err)
		// The fallback panel stays; it carries the open-elsewhere notice.
		if openElsewhere {
			t.notEditable = true
			p.Detail = strings.TrimSpace(p.Detail + "\n\nThis file is already open in another window.")
		}
		t.setPanel(p)
	} else if openElsewhere {
		t.notEditable = true
		p := &Panel{
			Kind:    PanelFileAlreadyOpen,
			Message: fmt.Sprintf("This file (%s) is already open in another window.", t.doc.ShortName()),
			Detail:  "Do you want to edit it anyway?",
			URI:     uri,
		}
		p.respond = func(r Response) {
			if r == ResponseYes {
				t.notEditable = false
			}
			t.setPanel(nil)
		}
		t.setPanel(p)
	}

	line := linePos - 1
	if linePos <= 0 {
		line = t.storedLine(uri)
	}
	t.SetCursorLine(line)

	t.setState(StateNormal)
	t.installAutoSaveIfNeeded()
	t.askIfExternallyModified = true
}

func (t *Tab) loadFailed(uri string, linePos int, reverting bool, err error) {
	if reverting {
		t.setState(StateRevertingError)
	} else {
		t.setState(StateLoadingError)
	}

	if document.IsCancelled(err) && !reverting {
		t.log.Debug("load of %s cancelled", uri)
		t.removeLater()
		return
	}

	t.removeRecent(uri)

	if !reverting {
		t.log.Warn("load %s: %v", uri, err)
		t.setPanel(t.loadingErrorPanel(PanelLoadingError, uri, linePos, err))
		return
	}
	t.log.Warn("revert %s: %v", uri, err)
	p := &Panel{
		Kind:    PanelRevertingError,
		Message: fmt.Sprintf("Could not revert the file %s.", t.doc.ShortName()),
		Detail:  errorDetail(err),
		Err:     err,
		URI:     uri,
	}
	p.respond = func(Response) {
		t.setState(StateNormal)
		t.setPanel(nil)
		t.installAutoSaveIfNeeded()
	}
	t.setPanel(p)
}

// loadingErrorPanel builds the panel shown for a failed load and for a load
// that fell back to a lossy encoding. OK retries with the selected
// encoding, Yes edits the document anyway, No keeps it read-only and any
// other response closes the tab.
func (t *Tab) loadingErrorPanel(kind PanelKind, uri string, linePos int, err error) *Panel {
	p := &Panel{
		Kind:     kind,
		Message:  fmt.Sprintf("Could not open the file %s.", uri),
		Detail:   errorDetail(err),
		Err:      err,
		URI:      uri,
		encoding: t.tmpEncoding,
	}
	if kind == PanelConversionFallback {
		p.Message = fmt.Sprintf("There was a problem opening the file %s.", uri)
	}
	p.respond = func(r Response) {
		switch r {
		case ResponseOK:
			enc := p.encoding
			t.setPanel(nil)
			t.setState(StateNormal)
			t.Load(uri, enc, linePos, false)
		case ResponseYes:
			t.setPanel(nil)
			t.doc.SetReadOnly(false)
			t.notEditable = false
			t.setState(StateNormal)
			t.installAutoSaveIfNeeded()
		case ResponseNo:
			t.setPanel(nil)
			t.notEditable = true
			t.setState(StateNormal)
		default:
			t.removeRecent(uri)
			t.setPanel(nil)
			t.removeLater()
		}
	}
	return p
}
