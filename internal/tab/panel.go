package tab

import (
	"fmt"
	"path/filepath"

	"github.com/dshills/quire/internal/document"
	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/vfs"
)

// maxMessageLength bounds the file name shown in panel messages.
const maxMessageLength = 100

// PanelKind identifies what a panel reports.
type PanelKind int

const (
	PanelProgress PanelKind = iota
	PanelLoadingError
	PanelConversionFallback
	PanelFileAlreadyOpen
	PanelRevertingError
	PanelExternallyModifiedSaving
	PanelNoBackup
	PanelUnrecoverableSaving
	PanelSavingConversion
	PanelExternallyModified
)

var panelKindNames = [...]string{
	PanelProgress:                 "progress",
	PanelLoadingError:             "loading-error",
	PanelConversionFallback:       "conversion-fallback",
	PanelFileAlreadyOpen:          "file-already-open",
	PanelRevertingError:           "reverting-error",
	PanelExternallyModifiedSaving: "externally-modified-saving",
	PanelNoBackup:                 "no-backup",
	PanelUnrecoverableSaving:      "unrecoverable-saving",
	PanelSavingConversion:         "saving-conversion",
	PanelExternallyModified:       "externally-modified",
}

func (k PanelKind) String() string {
	if k >= 0 && int(k) < len(panelKindNames) {
		return panelKindNames[k]
	}
	return "unknown"
}

// Response is the user's answer to a panel.
type Response int

const (
	ResponseCancel Response = iota
	ResponseOK
	ResponseYes
	ResponseNo
	ResponseClose
)

// Panel is the transient message shown above a tab's view. A tab shows at
// most one panel; showing another replaces it.
type Panel struct {
	Kind PanelKind
	// Message is the primary text.
	Message string
	// Detail is the secondary text, usually the error description.
	Detail string
	// Err is the failure being reported, if any.
	Err error
	// URI is the location the panel is about.
	URI string

	encoding *encoding.Encoding
	fraction float64
	pulses   int
	pulsing  bool

	tab     *Tab
	respond func(Response)
}

// Fraction returns the progress of a progress panel in [0,1].
func (p *Panel) Fraction() float64 { return p.fraction }

// Pulsing reports whether a progress panel shows indeterminate progress.
func (p *Panel) Pulsing() bool { return p.pulsing }

// Pulses returns how many times an indeterminate panel has pulsed.
func (p *Panel) Pulses() int { return p.pulses }

// Encoding returns the encoding selected in the panel, or nil.
func (p *Panel) Encoding() *encoding.Encoding { return p.encoding }

// SetEncoding selects the encoding to retry with. It is used by panels
// that offer a retry with another encoding.
func (p *Panel) SetEncoding(enc *encoding.Encoding) { p.encoding = enc }

// Respond delivers the user's answer. Answers to a panel that is no longer
// displayed are ignored.
func (p *Panel) Respond(r Response) {
	if p.tab == nil || p.tab.panel != p || p.respond == nil {
		return
	}
	p.respond(r)
}

func (p *Panel) setProgress(done, total int64) {
	if total <= 0 {
		if done != 0 {
			p.pulsing = true
			p.pulses++
		} else {
			p.fraction = 0
		}
		return
	}
	p.pulsing = false
	p.fraction = progressFraction(done, total)
}

// displayName returns the name shown in messages and, when it is short
// enough, the directory it lives in.
func displayName(name, uri string) (string, string) {
	if n := len([]rune(name)); n > maxMessageLength {
		return vfs.TruncateMiddle(name, maxMessageLength), ""
	}
	if uri == "" {
		return name, ""
	}
	dir := uri
	if p, err := vfs.PathFromURI(uri); err == nil {
		dir = filepath.Dir(p)
	}
	return name, vfs.TruncateMiddle(dir, max(20, maxMessageLength-len([]rune(name))))
}

func progressMessage(verb, name, uri string) string {
	name, dir := displayName(name, uri)
	if dir == "" {
		return fmt.Sprintf("%s %s", verb, name)
	}
	prep := "from"
	if verb == "Saving" {
		prep = "to"
	}
	return fmt.Sprintf("%s %s %s %s", verb, name, prep, dir)
}

// errorDetail explains err in terms of its document error code.
func errorDetail(err error) string {
	switch document.CodeOf(err) {
	case document.CodeNotFound:
		return "The file could not be found."
	case document.CodePermissionDenied:
		return "You do not have the permissions necessary to access the file."
	case document.CodeNotRegularFile:
		return "The location is not a regular file."
	case document.CodeTooBig:
		return "The file is too big."
	case document.CodeNotSupported:
		return "Locations of this kind are not supported."
	case document.CodeConversion, document.CodeInvalidData, document.CodePartialInput:
		return "The text could not be converted with the selected character encoding."
	case document.CodeConversionFallback:
		return "The file contains invalid characters and was opened read-only."
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
