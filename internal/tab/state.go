package tab

import "errors"

// State is the phase of a tab's I/O state machine.
type State int

const (
	StateNormal State = iota
	StateLoading
	StateReverting
	StateSaving
	StatePrinting
	StatePrintPreviewing
	StateShowingPrintPreview
	StateGenericNotEditable
	StateLoadingError
	StateRevertingError
	StateSavingError
	StateGenericError
	StateClosing
	StateExternallyModifiedNotification
)

var stateNames = [...]string{
	StateNormal:                         "normal",
	StateLoading:                        "loading",
	StateReverting:                      "reverting",
	StateSaving:                         "saving",
	StatePrinting:                       "printing",
	StatePrintPreviewing:                "print-previewing",
	StateShowingPrintPreview:            "showing-print-preview",
	StateGenericNotEditable:             "generic-not-editable",
	StateLoadingError:                   "loading-error",
	StateRevertingError:                 "reverting-error",
	StateSavingError:                    "saving-error",
	StateGenericError:                   "generic-error",
	StateClosing:                        "closing",
	StateExternallyModifiedNotification: "externally-modified-notification",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// IsError reports whether s is one of the error states.
func (s State) IsError() bool {
	switch s {
	case StateLoadingError, StateRevertingError, StateSavingError, StateGenericError:
		return true
	}
	return false
}

// Faults raised with panic when a tab operation is misused.
var (
	// ErrIllegalState is raised when an operation is invoked from a state
	// that does not allow it.
	ErrIllegalState = errors.New("tab: operation not allowed in current state")

	// ErrNeedsSaveAs is raised when Save is called on an untitled or
	// read-only document.
	ErrNeedsSaveAs = errors.New("tab: document must be saved with SaveAs")
)
