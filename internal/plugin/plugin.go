package plugin

// Window is the view of an editor window that plugins are activated against.
type Window interface {
	// Role returns the unique window identifier.
	Role() string
	// DocumentURIs lists the locations of the window's documents in tab
	// order. Untitled documents are reported as "".
	DocumentURIs() []string
	// ActiveDocumentURI returns the location of the active document.
	ActiveDocumentURI() string
}

// Plugin is a live plugin instance. Every method is called on the main loop
// goroutine.
type Plugin interface {
	Activate(w Window) error
	Deactivate(w Window) error
	UpdateUI(w Window)
	IsConfigurable() bool
	Configure() error
}

// Base implements the optional parts of Plugin. Embed it and override what
// the plugin supports.
type Base struct{}

// Activate does nothing.
func (Base) Activate(Window) error { return nil }

// Deactivate does nothing.
func (Base) Deactivate(Window) error { return nil }

// UpdateUI does nothing.
func (Base) UpdateUI(Window) {}

// IsConfigurable returns false.
func (Base) IsConfigurable() bool { return false }

// Configure returns ErrNotConfigurable.
func (Base) Configure() error { return ErrNotConfigurable }
