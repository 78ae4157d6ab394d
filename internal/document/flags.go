package document

// SaveFlags adjust the checks a Saver performs.
type SaveFlags uint

const (
	// SaveIgnoreMTime skips the externally-modified check.
	SaveIgnoreMTime SaveFlags = 1 << iota
	// SaveIgnoreBackup writes without creating a backup copy.
	SaveIgnoreBackup
	// SavePreserveBackup keeps an existing backup instead of replacing it.
	// Auto-save uses it so the backup of the last manual save survives.
	SavePreserveBackup
)

// Has reports whether all bits of f are set in flags.
func (flags SaveFlags) Has(f SaveFlags) bool { return flags&f == f }

// String lists the set flags.
func (flags SaveFlags) String() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if flags.Has(SaveIgnoreMTime) {
		add("ignore-mtime")
	}
	if flags.Has(SaveIgnoreBackup) {
		add("ignore-backup")
	}
	if flags.Has(SavePreserveBackup) {
		add("preserve-backup")
	}
	if s == "" {
		return "none"
	}
	return s
}
