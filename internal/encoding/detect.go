package encoding

import (
	"bytes"
)

// NewlineType is the line terminator convention of a document on disk.
type NewlineType int

const (
	// NewlineLF is Unix-style line ending (\n).
	NewlineLF NewlineType = iota
	// NewlineCR is old Mac-style line ending (\r).
	NewlineCR
	// NewlineCRLF is Windows-style line ending (\r\n).
	NewlineCRLF
)

// DefaultNewline is used for new documents and files without line breaks.
const DefaultNewline = NewlineLF

// String returns the conventional short name.
func (n NewlineType) String() string {
	switch n {
	case NewlineCR:
		return "cr"
	case NewlineCRLF:
		return "crlf"
	default:
		return "lf"
	}
}

// Terminator returns the byte sequence for the convention.
func (n NewlineType) Terminator() string {
	switch n {
	case NewlineCR:
		return "\r"
	case NewlineCRLF:
		return "\r\n"
	default:
		return "\n"
	}
}

// ParseNewline parses "lf", "cr" or "crlf".
func ParseNewline(s string) (NewlineType, bool) {
	switch s {
	case "lf", "LF":
		return NewlineLF, true
	case "cr", "CR":
		return NewlineCR, true
	case "crlf", "CRLF":
		return NewlineCRLF, true
	}
	return DefaultNewline, false
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectBOM returns the encoding announced by a byte order mark and the
// content with the mark removed. It returns nil when no mark is present.
func DetectBOM(content []byte) (*Encoding, []byte) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return utf8Encoding, content[len(bomUTF8):]
	case bytes.HasPrefix(content, bomUTF16LE):
		e, _ := FromCharset("UTF-16LE")
		return e, content[len(bomUTF16LE):]
	case bytes.HasPrefix(content, bomUTF16BE):
		e, _ := FromCharset("UTF-16BE")
		return e, content[len(bomUTF16BE):]
	}
	return nil, content
}

// DetectNewline returns the first line terminator found in text, or
// DefaultNewline if there is none.
func DetectNewline(text string) NewlineType {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return NewlineLF
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return NewlineCRLF
			}
			return NewlineCR
		}
	}
	return DefaultNewline
}

// NormalizeNewlines converts every line terminator in text to \n.
func NormalizeNewlines(text string) string {
	if !bytes.ContainsRune([]byte(text), '\r') {
		return text
	}
	var b bytes.Buffer
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\r' {
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			b.WriteByte('\n')
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// ApplyNewlines converts \n terminators in normalized text to n.
func ApplyNewlines(text string, n NewlineType) string {
	if n == NewlineLF {
		return text
	}
	var b bytes.Buffer
	term := n.Terminator()
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			b.WriteString(term)
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// IsBinary reports whether content looks like binary data: a NUL byte or more
// than 10% control characters in the first 8 KiB.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	nonText := 0
	for _, b := range sample {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			nonText++
		}
	}
	return float64(nonText)/float64(len(sample)) > 0.1
}
