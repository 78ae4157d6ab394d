// Package encoding is the registry of character encodings quire can load and
// save documents in, plus byte-level detection helpers.
package encoding

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Encoding errors.
var (
	// ErrUnknownCharset indicates a charset name with no registry entry.
	ErrUnknownCharset = errors.New("unknown charset")

	// ErrInvalidSequence indicates input that is not valid in the encoding.
	ErrInvalidSequence = errors.New("invalid byte sequence")

	// ErrUnrepresentable indicates text containing characters the encoding
	// cannot represent.
	ErrUnrepresentable = errors.New("character not representable in encoding")
)

// Encoding describes one supported character set. Encodings are immutable
// and compared by pointer.
type Encoding struct {
	charset string
	name    string
	codec   xenc.Encoding // nil for UTF-8
}

// Charset returns the canonical charset name, e.g. "ISO-8859-15".
func (e *Encoding) Charset() string { return e.charset }

// Name returns the human readable group name, e.g. "Western".
func (e *Encoding) Name() string { return e.name }

// String formats the encoding as "Name (CHARSET)".
func (e *Encoding) String() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", e.name, e.charset)
}

// IsUTF8 reports whether e is the UTF-8 encoding.
func (e *Encoding) IsUTF8() bool { return e == utf8Encoding }

// Decode converts data to UTF-8. Input that does not form valid text in this
// encoding yields ErrInvalidSequence.
func (e *Encoding) Decode(data []byte) (string, error) {
	if e.codec == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w for %s", ErrInvalidSequence, e.charset)
		}
		return string(data), nil
	}
	out, err := e.codec.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrInvalidSequence, e.charset, err)
	}
	if strings.ContainsRune(string(out), utf8.RuneError) {
		return "", fmt.Errorf("%w for %s", ErrInvalidSequence, e.charset)
	}
	return string(out), nil
}

// DecodeLossy converts data to UTF-8, replacing invalid input with U+FFFD.
func (e *Encoding) DecodeLossy(data []byte) string {
	if e.codec == nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	out, err := e.codec.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	return string(out)
}

// Encode converts UTF-8 text into this encoding. Characters that cannot be
// represented yield ErrUnrepresentable.
func (e *Encoding) Encode(text string) ([]byte, error) {
	if e.codec == nil {
		return []byte(text), nil
	}
	out, err := e.codec.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrUnrepresentable, e.charset, err)
	}
	return out, nil
}

var utf8Encoding = &Encoding{charset: "UTF-8", name: "Unicode"}

var table = []*Encoding{
	utf8Encoding,
	{charset: "UTF-16", name: "Unicode", codec: unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
	{charset: "UTF-16BE", name: "Unicode", codec: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	{charset: "UTF-16LE", name: "Unicode", codec: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{charset: "UTF-32", name: "Unicode", codec: utf32.UTF32(utf32.BigEndian, utf32.UseBOM)},

	{charset: "ISO-8859-1", name: "Western", codec: charmap.ISO8859_1},
	{charset: "ISO-8859-15", name: "Western", codec: charmap.ISO8859_15},
	{charset: "WINDOWS-1252", name: "Western", codec: charmap.Windows1252},
	{charset: "MACINTOSH", name: "Western", codec: charmap.Macintosh},

	{charset: "ISO-8859-2", name: "Central European", codec: charmap.ISO8859_2},
	{charset: "WINDOWS-1250", name: "Central European", codec: charmap.Windows1250},
	{charset: "ISO-8859-3", name: "South European", codec: charmap.ISO8859_3},
	{charset: "ISO-8859-4", name: "Baltic", codec: charmap.ISO8859_4},
	{charset: "ISO-8859-13", name: "Baltic", codec: charmap.ISO8859_13},
	{charset: "WINDOWS-1257", name: "Baltic", codec: charmap.Windows1257},

	{charset: "ISO-8859-5", name: "Cyrillic", codec: charmap.ISO8859_5},
	{charset: "KOI8-R", name: "Cyrillic", codec: charmap.KOI8R},
	{charset: "WINDOWS-1251", name: "Cyrillic", codec: charmap.Windows1251},
	{charset: "IBM866", name: "Cyrillic", codec: charmap.CodePage866},
	{charset: "MAC_CYRILLIC", name: "Cyrillic", codec: charmap.MacintoshCyrillic},
	{charset: "KOI8-U", name: "Cyrillic/Ukrainian", codec: charmap.KOI8U},

	{charset: "ISO-8859-6", name: "Arabic", codec: charmap.ISO8859_6},
	{charset: "WINDOWS-1256", name: "Arabic", codec: charmap.Windows1256},
	{charset: "ISO-8859-7", name: "Greek", codec: charmap.ISO8859_7},
	{charset: "WINDOWS-1253", name: "Greek", codec: charmap.Windows1253},
	{charset: "ISO-8859-8", name: "Hebrew Visual", codec: charmap.ISO8859_8},
	{charset: "WINDOWS-1255", name: "Hebrew", codec: charmap.Windows1255},
	{charset: "ISO-8859-9", name: "Turkish", codec: charmap.ISO8859_9},
	{charset: "WINDOWS-1254", name: "Turkish", codec: charmap.Windows1254},
	{charset: "ISO-8859-10", name: "Nordic", codec: charmap.ISO8859_10},
	{charset: "ISO-8859-14", name: "Celtic", codec: charmap.ISO8859_14},
	{charset: "ISO-8859-16", name: "Romanian", codec: charmap.ISO8859_16},
	{charset: "WINDOWS-1258", name: "Vietnamese", codec: charmap.Windows1258},
	{charset: "WINDOWS-874", name: "Thai", codec: charmap.Windows874},

	{charset: "SHIFT_JIS", name: "Japanese", codec: japanese.ShiftJIS},
	{charset: "EUC-JP", name: "Japanese", codec: japanese.EUCJP},
	{charset: "ISO-2022-JP", name: "Japanese", codec: japanese.ISO2022JP},
	{charset: "GB18030", name: "Chinese Simplified", codec: simplifiedchinese.GB18030},
	{charset: "GBK", name: "Chinese Simplified", codec: simplifiedchinese.GBK},
	{charset: "HZ", name: "Chinese Simplified", codec: simplifiedchinese.HZGB2312},
	{charset: "BIG5", name: "Chinese Traditional", codec: traditionalchinese.Big5},
	{charset: "EUC-KR", name: "Korean", codec: korean.EUCKR},
}

// UTF8 returns the UTF-8 encoding.
func UTF8() *Encoding { return utf8Encoding }

// All returns every registered encoding in display order.
func All() []*Encoding {
	out := make([]*Encoding, len(table))
	copy(out, table)
	return out
}

// Get returns the encoding at index i of All, or nil.
func Get(i int) *Encoding {
	if i < 0 || i >= len(table) {
		return nil
	}
	return table[i]
}

// FromCharset looks up an encoding by charset name or IANA alias. The
// keyword "CURRENT" resolves to the locale encoding.
func FromCharset(charset string) (*Encoding, error) {
	name := strings.ToUpper(strings.TrimSpace(charset))
	if name == "CURRENT" {
		return Current(), nil
	}
	if name == "UTF8" {
		return utf8Encoding, nil
	}
	for _, e := range table {
		if e.charset == name {
			return e, nil
		}
	}

	codec, err := ianaindex.IANA.Encoding(charset)
	if err == nil && codec != nil {
		if codec == unicode.UTF8 {
			return utf8Encoding, nil
		}
		for _, e := range table {
			if e.codec == codec {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCharset, charset)
}

var (
	currentOnce sync.Once
	current     *Encoding
)

// Current returns the encoding of the user's locale, read from LC_ALL,
// LC_CTYPE or LANG. It falls back to UTF-8.
func Current() *Encoding {
	currentOnce.Do(func() {
		current = localeEncoding(os.Getenv)
	})
	return current
}

func localeEncoding(getenv func(string) string) *Encoding {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		locale := getenv(key)
		if locale == "" {
			continue
		}
		dot := strings.IndexByte(locale, '.')
		if dot < 0 {
			return utf8Encoding
		}
		charset := locale[dot+1:]
		if at := strings.IndexByte(charset, '@'); at >= 0 {
			charset = charset[:at]
		}
		if e, err := FromCharset(charset); err == nil {
			return e
		}
		return utf8Encoding
	}
	return utf8Encoding
}

// ParseList resolves charset names, skipping unknown names and duplicates.
func ParseList(charsets []string) []*Encoding {
	seen := make(map[*Encoding]bool, len(charsets))
	out := make([]*Encoding, 0, len(charsets))
	for _, cs := range charsets {
		e, err := FromCharset(cs)
		if err != nil || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
