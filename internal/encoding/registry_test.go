package encoding

import (
	"errors"
	"testing"
)

func TestFromCharset(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"UTF-8", "UTF-8"},
		{"utf8", "UTF-8"},
		{"iso-8859-15", "ISO-8859-15"},
		{"latin1", "ISO-8859-1"},
		{"windows-1251", "WINDOWS-1251"},
		{"Shift_JIS", "SHIFT_JIS"},
	}

	for _, tt := range tests {
		e, err := FromCharset(tt.input)
		if err != nil {
			t.Errorf("FromCharset(%q) error = %v", tt.input, err)
			continue
		}
		if e.Charset() != tt.want {
			t.Errorf("FromCharset(%q) = %s, want %s", tt.input, e.Charset(), tt.want)
		}
	}
}

func TestFromCharset_Unknown(t *testing.T) {
	_, err := FromCharset("klingon-8")
	if !errors.Is(err, ErrUnknownCharset) {
		t.Errorf("FromCharset() error = %v, want ErrUnknownCharset", err)
	}
}

func TestFromCharset_SamePointer(t *testing.T) {
	a, _ := FromCharset("ISO-8859-15")
	b, _ := FromCharset("iso-8859-15")
	if a != b {
		t.Error("lookups of the same charset returned different encodings")
	}
}

func TestEncoding_String(t *testing.T) {
	e, _ := FromCharset("ISO-8859-15")
	if got := e.String(); got != "Western (ISO-8859-15)" {
		t.Errorf("String() = %q", got)
	}
}

func TestEncoding_DecodeStrict(t *testing.T) {
	if _, err := UTF8().Decode([]byte{0xff, 'a'}); !errors.Is(err, ErrInvalidSequence) {
		t.Errorf("UTF8 Decode(invalid) error = %v, want ErrInvalidSequence", err)
	}

	latin9, _ := FromCharset("ISO-8859-15")
	got, err := latin9.Decode([]byte{'c', 'o', 0xfb, 't', ' ', 0xa4})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != "coût €" {
		t.Errorf("Decode() = %q, want %q", got, "coût €")
	}
}

func TestEncoding_DecodeLossy(t *testing.T) {
	got := UTF8().DecodeLossy([]byte{'a', 0xff, 'b'})
	if got != "a�b" {
		t.Errorf("DecodeLossy() = %q", got)
	}
}

func TestEncoding_EncodeUnrepresentable(t *testing.T) {
	latin1, _ := FromCharset("ISO-8859-1")
	if _, err := latin1.Encode("price: €"); !errors.Is(err, ErrUnrepresentable) {
		t.Errorf("Encode() error = %v, want ErrUnrepresentable", err)
	}

	out, err := latin1.Encode("café")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(out) != "caf\xe9" {
		t.Errorf("Encode() = %q", out)
	}
}

func TestLocaleEncoding(t *testing.T) {
	env := map[string]string{"LANG": "fr_FR.ISO-8859-15@euro"}
	e := localeEncoding(func(k string) string { return env[k] })
	if e.Charset() != "ISO-8859-15" {
		t.Errorf("localeEncoding() = %s, want ISO-8859-15", e.Charset())
	}

	e = localeEncoding(func(string) string { return "" })
	if !e.IsUTF8() {
		t.Errorf("localeEncoding(empty) = %s, want UTF-8", e.Charset())
	}
}

func TestParseList(t *testing.T) {
	list := ParseList([]string{"UTF-8", "bogus", "utf8", "ISO-8859-15"})
	if len(list) != 2 {
		t.Fatalf("ParseList() len = %d, want 2", len(list))
	}
	if list[0] != UTF8() || list[1].Charset() != "ISO-8859-15" {
		t.Errorf("ParseList() = %v", list)
	}
}
