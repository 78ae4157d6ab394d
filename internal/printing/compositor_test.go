package printing

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/quire/internal/settings"
)

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line%d\n", i)
	}
	return b.String()
}

func paginateAll(t *testing.T, c *Compositor) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if c.Paginate() {
			return
		}
	}
	t.Fatal("Paginate() never completed")
}

func render(t *testing.T, c *Compositor, page int) string {
	t.Helper()
	var b strings.Builder
	if err := c.DrawPage(&b, page); err != nil {
		t.Fatalf("DrawPage(%d) error = %v", page, err)
	}
	return b.String()
}

func TestCompositor_Pages(t *testing.T) {
	setup := PageSetup{Lines: 10, Columns: 40}
	c := NewCompositor(numberedLines(20), "/tmp/a.txt", setup, Options{Header: true})
	paginateAll(t, c)

	if c.NPages() != 3 {
		t.Fatalf("NPages() = %d, want 3", c.NPages())
	}
	if !c.Done() {
		t.Error("Done() = false after pagination")
	}

	first := strings.Split(render(t, c, 0), "\n")
	wantHeader := "File: /tmp/a.txt" + strings.Repeat(" ", 40-16-11) + "Page 1 of 3"
	if first[0] != wantHeader {
		t.Errorf("header = %q, want %q", first[0], wantHeader)
	}
	if first[1] != "" || first[2] != "line1" || first[9] != "line8" {
		t.Errorf("page 1 body = %q", first[1:])
	}

	last := render(t, c, 2)
	if !strings.HasSuffix(strings.Split(last, "\n")[0], "Page 3 of 3") {
		t.Errorf("last header = %q", strings.Split(last, "\n")[0])
	}
	if !strings.HasSuffix(last, "line17\nline18\nline19\nline20\n") {
		t.Errorf("last page = %q", last)
	}

	var b strings.Builder
	if err := c.DrawPage(&b, 3); !errors.Is(err, ErrPageRange) {
		t.Errorf("DrawPage(3) error = %v, want ErrPageRange", err)
	}
}

func TestCompositor_HeaderTruncatesName(t *testing.T) {
	name := "/" + strings.Repeat("d", 100) + "/file.txt"
	c := NewCompositor("x", name, PageSetup{Lines: 10, Columns: 200}, Options{Header: true})
	paginateAll(t, c)

	header := strings.Split(render(t, c, 0), "\n")[0]
	got := strings.TrimSpace(strings.TrimSuffix(header, "Page 1 of 1"))
	got = strings.TrimPrefix(got, "File: ")
	if n := len([]rune(got)); n != HeaderNameWidth {
		t.Errorf("header name has %d runes, want %d: %q", n, HeaderNameWidth, got)
	}
	if !strings.HasSuffix(got, "/file.txt") || !strings.Contains(got, "…") {
		t.Errorf("header name = %q, want middle truncation", got)
	}
}

func TestCompositor_LineNumbers(t *testing.T) {
	c := NewCompositor(numberedLines(12), "a", PageSetup{Lines: 20, Columns: 40}, Options{LineNumbers: 5})
	paginateAll(t, c)

	lines := strings.Split(render(t, c, 0), "\n")
	tests := map[int]string{
		0:  "   line1",
		4:  " 5 line5",
		9:  "10 line10",
		11: "   line12",
	}
	for i, want := range tests {
		if lines[i] != want {
			t.Errorf("row %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestCompositor_Wrap(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{settings.WrapWord, "hello\nworld foo\n"},
		{settings.WrapChar, "hello worl\nd foo\n"},
		{settings.WrapNone, "hello worl\n"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			c := NewCompositor("hello world foo", "a", PageSetup{Lines: 10, Columns: 10}, Options{WrapMode: tt.mode})
			paginateAll(t, c)
			if got := render(t, c, 0); got != tt.want {
				t.Errorf("page = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompositor_WrapWideCharacters(t *testing.T) {
	c := NewCompositor("日本語テキスト", "a", PageSetup{Lines: 10, Columns: 10}, Options{WrapMode: settings.WrapChar})
	paginateAll(t, c)
	if got, want := render(t, c, 0), "日本語テキ\nスト\n"; got != want {
		t.Errorf("page = %q, want %q", got, want)
	}
}

func TestCompositor_ExpandsTabs(t *testing.T) {
	c := NewCompositor("a\tb", "a", PageSetup{Lines: 10, Columns: 40}, Options{TabWidth: 4})
	paginateAll(t, c)
	if got := render(t, c, 0); got != "a   b\n" {
		t.Errorf("page = %q, want %q", got, "a   b\n")
	}
}

func TestCompositor_ChunkedProgress(t *testing.T) {
	c := NewCompositor(numberedLines(20), "a", PageSetup{Lines: 10, Columns: 40}, Options{})
	c.SetChunkLines(5)

	var progress []float64
	for !c.Paginate() {
		progress = append(progress, c.PaginationProgress())
	}
	progress = append(progress, c.PaginationProgress())

	if diff := cmp.Diff([]float64{0.25, 0.5, 0.75, 1}, progress); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
	if c.NPages() != 2 {
		t.Errorf("NPages() = %d, want 2", c.NPages())
	}
}

func TestCompositor_EmptyText(t *testing.T) {
	c := NewCompositor("", "a", DefaultPageSetup(), Options{})
	paginateAll(t, c)
	if c.NPages() != 1 {
		t.Errorf("NPages() = %d, want 1", c.NPages())
	}
}

func TestPageSetup_Grid(t *testing.T) {
	p := PageSetup{Orientation: Landscape, Lines: 66, Columns: 80}
	lines, columns := p.Grid()
	if lines != 80 || columns != 66 {
		t.Errorf("Grid() = %d, %d, want 80, 66", lines, columns)
	}
	lines, columns = PageSetup{}.Grid()
	if lines != 1 || columns != 1 {
		t.Errorf("zero Grid() = %d, %d, want 1, 1", lines, columns)
	}
}
