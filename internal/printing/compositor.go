package printing

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/dshills/quire/internal/settings"
	"github.com/dshills/quire/internal/vfs"
	"github.com/rivo/uniseg"
)

// HeaderNameWidth is the longest document name shown in a page header.
const HeaderNameWidth = 60

// DefaultChunkLines is the number of source lines paginated per step.
const DefaultChunkLines = 500

const defaultTabWidth = 8

// Options control how a document is laid out on pages.
type Options struct {
	Header bool
	// LineNumbers prints the number of every Nth line; 0 disables numbers.
	LineNumbers int
	WrapMode    string
	TabWidth    int
	BodyFont    string
	HeaderFont  string
	NumbersFont string
}

// OptionsFromSettings converts the print preferences.
func OptionsFromSettings(p settings.Print) Options {
	return Options{
		Header:      p.Header,
		LineNumbers: p.LineNumbers,
		WrapMode:    p.WrapMode,
		TabWidth:    defaultTabWidth,
		BodyFont:    p.BodyFont,
		HeaderFont:  p.HeaderFont,
		NumbersFont: p.NumbersFont,
	}
}

type row struct {
	number int
	text   string
}

// Compositor splits a text into pages of a fixed character grid.
// Pagination runs in chunks so that a caller can report progress between
// steps.
type Compositor struct {
	opts  Options
	name  string
	lines []string
	chunk int

	rows    int
	columns int
	width   int
	gutter  int
	next    int
	pages   [][]row
	current []row
}

// NewCompositor prepares text for layout on pages described by setup.
// name is shown in the page header.
func NewCompositor(text, name string, setup PageSetup, opts Options) *Compositor {
	if opts.TabWidth <= 0 {
		opts.TabWidth = defaultTabWidth
	}
	lines, columns := setup.Grid()
	c := &Compositor{
		opts:  opts,
		name:  vfs.TruncateMiddle(name, HeaderNameWidth),
		lines: strings.Split(strings.TrimSuffix(text, "\n"), "\n"),
		chunk: DefaultChunkLines,
		rows:  lines,
	}
	c.columns = columns
	if opts.Header {
		c.rows -= 2
	}
	if c.rows < 1 {
		c.rows = 1
	}
	if opts.LineNumbers > 0 {
		c.gutter = len(fmt.Sprint(len(c.lines))) + 1
	}
	c.width = columns - c.gutter
	if c.width < 1 {
		c.width = 1
	}
	return c
}

// SetChunkLines sets the number of source lines handled per Paginate call.
func (c *Compositor) SetChunkLines(n int) {
	if n > 0 {
		c.chunk = n
	}
}

// Paginate lays out the next chunk of lines. It returns true once the whole
// text has been paginated.
func (c *Compositor) Paginate() bool {
	end := min(c.next+c.chunk, len(c.lines))
	for ; c.next < end; c.next++ {
		number := 0
		if c.opts.LineNumbers > 0 && (c.next+1)%c.opts.LineNumbers == 0 {
			number = c.next + 1
		}
		for i, seg := range c.wrap(expandTabs(c.lines[c.next], c.opts.TabWidth)) {
			r := row{text: seg}
			if i == 0 {
				r.number = number
			}
			c.add(r)
		}
	}
	if c.next < len(c.lines) {
		return false
	}
	if len(c.current) > 0 || len(c.pages) == 0 {
		c.pages = append(c.pages, c.current)
		c.current = nil
	}
	return true
}

func (c *Compositor) add(r row) {
	c.current = append(c.current, r)
	if len(c.current) == c.rows {
		c.pages = append(c.pages, c.current)
		c.current = nil
	}
}

// PaginationProgress returns the paginated fraction of the text in [0,1].
func (c *Compositor) PaginationProgress() float64 {
	return float64(c.next) / float64(len(c.lines))
}

// Done reports whether pagination has finished.
func (c *Compositor) Done() bool {
	return c.next == len(c.lines) && c.current == nil && len(c.pages) > 0
}

// NPages returns the number of pages laid out so far.
func (c *Compositor) NPages() int { return len(c.pages) }

// DrawPage writes page i (zero based) to w.
func (c *Compositor) DrawPage(w io.Writer, i int) error {
	if i < 0 || i >= len(c.pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, i, len(c.pages))
	}
	var b strings.Builder
	if c.opts.Header {
		b.WriteString(c.header(i))
		b.WriteString("\n\n")
	}
	for _, r := range c.pages[i] {
		if c.gutter > 0 {
			if r.number > 0 {
				fmt.Fprintf(&b, "%*d ", c.gutter-1, r.number)
			} else {
				b.WriteString(strings.Repeat(" ", c.gutter))
			}
		}
		b.WriteString(r.text)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *Compositor) header(i int) string {
	left := "File: " + c.name
	right := fmt.Sprintf("Page %d of %d", i+1, len(c.pages))
	pad := c.columns - uniseg.StringWidth(left) - uniseg.StringWidth(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

// wrap splits line into rows no wider than the text area. Widths are
// counted in terminal columns per grapheme cluster.
func (c *Compositor) wrap(line string) []string {
	if uniseg.StringWidth(line) <= c.width {
		return []string{line}
	}
	cl := clusters(line)
	var out []string
	for columns(cl) > c.width {
		n := fit(cl, c.width)
		if c.opts.WrapMode == settings.WrapNone {
			return []string{join(cl[:n])}
		}
		cut := n
		if c.opts.WrapMode == settings.WrapWord {
			for j := n; j > 0; j-- {
				if j < len(cl) && cl[j].space {
					cut = j
					break
				}
			}
		}
		out = append(out, strings.TrimRightFunc(join(cl[:cut]), unicode.IsSpace))
		cl = cl[cut:]
		if c.opts.WrapMode == settings.WrapWord {
			for len(cl) > 0 && cl[0].space {
				cl = cl[1:]
			}
		}
	}
	if len(cl) > 0 {
		out = append(out, join(cl))
	}
	return out
}

type cluster struct {
	text  string
	width int
	space bool
}

func clusters(s string) []cluster {
	var out []cluster
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, cluster{
			text:  g.Str(),
			width: g.Width(),
			space: unicode.IsSpace(g.Runes()[0]),
		})
	}
	return out
}

func columns(cl []cluster) int {
	n := 0
	for _, c := range cl {
		n += c.width
	}
	return n
}

// fit returns how many leading clusters fit in width. At least one is
// always taken so a cluster wider than the row still makes progress.
func fit(cl []cluster, width int) int {
	used := 0
	for i, c := range cl {
		if used+c.width > width {
			return max(i, 1)
		}
		used += c.width
	}
	return len(cl)
}

func join(cl []cluster) string {
	var b strings.Builder
	for _, c := range cl {
		b.WriteString(c.text)
	}
	return b.String()
}

func expandTabs(s string, width int) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := width - col%width
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}
