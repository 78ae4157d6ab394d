package document

import (
	"context"
	"errors"
	"io"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/mainloop"
	"github.com/dshills/quire/internal/vfs"
)

// Loader defaults.
const (
	DefaultMaxFileSize = 100 * 1024 * 1024
	DefaultChunkSize   = 64 * 1024
)

// DefaultCandidates are tried, in order, when no encoding is requested.
var DefaultCandidates = []string{"UTF-8", "CURRENT", "ISO-8859-15"}

// LoaderConfig holds the collaborators of a Loader.
type LoaderConfig struct {
	FS        vfs.FS
	Scheduler mainloop.Scheduler
	// Metadata supplies the encoding remembered for the location.
	Metadata Metadata
	// Candidates are tried in order during detection. Defaults to
	// DefaultCandidates.
	Candidates []*encoding.Encoding
	// Create makes a missing file load as an empty document.
	Create      bool
	MaxFileSize int64
	ChunkSize   int
	Logger      *logging.Logger
}

// Loader reads one location into one document. It may be driven through
// exactly one load.
type Loader struct {
	task

	doc      *Document
	uri      string
	encoding *encoding.Encoding
	newline  encoding.NewlineType
	info     vfs.FileInfo

	cfg LoaderConfig
	log *logging.Logger
}

// NewLoader creates a loader for uri. A nil enc requests auto-detection.
func NewLoader(doc *Document, uri string, enc *encoding.Encoding, cfg LoaderConfig) *Loader {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Candidates == nil {
		cfg.Candidates = encoding.ParseList(DefaultCandidates)
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NullLogger
	}
	return &Loader{
		task:     task{name: "load", sched: cfg.Scheduler},
		doc:      doc,
		uri:      uri,
		encoding: enc,
		newline:  encoding.DefaultNewline,
		cfg:      cfg,
		log:      log.WithComponent("loader"),
	}
}

// Document returns the target document.
func (l *Loader) Document() *Document { return l.doc }

// Location returns the source URI.
func (l *Loader) Location() string { return l.uri }

// Encoding returns the requested encoding before completion and the
// resolved one after.
func (l *Loader) Encoding() *encoding.Encoding { return l.encoding }

// NewlineType returns the detected line terminator convention.
func (l *Loader) NewlineType() encoding.NewlineType { return l.newline }

// Info returns the file metadata snapshot taken during the load.
func (l *Loader) Info() vfs.FileInfo { return l.info }

// BytesRead returns the number of bytes read so far.
func (l *Loader) BytesRead() int64 { return l.BytesDone() }

type loadResult struct {
	text     string
	encoding *encoding.Encoding
	newline  encoding.NewlineType
	info     vfs.FileInfo
	readOnly bool
}

// Load starts reading. notify runs on the loop goroutine. Calling Load twice
// panics.
func (l *Loader) Load(ctx context.Context, notify NotifyFunc) {
	ctx = l.start(ctx, notify)
	requested := l.encoding
	var remembered *encoding.Encoding
	if requested == nil && l.cfg.Metadata != nil {
		if cs := l.cfg.Metadata.Get(l.uri, MetadataEncoding); cs != "" {
			remembered, _ = encoding.FromCharset(cs)
		}
	}

	l.log.Debug("loading %s", l.uri)
	go func() {
		res, err := l.read(ctx, requested, remembered)
		l.complete(err, func(err error) error {
			if err != nil && !HasCode(err, CodeConversionFallback) {
				return err
			}
			l.encoding = res.encoding
			l.newline = res.newline
			l.info = res.info
			l.doc.applyLoad(l.uri, res.text, res.encoding, res.newline, res.info, res.readOnly)
			return err
		})
	}()
}

func (l *Loader) read(ctx context.Context, requested, remembered *encoding.Encoding) (loadResult, error) {
	var res loadResult

	path, err := vfs.PathFromURI(l.uri)
	if err != nil {
		return res, ioError(err, "open", l.uri)
	}

	info, err := l.cfg.FS.Stat(path)
	if err != nil {
		if classify(err) != CodeNotFound || !l.cfg.Create {
			return res, ioError(err, "stat", l.uri)
		}
		enc := requested
		if enc == nil {
			enc = encoding.UTF8()
		}
		res.encoding = enc
		res.newline = encoding.DefaultNewline
		return res, nil
	}
	if info.IsDir() || !info.IsRegular() {
		return res, newError(CodeNotRegularFile, "%s is not a regular file", l.uri)
	}
	if info.Size() > l.cfg.MaxFileSize {
		return res, newError(CodeTooBig, "%s is too big (%d bytes)", l.uri, info.Size())
	}
	l.total.Store(info.Size())
	res.info = info
	res.readOnly = !info.Writable()

	data, err := l.readAll(ctx, path, info.Size())
	if err != nil {
		return res, err
	}

	text, enc, err := l.decode(data, requested, remembered)
	if err != nil && !HasCode(err, CodeConversionFallback) {
		return res, err
	}
	res.encoding = enc
	res.newline = encoding.DetectNewline(text)
	res.text = encoding.NormalizeNewlines(text)
	return res, err
}

func (l *Loader) readAll(ctx context.Context, path string, size int64) ([]byte, error) {
	r, err := l.cfg.FS.Open(path)
	if err != nil {
		return nil, ioError(err, "open", l.uri)
	}
	defer r.Close()

	data := make([]byte, 0, size)
	buf := make([]byte, l.cfg.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, wrapError(err, CodeCancelled, "load %s", l.uri)
		}
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			l.progress(n)
		}
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			return nil, ioError(err, "read", l.uri)
		}
	}
}

// decode converts data to text. With an explicit encoding a failure is a
// conversion error. Otherwise each candidate is tried and, if none fits, the
// first candidate is applied lossily and CodeConversionFallback is returned
// alongside the text.
func (l *Loader) decode(data []byte, requested, remembered *encoding.Encoding) (string, *encoding.Encoding, error) {
	bom, stripped := encoding.DetectBOM(data)

	if requested != nil {
		in := data
		if bom == requested {
			in = stripped
		}
		text, err := requested.Decode(in)
		if err != nil {
			return "", requested, wrapError(err, CodeConversion, "decode %s as %s", l.uri, requested.Charset())
		}
		return text, requested, nil
	}

	var candidates []*encoding.Encoding
	if bom != nil {
		candidates = append(candidates, bom)
	}
	if remembered != nil {
		candidates = append(candidates, remembered)
	}
	candidates = append(candidates, l.cfg.Candidates...)

	for _, enc := range candidates {
		in := data
		if enc == bom {
			in = stripped
		}
		if text, err := enc.Decode(in); err == nil {
			return text, enc, nil
		}
	}

	fallback := encoding.UTF8()
	if len(l.cfg.Candidates) > 0 {
		fallback = l.cfg.Candidates[0]
	}
	l.log.Warn("no candidate encoding fits %s, falling back to %s", l.uri, fallback.Charset())
	return fallback.DecodeLossy(data), fallback,
		newError(CodeConversionFallback, "%s decoded with fallback encoding %s", l.uri, fallback.Charset())
}
