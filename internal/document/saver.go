package document

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/dshills/quire/internal/encoding"
	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/mainloop"
	"github.com/dshills/quire/internal/vfs"
)

// BackupSuffix is appended to a file name to form its backup copy.
const BackupSuffix = "~"

// SaverConfig holds the collaborators of a Saver.
type SaverConfig struct {
	FS        vfs.FS
	Scheduler mainloop.Scheduler
	// CreateBackup copies the previous file content to "<name>~" first.
	CreateBackup bool
	ChunkSize    int
	Logger       *logging.Logger
}

// Saver writes one document to one location. It may be driven through
// exactly one save.
type Saver struct {
	task

	doc      *Document
	uri      string
	encoding *encoding.Encoding
	newline  encoding.NewlineType
	flags    SaveFlags

	cfg SaverConfig
	log *logging.Logger
}

// NewSaver creates a saver writing doc to uri.
func NewSaver(doc *Document, uri string, enc *encoding.Encoding, nl encoding.NewlineType, flags SaveFlags, cfg SaverConfig) *Saver {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if enc == nil {
		enc = encoding.UTF8()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NullLogger
	}
	return &Saver{
		task:     task{name: "save", sched: cfg.Scheduler},
		doc:      doc,
		uri:      uri,
		encoding: enc,
		newline:  nl,
		flags:    flags,
		cfg:      cfg,
		log:      log.WithComponent("saver"),
	}
}

// Document returns the source document.
func (s *Saver) Document() *Document { return s.doc }

// Location returns the target URI.
func (s *Saver) Location() string { return s.uri }

// Encoding returns the target encoding.
func (s *Saver) Encoding() *encoding.Encoding { return s.encoding }

// Flags returns the save flags.
func (s *Saver) Flags() SaveFlags { return s.flags }

// BytesWritten returns the number of bytes written so far.
func (s *Saver) BytesWritten() int64 { return s.BytesDone() }

type saveSnapshot struct {
	text     string
	location string
	mtime    time.Time
}

// Save starts writing. The document text is captured before Save returns.
// Calling Save twice panics.
func (s *Saver) Save(ctx context.Context, notify NotifyFunc) {
	ctx = s.start(ctx, notify)
	snap := saveSnapshot{
		text:     s.doc.Text(),
		location: s.doc.Location(),
		mtime:    s.doc.ModTime(),
	}

	s.log.Debug("saving %s as %s (%s)", s.uri, s.encoding.Charset(), s.flags)
	go func() {
		info, err := s.write(ctx, snap)
		s.complete(err, func(err error) error {
			if err != nil {
				return err
			}
			s.doc.applySave(s.uri, s.encoding, s.newline, info)
			return nil
		})
	}()
}

func (s *Saver) write(ctx context.Context, snap saveSnapshot) (vfs.FileInfo, error) {
	path, err := vfs.PathFromURI(s.uri)
	if err != nil {
		return vfs.FileInfo{}, ioError(err, "save", s.uri)
	}

	data, err := s.encoding.Encode(encoding.ApplyNewlines(snap.text, s.newline))
	if err != nil {
		return vfs.FileInfo{}, wrapError(err, CodeConversion, "encode %s as %s", s.uri, s.encoding.Charset())
	}
	s.total.Store(int64(len(data)))

	perm := fs.FileMode(0o644)
	existing, statErr := s.cfg.FS.Stat(path)
	exists := statErr == nil
	if statErr != nil && classify(statErr) != CodeNotFound {
		return vfs.FileInfo{}, ioError(statErr, "stat", s.uri)
	}
	if exists {
		if existing.IsDir() || !existing.IsRegular() {
			return vfs.FileInfo{}, newError(CodeNotRegularFile, "%s is not a regular file", s.uri)
		}
		if !existing.Writable() {
			return vfs.FileInfo{}, newError(CodePermissionDenied, "%s is not writable", s.uri)
		}
		if !s.flags.Has(SaveIgnoreMTime) && snap.location == s.uri && !snap.mtime.IsZero() &&
			!existing.ModTime().Equal(snap.mtime) {
			return vfs.FileInfo{}, newError(CodeExternallyModified, "%s was modified on disk", s.uri)
		}
		perm = existing.Mode().Perm()

		if s.cfg.CreateBackup && !s.flags.Has(SaveIgnoreBackup) {
			if err := s.backup(path); err != nil {
				return vfs.FileInfo{}, err
			}
		}
	}

	if err := s.replace(ctx, path, data, perm); err != nil {
		return vfs.FileInfo{}, err
	}

	info, err := s.cfg.FS.Stat(path)
	if err != nil {
		return vfs.FileInfo{}, ioError(err, "stat", s.uri)
	}
	return info, nil
}

// backup copies the current file to path~. With SavePreserveBackup an
// existing backup is kept.
func (s *Saver) backup(path string) error {
	backupPath := path + BackupSuffix
	if s.flags.Has(SavePreserveBackup) && vfs.Exists(s.cfg.FS, backupPath) {
		return nil
	}

	src, err := s.cfg.FS.Open(path)
	if err != nil {
		return wrapError(err, CodeCantCreateBackup, "read %s for backup", s.uri)
	}
	defer src.Close()

	dst, err := s.cfg.FS.Create(backupPath, 0o600)
	if err != nil {
		return wrapError(err, CodeCantCreateBackup, "create backup of %s", s.uri)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return wrapError(err, CodeCantCreateBackup, "write backup of %s", s.uri)
	}
	if err := dst.Close(); err != nil {
		return wrapError(err, CodeCantCreateBackup, "close backup of %s", s.uri)
	}
	return nil
}

// replace writes data to a temporary sibling and renames it over path.
func (s *Saver) replace(ctx context.Context, path string, data []byte, perm fs.FileMode) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".quire-save")
	w, err := s.cfg.FS.Create(tmp, perm)
	if err != nil {
		return ioError(err, "create", s.uri)
	}

	abort := func(err error) error {
		_ = w.Close()
		_ = s.cfg.FS.Remove(tmp)
		return err
	}

	for off := 0; off < len(data); off += s.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return abort(wrapError(err, CodeCancelled, "save %s", s.uri))
		}
		end := off + s.cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		n, err := w.Write(data[off:end])
		if err != nil {
			return abort(ioError(err, "write", s.uri))
		}
		s.progress(n)
	}

	if err := w.Close(); err != nil {
		_ = s.cfg.FS.Remove(tmp)
		return ioError(err, "close", s.uri)
	}
	if err := ctx.Err(); err != nil {
		_ = s.cfg.FS.Remove(tmp)
		return wrapError(err, CodeCancelled, "save %s", s.uri)
	}
	if err := s.cfg.FS.Rename(tmp, path); err != nil {
		_ = s.cfg.FS.Remove(tmp)
		if errors.Is(err, fs.ErrNotExist) {
			return newError(CodeNotFound, "save %s: parent directory missing", s.uri)
		}
		return ioError(err, "rename", s.uri)
	}
	return nil
}
