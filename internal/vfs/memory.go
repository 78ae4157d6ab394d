package vfs

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Standard error values for MemFS operations.
// These align with POSIX errors for consistency with OSFS.
var (
	errIsDir    = syscall.EISDIR
	errNotDir   = syscall.ENOTDIR
	errNotEmpty = syscall.ENOTEMPTY
)

// MemFS implements FS using an in-memory file system.
// It is used by tests and by command flows that stage output.
//
// MemFS is safe for concurrent use.
type MemFS struct {
	mu     sync.RWMutex
	files  map[string]*memFile
	dirs   map[string]bool
	now    func() time.Time
	faults map[string]error
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMemFS creates a new in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files:  make(map[string]*memFile),
		dirs:   map[string]bool{"/": true},
		now:    time.Now,
		faults: make(map[string]error),
	}
}

var _ FS = (*MemFS)(nil)

// SetClock sets the function used to stamp modification times.
func (m *MemFS) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Fail makes every op on filePath return err until cleared with a nil err.
// op is one of "open", "stat", "create", "rename", "remove".
func (m *MemFS) Fail(op, filePath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + ":" + m.cleanPath(filePath)
	if err == nil {
		delete(m.faults, key)
		return
	}
	m.faults[key] = err
}

func (m *MemFS) fault(op, filePath string) error {
	if err, ok := m.faults[op+":"+filePath]; ok {
		return &fs.PathError{Op: op, Path: filePath, Err: err}
	}
	return nil
}

// Open opens a file for reading.
func (m *MemFS) Open(filePath string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if err := m.fault("open", filePath); err != nil {
		return nil, err
	}
	f, ok := m.files[filePath]
	if !ok {
		if m.dirs[filePath] {
			return nil, &fs.PathError{Op: "open", Path: filePath, Err: errIsDir}
		}
		return nil, &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrNotExist}
	}
	if f.mode.Perm()&0o400 == 0 {
		return nil, &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrPermission}
	}

	content := make([]byte, len(f.content))
	copy(content, f.content)
	return io.NopCloser(bytes.NewReader(content)), nil
}

// Stat returns file information.
func (m *MemFS) Stat(filePath string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if err := m.fault("stat", filePath); err != nil {
		return FileInfo{}, err
	}

	if f, ok := m.files[filePath]; ok {
		return NewFileInfo(filePath, path.Base(filePath), int64(len(f.content)), f.mode, f.modTime, false), nil
	}
	if m.dirs[filePath] {
		return NewFileInfo(filePath, path.Base(filePath), 0, fs.ModeDir|0o755, time.Time{}, true), nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
}

// ReadDir reads a directory and returns its entries.
func (m *MemFS) ReadDir(dirPath string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirPath = m.cleanPath(dirPath)
	if !m.dirs[dirPath] {
		if _, ok := m.files[dirPath]; ok {
			return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: errNotDir}
		}
		return nil, &fs.PathError{Op: "readdir", Path: dirPath, Err: fs.ErrNotExist}
	}

	var entries []FileInfo
	for p, f := range m.files {
		if path.Dir(p) == dirPath {
			entries = append(entries, NewFileInfo(p, path.Base(p), int64(len(f.content)), f.mode, f.modTime, false))
		}
	}
	for d := range m.dirs {
		if d != dirPath && path.Dir(d) == dirPath {
			entries = append(entries, NewFileInfo(d, path.Base(d), 0, fs.ModeDir|0o755, time.Time{}, true))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, nil
}

// Create creates or truncates a file for writing. Content becomes visible
// when the writer is closed.
func (m *MemFS) Create(filePath string, perm fs.FileMode) (io.WriteCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filePath = m.cleanPath(filePath)
	if err := m.fault("create", filePath); err != nil {
		return nil, err
	}
	if m.dirs[filePath] {
		return nil, &fs.PathError{Op: "create", Path: filePath, Err: errIsDir}
	}
	if !m.dirs[path.Dir(filePath)] {
		return nil, &fs.PathError{Op: "create", Path: filePath, Err: fs.ErrNotExist}
	}
	if f, ok := m.files[filePath]; ok {
		if f.mode.Perm()&0o200 == 0 {
			return nil, &fs.PathError{Op: "create", Path: filePath, Err: fs.ErrPermission}
		}
		perm = f.mode
	}
	return &memWriter{fs: m, path: filePath, perm: perm}, nil
}

// MkdirAll creates a directory and all parent directories.
func (m *MemFS) MkdirAll(dirPath string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirPath = m.cleanPath(dirPath)
	for p := dirPath; ; p = path.Dir(p) {
		if _, ok := m.files[p]; ok {
			return &fs.PathError{Op: "mkdir", Path: p, Err: errNotDir}
		}
		m.dirs[p] = true
		if p == "/" {
			return nil
		}
	}
}

// Remove removes a file or empty directory.
func (m *MemFS) Remove(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	if err := m.fault("remove", filePath); err != nil {
		return err
	}
	if _, ok := m.files[filePath]; ok {
		delete(m.files, filePath)
		return nil
	}
	if m.dirs[filePath] {
		prefix := filePath + "/"
		for p := range m.files {
			if strings.HasPrefix(p, prefix) {
				return &fs.PathError{Op: "remove", Path: filePath, Err: errNotEmpty}
			}
		}
		for d := range m.dirs {
			if strings.HasPrefix(d, prefix) {
				return &fs.PathError{Op: "remove", Path: filePath, Err: errNotEmpty}
			}
		}
		delete(m.dirs, filePath)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: filePath, Err: fs.ErrNotExist}
}

// Rename renames a file.
func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldPath = m.cleanPath(oldPath)
	newPath = m.cleanPath(newPath)
	if err := m.fault("rename", oldPath); err != nil {
		return err
	}
	f, ok := m.files[oldPath]
	if !ok {
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: fs.ErrNotExist}
	}
	if !m.dirs[path.Dir(newPath)] {
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: fs.ErrNotExist}
	}
	delete(m.files, oldPath)
	m.files[newPath] = f
	return nil
}

// WriteFile writes data to a file, creating parent directories.
func (m *MemFS) WriteFile(filePath string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	for p := path.Dir(filePath); !m.dirs[p]; p = path.Dir(p) {
		m.dirs[p] = true
	}
	content := make([]byte, len(data))
	copy(content, data)
	m.files[filePath] = &memFile{content: content, mode: perm, modTime: m.now()}
	return nil
}

// AddFile is a convenience method for adding files during setup.
func (m *MemFS) AddFile(filePath string, content string) error {
	return m.WriteFile(filePath, []byte(content), 0o644)
}

// ReadFile returns the content of a file.
func (m *MemFS) ReadFile(filePath string) ([]byte, error) {
	r, err := m.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Chmod changes the mode of a file.
func (m *MemFS) Chmod(filePath string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		return &fs.PathError{Op: "chmod", Path: filePath, Err: fs.ErrNotExist}
	}
	f.mode = mode
	return nil
}

// Touch sets the modification time of a file.
func (m *MemFS) Touch(filePath string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	filePath = m.cleanPath(filePath)
	f, ok := m.files[filePath]
	if !ok {
		return &fs.PathError{Op: "touch", Path: filePath, Err: fs.ErrNotExist}
	}
	f.modTime = t
	return nil
}

// Files returns all file paths in the file system.
func (m *MemFS) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]string, 0, len(m.files))
	for f := range m.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func (m *MemFS) cleanPath(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

type memWriter struct {
	fs   *MemFS
	path string
	perm fs.FileMode
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (n int, err error) {
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	return w.fs.WriteFile(w.path, w.buf.Bytes(), w.perm)
}
