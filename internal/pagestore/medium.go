package pagestore

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Medium is the backing block device PS writes through: a flat,
// fixed-page-size address space supporting read, overwrite, and
// erase-by-block. A file-backed implementation and a raw in-memory one
// (for tests) are provided; a raw-flash shim would satisfy the same
// interface without PS or BT needing to change.
type Medium interface {
	ReadPage(pnum uint32, dst []byte) error
	WritePage(pnum uint32, src []byte) error
	ErasePages(first, last uint32) error
	NumPages() uint32
	Close() error
}

var sig = []byte{'e', 'm', 'b', 't', 'r', 'e', 'e', '1', '\n'}

// FileMedium backs the page address space with a regular file, one
// page_size stripe per physical page. Erase is a no-op here; flash
// correctness depends entirely on a real flash-backed Medium.
type FileMedium struct {
	file     *os.File
	pageSize int
	numPages uint32
}

// OpenFileMedium opens path, creating it (and stamping the signature
// header ahead of page 0) if it does not already exist, preallocating
// numPages worth of zeroed pages.
func OpenFileMedium(path string, pageSize int, numPages uint32) (*FileMedium, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	switch {
	case os.IsNotExist(err):
		f, err = createMediumFile(path, pageSize, numPages)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("pagestore: open %s: %w", path, err)
	default:
		if sigErr := checkSignature(f); sigErr != nil {
			f.Close()
			return nil, sigErr
		}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pagestore: stat %s: %w", path, err)
	}
	wantSize := int64(len(sig)) + int64(pageSize)*int64(numPages)
	if info.Size() != wantSize {
		f.Close()
		return nil, fmt.Errorf("pagestore: %w: %s", ErrCorruptFile, path)
	}

	return &FileMedium{file: f, pageSize: pageSize, numPages: numPages}, nil
}

func createMediumFile(path string, pageSize int, numPages uint32) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("pagestore: create %s: %w", path, err)
	}
	if _, err := f.Write(sig); err != nil {
		f.Close()
		return nil, fmt.Errorf("pagestore: write signature: %w", err)
	}
	blank := make([]byte, pageSize)
	for i := uint32(0); i < numPages; i++ {
		if _, err := f.Write(blank); err != nil {
			f.Close()
			return nil, fmt.Errorf("pagestore: preallocate page %d: %w", i, err)
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func checkSignature(f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	h := make([]byte, len(sig))
	if _, err := io.ReadFull(f, h); err != nil {
		return fmt.Errorf("pagestore: read signature: %w", err)
	}
	if !bytes.Equal(h, sig) {
		return ErrInvalidFileSig
	}
	return nil
}

func (m *FileMedium) offset(pnum uint32) int64 {
	return int64(len(sig)) + int64(pnum)*int64(m.pageSize)
}

func (m *FileMedium) ReadPage(pnum uint32, dst []byte) error {
	if pnum >= m.numPages {
		return fmt.Errorf("pagestore: %w: page %d", ErrInvalidPointer, pnum)
	}
	n, err := m.file.ReadAt(dst[:m.pageSize], m.offset(pnum))
	if err != nil && !(err == io.EOF && n == m.pageSize) {
		return fmt.Errorf("pagestore: read page %d: %w", pnum, err)
	}
	return nil
}

func (m *FileMedium) WritePage(pnum uint32, src []byte) error {
	if pnum >= m.numPages {
		return fmt.Errorf("pagestore: %w: page %d", ErrInvalidPointer, pnum)
	}
	if len(src) != m.pageSize {
		return ErrWriteSizeMismatch
	}
	if _, err := m.file.WriteAt(src, m.offset(pnum)); err != nil {
		return fmt.Errorf("pagestore: write page %d: %w", pnum, err)
	}
	return nil
}

// ErasePages is a no-op on a file backend: a regular file tolerates
// overwrite without a prior erase, unlike real flash.
func (m *FileMedium) ErasePages(first, last uint32) error {
	return nil
}

func (m *FileMedium) NumPages() uint32 { return m.numPages }

func (m *FileMedium) Close() error {
	return m.file.Close()
}

// MemMedium is a plain in-memory Medium, used by tests that want to
// exercise PS/BT without touching the filesystem. Erase is a no-op,
// same as FileMedium.
type MemMedium struct {
	pageSize int
	pages    [][]byte
}

// NewMemMedium allocates numPages zeroed pages of pageSize bytes each.
func NewMemMedium(pageSize int, numPages uint32) *MemMedium {
	pages := make([][]byte, numPages)
	for i := range pages {
		pages[i] = make([]byte, pageSize)
	}
	return &MemMedium{pageSize: pageSize, pages: pages}
}

func (m *MemMedium) ReadPage(pnum uint32, dst []byte) error {
	if pnum >= uint32(len(m.pages)) {
		return fmt.Errorf("pagestore: %w: page %d", ErrInvalidPointer, pnum)
	}
	copy(dst[:m.pageSize], m.pages[pnum])
	return nil
}

func (m *MemMedium) WritePage(pnum uint32, src []byte) error {
	if pnum >= uint32(len(m.pages)) {
		return fmt.Errorf("pagestore: %w: page %d", ErrInvalidPointer, pnum)
	}
	if len(src) != m.pageSize {
		return ErrWriteSizeMismatch
	}
	copy(m.pages[pnum], src)
	return nil
}

func (m *MemMedium) ErasePages(first, last uint32) error { return nil }

func (m *MemMedium) NumPages() uint32 { return uint32(len(m.pages)) }

func (m *MemMedium) Close() error { return nil }
