package pagestore

import "errors"

var (
	ErrCorruptFile       = errors.New("pagestore: file is corrupt")
	ErrInvalidFileSig    = errors.New("pagestore: invalid file signature")
	ErrInvalidPointer    = errors.New("pagestore: invalid page pointer")
	ErrWriteSizeMismatch = errors.New("pagestore: data written does not match page size")
	ErrStorageFull       = errors.New("pagestore: no erased block available for recycling")
)
