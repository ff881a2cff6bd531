package pager

import (
	"io"
	"os"
)

// PageManager owns the backing file and translates page ids to byte
// offsets. It deliberately has no buffer pool and no write-ahead log: every
// read and write goes straight to the file. A production engine would layer
// a page cache on top, but the invariants of the pages it serves do not
// depend on one being present.
type PageManager struct {
	file       *os.File
	PageSize   uint64
	HeaderSize uint64
}

// NewPageManager wraps file for paged access. If the file is shorter than
// headerSize it is extended with zeros so that page 0 begins at a
// well-defined offset.
func NewPageManager(file *os.File, pageSize uint64, headerSize uint64) (*PageManager, error) {
	fileLength, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if uint64(fileLength) < headerSize {
		if _, err := file.WriteAt(make([]byte, headerSize), 0); err != nil {
			return nil, err
		}
	}
	return &PageManager{file: file, PageSize: pageSize, HeaderSize: headerSize}, nil
}

func (pm *PageManager) fromPageID(id PageID) uint64 {
	return id*pm.PageSize + pm.HeaderSize
}

func (pm *PageManager) toPageID(byteOffset uint64) PageID {
	return (byteOffset - pm.HeaderSize) / pm.PageSize
}

// AllocatePage appends PageSize zero bytes to the file and returns the id of
// the new page. It fails with ErrHeaderNotWritten if the file is shorter
// than HeaderSize.
func (pm *PageManager) AllocatePage() (PageID, error) {
	byteOffset, err := pm.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if uint64(byteOffset) < HeaderSize {
		return 0, ErrHeaderNotWritten
	}
	id := pm.toPageID(uint64(byteOffset))
	if _, err := pm.file.Write(make([]byte, pm.PageSize)); err != nil {
		return 0, err
	}
	return id, nil
}

// WriteHeader overwrites the file header. It rejects buffers larger than
// HeaderSize.
func (pm *PageManager) WriteHeader(data []byte) error {
	if uint64(len(data)) > pm.HeaderSize {
		return &InvalidBufferSizeError{Expected: int(pm.HeaderSize), Got: len(data)}
	}
	_, err := pm.file.WriteAt(data, 0)
	return err
}

// ReadHeader reads HeaderSize bytes from the start of the file. A short read
// (fewer bytes returned than requested, with io.EOF) is not an error here —
// callers treat it as "page does not exist yet" only during header
// initialization, matching the on-disk format's bootstrap sequence.
func (pm *PageManager) ReadHeader() ([]byte, error) {
	buf := make([]byte, pm.HeaderSize)
	n, err := pm.file.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// WritePage writes data (exactly PageSize bytes) to the page identified by
// id.
func (pm *PageManager) WritePage(id PageID, data []byte) error {
	_, err := pm.file.WriteAt(data, int64(pm.fromPageID(id)))
	return err
}

// ReadPage reads PageSize bytes from the page identified by id.
func (pm *PageManager) ReadPage(id PageID) ([]byte, error) {
	buf := make([]byte, pm.PageSize)
	n, err := pm.file.ReadAt(buf, int64(pm.fromPageID(id)))
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// Close closes the underlying file.
func (pm *PageManager) Close() error {
	return pm.file.Close()
}
