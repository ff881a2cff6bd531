package pager

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers distinguish these from corruption with
// errors.Is.
var (
	// ErrKeyNotFound is returned by Search when no slot matches the probed
	// key anywhere on the path from root to leaf.
	ErrKeyNotFound = errors.New("pager: key not found")

	// ErrHeaderNotWritten is returned by AllocatePage when it is called
	// before the file header has been initialized.
	ErrHeaderNotWritten = errors.New("pager: header not written")

	// ErrInvalidMagicNumber is returned by DeserializeHeader when the
	// magic number is zero.
	ErrInvalidMagicNumber = errors.New("pager: invalid magic number")

	// ErrInvalidNodeType is returned when a page's node-type byte decodes
	// to neither Internal nor Leaf.
	ErrInvalidNodeType = errors.New("pager: invalid node type")
)

// PageOverflowError reports that an in-page allocator could not place an
// entry. The B-tree recovers from this by splitting the page; it should
// never escape BTree.Insert.
type PageOverflowError struct {
	PageID PageID
}

func (e *PageOverflowError) Error() string {
	return fmt.Sprintf("pager: page %d overflowed", e.PageID)
}

// InvalidBufferSizeError reports that a deserialization consumer received
// too few bytes, or a serializer would have written past its budget.
type InvalidBufferSizeError struct {
	Expected int
	Got      int
}

func (e *InvalidBufferSizeError) Error() string {
	return fmt.Sprintf("pager: invalid buffer size: expected %d, got %d", e.Expected, e.Got)
}

// KeyNotFoundError carries a printable representation of the missing key.
// Search returns ErrKeyNotFound wrapped with one of these so the caller can
// still recover the key via errors.As while checking the kind via
// errors.Is(err, ErrKeyNotFound).
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("pager: key not found: %s", e.Key)
}

func (e *KeyNotFoundError) Unwrap() error {
	return ErrKeyNotFound
}
