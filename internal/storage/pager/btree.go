package pager

import (
	"cmp"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
)

// BTree is the top-level index: it owns the Header and PageManager for one
// open file, routes traversals, performs recursive insert with
// overflow-propagated splits, and grows a new root on root overflow.
//
// A single BTree serializes all callers behind one mutex — there is no
// finer-grained locking because the underlying page format assumes a
// single writer (§5 of the design this package implements).
type BTree[K cmp.Ordered, V any] struct {
	mu       sync.Mutex
	pm       *PageManager
	header   *Header
	keyCodec Codec[K]
	valCodec Codec[V]
	logger   *log.Logger
}

// Option configures a BTree at Open time.
type Option[K cmp.Ordered, V any] func(*BTree[K, V])

// WithLogger overrides the default *log.Logger (log.Default()) used for the
// small number of structural events this package logs: root creation, page
// splits, and root growth.
func WithLogger[K cmp.Ordered, V any](l *log.Logger) Option[K, V] {
	return func(t *BTree[K, V]) { t.logger = l }
}

// Open opens or initializes an index backed by file, with page size
// pageSize advisory on an existing file — the persisted page size always
// takes precedence once a header is present.
func Open[K cmp.Ordered, V any](file *os.File, pageSize uint64, keyCodec Codec[K], valCodec Codec[V], opts ...Option[K, V]) (*BTree[K, V], error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return nil, fmt.Errorf("pager: page size %d out of range [%d, %d]", pageSize, MinPageSize, MaxPageSize)
	}

	pm, err := NewPageManager(file, pageSize, HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("pager: open page manager: %w", err)
	}

	t := &BTree[K, V]{
		pm:       pm,
		keyCodec: keyCodec,
		valCodec: valCodec,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	raw, err := pm.ReadHeader()
	header, herr := DeserializeHeader(raw)
	if err != nil || herr != nil {
		header = NewHeader(pageSize)
	}
	t.header = header
	pm.PageSize = header.PageSize

	if t.header.PagesEmpty() {
		root := NewSlottedPage[K, V](0, Leaf, int(pageSize), keyCodec, valCodec)
		rootID, err := pm.AllocatePage()
		if err != nil {
			return nil, fmt.Errorf("pager: allocate root page: %w", err)
		}
		root.PageID = rootID
		if err := pm.WritePage(rootID, root.Serialize()); err != nil {
			return nil, fmt.Errorf("pager: write root page: %w", err)
		}
		t.header.AddRootPage(rootID)
		if err := pm.WriteHeader(t.header.Serialize()); err != nil {
			return nil, fmt.Errorf("pager: write header: %w", err)
		}
		t.logger.Printf("pager: initialized new index, root page %d, page size %d", rootID, pageSize)
	}

	return t, nil
}

// PageSize returns the page size this tree's file was created with.
func (t *BTree[K, V]) PageSize() uint64 { return t.header.PageSize }

// PageCount returns the total number of pages ever allocated.
func (t *BTree[K, V]) PageCount() uint64 { return t.header.PageCount }

// RootPageID returns the current root page id.
func (t *BTree[K, V]) RootPageID() PageID { return t.header.RootPageID }

// Walk visits every page reachable from the root, depth-first, calling
// visit on each before writing it back to disk. It exists so opt-in
// maintenance tools (the background compactor) can mutate pages in place
// without reimplementing tree traversal or page I/O.
func (t *BTree[K, V]) Walk(visit func(page *SlottedPage[K, V]) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var walk func(id PageID) error
	walk = func(id PageID) error {
		page, err := t.readPage(id)
		if err != nil {
			return err
		}
		if err := visit(page); err != nil {
			return err
		}
		if err := t.writePage(page); err != nil {
			return err
		}
		if page.NodeType == Internal {
			for _, child := range page.Pointers {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(t.header.RootPageID)
}

// Close releases the underlying file handle.
func (t *BTree[K, V]) Close() error {
	return t.pm.Close()
}

func (t *BTree[K, V]) readPage(id PageID) (*SlottedPage[K, V], error) {
	buf, err := t.pm.ReadPage(id)
	if err != nil {
		return nil, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	return DeserializeSlottedPage[K, V](buf, int(t.header.PageSize), t.keyCodec, t.valCodec)
}

func (t *BTree[K, V]) writePage(p *SlottedPage[K, V]) error {
	if err := t.pm.WritePage(p.PageID, p.Serialize()); err != nil {
		return fmt.Errorf("pager: write page %d: %w", p.PageID, err)
	}
	return nil
}

// Search performs a point lookup of key, returning ErrKeyNotFound (wrapped
// in a *KeyNotFoundError) if it is absent.
func (t *BTree[K, V]) Search(key K) (V, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero V
	id := t.header.RootPageID
	for {
		page, err := t.readPage(id)
		if err != nil {
			return zero, err
		}
		if page.NodeType == Internal {
			if idx, ok, err := page.FindExactKey(key); err != nil {
				return zero, err
			} else if ok {
				return page.ValueAt(idx)
			}
			next, err := page.GetPointer(key)
			if err != nil {
				return zero, err
			}
			id = next
			continue
		}
		idx, ok, err := page.FindExactKey(key)
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, &KeyNotFoundError{Key: fmt.Sprint(key)}
		}
		return page.ValueAt(idx)
	}
}

// promotion is the result of a page split propagated up through the
// recursion: a median (key, value) pair to insert into the parent, plus the
// freshly allocated right sibling that pair now separates.
type promotion[K cmp.Ordered, V any] struct {
	key   K
	value V
	right *SlottedPage[K, V]
}

// Insert inserts or updates (key, value). Updating an existing key performs
// an in-place re-insert rather than creating a second slot.
func (t *BTree[K, V]) Insert(key K, value V) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	root, err := t.readPage(t.header.RootPageID)
	if err != nil {
		return err
	}

	promo, err := t.insertIntoPage(root, key, value)
	if err != nil {
		return err
	}
	if promo == nil {
		return nil
	}

	newRootID, err := t.pm.AllocatePage()
	if err != nil {
		return fmt.Errorf("pager: allocate new root: %w", err)
	}
	newRoot := NewSlottedPage[K, V](newRootID, Internal, int(t.header.PageSize), t.keyCodec, t.valCodec)
	newRoot.Pointers = []PageID{root.PageID, promo.right.PageID}
	keyBytes := t.keyCodec.Marshal(promo.key)
	valBytes := t.valCodec.Marshal(promo.value)
	if err := newRoot.Insert(0, keyBytes, valBytes); err != nil {
		return fmt.Errorf("pager: insert promoted key into new root: %w", err)
	}
	// SlottedPage.Insert leaves Pointers untouched, so this only restates the
	// two-pointer fan-out assigned above (which replaced the single zero
	// entry NewSlottedPage seeds an INTERNAL page with).
	newRoot.Pointers = []PageID{root.PageID, promo.right.PageID}

	if err := t.writePage(newRoot); err != nil {
		return err
	}
	t.header.PageCount++
	t.header.RootPageID = newRootID
	if err := t.pm.WriteHeader(t.header.Serialize()); err != nil {
		return fmt.Errorf("pager: write header after root growth: %w", err)
	}
	t.logger.Printf("pager: root overflowed, new root page %d", newRootID)
	return nil
}

// insertIntoPage implements the recursive top-down insert with
// overflow-propagated splits described for LEAF and INTERNAL pages.
func (t *BTree[K, V]) insertIntoPage(page *SlottedPage[K, V], key K, value V) (*promotion[K, V], error) {
	if page.NodeType == Leaf {
		return t.insertIntoLeaf(page, key, value)
	}
	return t.insertIntoInternal(page, key, value)
}

func (t *BTree[K, V]) insertIntoLeaf(page *SlottedPage[K, V], key K, value V) (*promotion[K, V], error) {
	keyBytes := t.keyCodec.Marshal(key)
	valBytes := t.valCodec.Marshal(value)

	if idx, ok, err := page.FindExactKey(key); err != nil {
		return nil, err
	} else if ok {
		err := page.Update(idx, keyBytes, valBytes)
		var overflow *PageOverflowError
		if !errors.As(err, &overflow) {
			if err != nil {
				return nil, err
			}
			return nil, t.writePage(page)
		}
		// Update removed the old slot before its re-insert overflowed, so the
		// key is now absent from the page and the split path below places it.
	}

	if page.CanInsert(len(keyBytes), len(valBytes)) {
		pos, err := page.FindKeyPosition(key)
		if err != nil {
			return nil, err
		}
		if err := page.Insert(pos, keyBytes, valBytes); err != nil {
			return nil, err
		}
		return nil, t.writePage(page)
	}

	newPageID, err := t.pm.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("pager: allocate page for split: %w", err)
	}
	medianKey, medianValue, right, err := page.Split(newPageID)
	if err != nil {
		return nil, err
	}

	if key < medianKey {
		pos, err := page.FindKeyPosition(key)
		if err != nil {
			return nil, err
		}
		if err := page.Insert(pos, keyBytes, valBytes); err != nil {
			return nil, err
		}
	} else {
		pos, err := right.FindKeyPosition(key)
		if err != nil {
			return nil, err
		}
		if err := right.Insert(pos, keyBytes, valBytes); err != nil {
			return nil, err
		}
	}

	if err := t.writePage(page); err != nil {
		return nil, err
	}
	if err := t.writePage(right); err != nil {
		return nil, err
	}
	t.header.PageCount++
	if err := t.pm.WriteHeader(t.header.Serialize()); err != nil {
		return nil, fmt.Errorf("pager: write header after leaf split: %w", err)
	}
	t.logger.Printf("pager: leaf page %d split, new right page %d", page.PageID, right.PageID)

	return &promotion[K, V]{key: medianKey, value: medianValue, right: right}, nil
}

func (t *BTree[K, V]) insertIntoInternal(page *SlottedPage[K, V], key K, value V) (*promotion[K, V], error) {
	if idx, ok, err := page.FindExactKey(key); err != nil {
		return nil, err
	} else if ok {
		keyBytes, valBytes := t.keyCodec.Marshal(key), t.valCodec.Marshal(value)
		err := page.Update(idx, keyBytes, valBytes)
		var overflow *PageOverflowError
		if errors.As(err, &overflow) {
			// Update removed the old slot before overflowing; reclaim the
			// holes and place the entry again at the same slot index.
			page.Compact()
			err = page.Insert(idx, keyBytes, valBytes)
		}
		if err != nil {
			return nil, err
		}
		return nil, t.writePage(page)
	}

	childID, err := page.GetPointer(key)
	if err != nil {
		return nil, err
	}
	child, err := t.readPage(childID)
	if err != nil {
		return nil, err
	}

	childPromo, err := t.insertIntoPage(child, key, value)
	if err != nil {
		return nil, err
	}
	if childPromo == nil {
		return nil, nil
	}

	ckBytes := t.keyCodec.Marshal(childPromo.key)
	cvBytes := t.valCodec.Marshal(childPromo.value)
	insertPos, err := page.FindKeyPosition(childPromo.key)
	if err != nil {
		return nil, err
	}

	if page.CanInsert(len(ckBytes), len(cvBytes)) {
		if err := page.Insert(insertPos, ckBytes, cvBytes); err != nil {
			return nil, err
		}
		page.InsertPointer(insertPos+1, childPromo.right.PageID)
		if err := t.writePage(page); err != nil {
			return nil, err
		}
		return nil, t.writePage(childPromo.right)
	}

	newPageID, err := t.pm.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("pager: allocate page for internal split: %w", err)
	}
	medianKey, medianValue, right, err := page.Split(newPageID)
	if err != nil {
		return nil, err
	}

	if childPromo.key < medianKey {
		pos, err := page.FindKeyPosition(childPromo.key)
		if err != nil {
			return nil, err
		}
		if err := page.Insert(pos, ckBytes, cvBytes); err != nil {
			return nil, err
		}
		page.InsertPointer(pos+1, childPromo.right.PageID)
	} else {
		pos, err := right.FindKeyPosition(childPromo.key)
		if err != nil {
			return nil, err
		}
		if err := right.Insert(pos, ckBytes, cvBytes); err != nil {
			return nil, err
		}
		right.InsertPointer(pos+1, childPromo.right.PageID)
	}

	if err := t.writePage(page); err != nil {
		return nil, err
	}
	if err := t.writePage(right); err != nil {
		return nil, err
	}
	if err := t.writePage(childPromo.right); err != nil {
		return nil, err
	}
	t.header.PageCount++
	if err := t.pm.WriteHeader(t.header.Serialize()); err != nil {
		return nil, fmt.Errorf("pager: write header after internal split: %w", err)
	}
	t.logger.Printf("pager: internal page %d split, new right page %d", page.PageID, right.PageID)

	return &promotion[K, V]{key: medianKey, value: medianValue, right: right}, nil
}
