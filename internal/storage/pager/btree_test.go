package pager

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/uuid"
)

// tempDBFile returns a fresh, empty database file in t.TempDir(), named
// with a uuid so tests that open more than one file in the same directory
// never collide.
func tempDBFile(t *testing.T) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), uuid.NewString()+".db")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open temp db file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func openInt64Tree(t *testing.T, pageSize uint64) *BTree[int64, string] {
	t.Helper()
	bt, err := Open[int64, string](tempDBFile(t), pageSize, Int64Codec{}, StringCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return bt
}

func TestBTreeFreshInsertAndSearch(t *testing.T) {
	bt := openInt64Tree(t, 4096)
	if err := bt.Insert(42, "answer"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v, err := bt.Search(42)
	if err != nil || v != "answer" {
		t.Fatalf("Search(42) = %q, %v, want answer, nil", v, err)
	}
	_, err = bt.Search(7)
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Search(7) = %v, want ErrKeyNotFound", err)
	}
}

func TestBTreeAscendingInsertsGrowTreeAndAnswerAllSearches(t *testing.T) {
	bt := openInt64Tree(t, 256)
	for i := int64(0); i < 200; i++ {
		if err := bt.Insert(i, intToStr(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := int64(0); i < 200; i++ {
		v, err := bt.Search(i)
		if err != nil || v != intToStr(i) {
			t.Fatalf("Search(%d) = %q, %v", i, v, err)
		}
	}
	if bt.PageCount() <= 1 {
		t.Fatalf("PageCount() = %d, want > 1 after 200 inserts at page_size=256", bt.PageCount())
	}
}

func TestBTreeDescendingInsertsEndWithInternalRoot(t *testing.T) {
	bt := openInt64Tree(t, 256)
	for i := int64(199); i >= 0; i-- {
		if err := bt.Insert(i, intToStr(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := int64(0); i < 200; i++ {
		if _, err := bt.Search(i); err != nil {
			t.Fatalf("Search(%d): %v", i, err)
		}
	}
	root, err := bt.readPage(bt.RootPageID())
	if err != nil {
		t.Fatalf("readPage(root): %v", err)
	}
	if root.NodeType != Internal {
		t.Fatal("root is not INTERNAL after 200 descending inserts at page_size=256")
	}
}

func TestBTreeMixedInsertOrder(t *testing.T) {
	bt := openInt64Tree(t, 4096)
	keys := []int64{50, 25, 75, 10, 30, 60, 90, 5, 15, 27, 35, 55, 70, 80, 95}
	for _, k := range keys {
		if err := bt.Insert(k, intToStr(k)); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	for _, k := range keys {
		v, err := bt.Search(k)
		if err != nil || v != intToStr(k) {
			t.Fatalf("Search(%d) = %q, %v", k, v, err)
		}
	}
}

func TestBTreeUpdateOverwritesInPlace(t *testing.T) {
	bt := openInt64Tree(t, 4096)
	if err := bt.Insert(1, "a"); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}
	if err := bt.Insert(2, "b"); err != nil {
		t.Fatalf("Insert(2): %v", err)
	}
	if err := bt.Insert(1, "A"); err != nil {
		t.Fatalf("Insert(1) overwrite: %v", err)
	}
	if v, err := bt.Search(1); err != nil || v != "A" {
		t.Fatalf("Search(1) = %q, %v, want A", v, err)
	}
	if v, err := bt.Search(2); err != nil || v != "b" {
		t.Fatalf("Search(2) = %q, %v, want b", v, err)
	}
	root, err := bt.readPage(bt.RootPageID())
	if err != nil {
		t.Fatalf("readPage(root): %v", err)
	}
	if root.NodeType != Leaf || len(root.Slots) != 2 {
		t.Fatalf("root has type=%s slots=%d, want a LEAF with 2 slots", root.NodeType, len(root.Slots))
	}
}

func TestBTreeIdempotentReinsert(t *testing.T) {
	bt := openInt64Tree(t, 4096)
	for i := 0; i < 5; i++ {
		if err := bt.Insert(9, "v"); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	root, err := bt.readPage(bt.RootPageID())
	if err != nil {
		t.Fatalf("readPage: %v", err)
	}
	count := 0
	for i := range root.Slots {
		k, _ := root.KeyAt(i)
		if k == 9 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("re-inserting the same key %d times produced %d slots, want 1", 5, count)
	}
}

func TestBTreeReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	f1, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	bt1, err := Open[int64, string](f1, 4096, Int64Codec{}, StringCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := bt1.Insert(1, "one"); err != nil {
		t.Fatalf("Insert(1): %v", err)
	}
	if err := bt1.Insert(2, "two"); err != nil {
		t.Fatalf("Insert(2): %v", err)
	}
	pageCountBefore := bt1.PageCount()
	if err := bt1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	bt2, err := Open[int64, string](f2, 4096, Int64Codec{}, StringCodec{})
	if err != nil {
		t.Fatalf("Open on reopen: %v", err)
	}
	defer bt2.Close()

	if v, err := bt2.Search(1); err != nil || v != "one" {
		t.Fatalf("Search(1) after reopen = %q, %v, want one", v, err)
	}
	if v, err := bt2.Search(2); err != nil || v != "two" {
		t.Fatalf("Search(2) after reopen = %q, %v, want two", v, err)
	}
	if bt2.PageCount() != pageCountBefore {
		t.Fatalf("PageCount after reopen = %d, want %d", bt2.PageCount(), pageCountBefore)
	}
}

func TestBTreeUniformLeafDepth(t *testing.T) {
	bt := openInt64Tree(t, 256)
	for i := int64(0); i < 150; i++ {
		if err := bt.Insert(i, intToStr(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	var depths []int
	var walk func(id PageID, depth int) error
	walk = func(id PageID, depth int) error {
		page, err := bt.readPage(id)
		if err != nil {
			return err
		}
		if page.NodeType == Leaf {
			depths = append(depths, depth)
			return nil
		}
		for _, child := range page.Pointers {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	bt.mu.Lock()
	err := walk(bt.header.RootPageID, 0)
	bt.mu.Unlock()
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	for _, d := range depths {
		if d != depths[0] {
			t.Fatalf("non-uniform leaf depth: %v", depths)
		}
	}
}

func intToStr(i int64) string {
	return strconv.FormatInt(i, 10)
}
