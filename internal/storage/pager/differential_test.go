package pager_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/Sean-Leishman/CloaksDB/internal/reftree"
	"github.com/Sean-Leishman/CloaksDB/internal/storage/pager"
)

// TestDifferentialAgainstInMemoryOracle checks the disk-backed tree's
// search results against reftree's trivially-correct in-memory model after
// a randomized sequence of inserts with duplicate keys mixed in.
func TestDifferentialAgainstInMemoryOracle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "differential.db")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	bt, err := pager.Open[int64, string](f, 512, pager.Int64Codec{}, pager.StringCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	oracle := reftree.New[int64, string]()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		key := rng.Int63n(80)
		value := strconv.FormatInt(key, 10) + "#" + strconv.Itoa(i)
		if err := bt.Insert(key, value); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
		oracle.Insert(key, value)
	}

	for k := int64(0); k < 80; k++ {
		want, wantOK := oracle.Search(k)
		got, err := bt.Search(k)
		if wantOK {
			if err != nil || got != want {
				t.Fatalf("Search(%d) = %q, %v, want %q, nil", k, got, err, want)
			}
		} else if err == nil {
			t.Fatalf("Search(%d) = %q, nil, want a miss", k, got)
		}
	}
}
