package pager

import (
	"cmp"
	"fmt"
	"strings"
)

// PageInfo holds inspection information about a single page, adapted from
// the richer per-format-feature dump this package's teacher produces down
// to the fields this simpler page format actually has.
type PageInfo struct {
	ID           PageID
	Type         NodeType
	KeyCount     int
	PointerCount int
	SlotCount    int
	FreeSpaceEnd int
	FreeListLen  int
	TotalFree    int
	HoleRatio    float64
}

// Inspect walks the tree from the root and returns a PageInfo for every
// reachable page, depth-first left to right. It never mutates the tree and
// is meant for manual diagnosis — the CLI's -dump flag drives it.
func Inspect[K cmp.Ordered, V any](t *BTree[K, V]) ([]PageInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []PageInfo
	var walk func(id PageID) error
	walk = func(id PageID) error {
		page, err := t.readPage(id)
		if err != nil {
			return err
		}
		holes := 0
		for _, h := range page.FreeList {
			holes += int(h.Length)
		}
		total := page.TotalFree()
		ratio := 0.0
		if total > 0 {
			ratio = float64(holes) / float64(total)
		}
		out = append(out, PageInfo{
			ID:           page.PageID,
			Type:         page.NodeType,
			KeyCount:     len(page.Slots),
			PointerCount: len(page.Pointers),
			SlotCount:    len(page.Slots),
			FreeSpaceEnd: int(page.FreeSpaceEnd),
			FreeListLen:  len(page.FreeList),
			TotalFree:    total,
			HoleRatio:    ratio,
		})
		if page.NodeType == Internal {
			for _, child := range page.Pointers {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(t.header.RootPageID); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatReport renders the output of Inspect as a human-readable,
// indentation-free summary line per page — intentionally plain rather than
// box-drawn, matching the CLI's preference for greppable output over a
// fancy table.
func FormatReport(infos []PageInfo) string {
	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "page=%d type=%s keys=%d pointers=%d free=%d holes=%d hole_ratio=%.2f\n",
			info.ID, info.Type, info.KeyCount, info.PointerCount, info.TotalFree, info.FreeListLen, info.HoleRatio)
	}
	return b.String()
}
