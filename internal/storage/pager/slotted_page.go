package pager

import (
	"cmp"
	"encoding/binary"
	"sort"
)

// Slot describes one entry's location and lengths inside a page's data
// region. Slots are kept in key order; slot index i corresponds to the
// i-th key in sorted order regardless of the physical location of its
// bytes.
type Slot struct {
	Offset      uint16
	KeyLength   uint16
	ValueLength uint16
}

// TotalLength returns the number of bytes the slot's entry occupies in the
// data region.
func (s Slot) TotalLength() uint16 {
	return s.KeyLength + s.ValueLength
}

func (s Slot) serialize(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], s.Offset)
	binary.LittleEndian.PutUint16(buf[2:4], s.KeyLength)
	binary.LittleEndian.PutUint16(buf[4:6], s.ValueLength)
}

func deserializeSlot(buf []byte) Slot {
	return Slot{
		Offset:      binary.LittleEndian.Uint16(buf[0:2]),
		KeyLength:   binary.LittleEndian.Uint16(buf[2:4]),
		ValueLength: binary.LittleEndian.Uint16(buf[4:6]),
	}
}

// FreeSpaceRegion records a hole: a byte range in the data region not
// currently owned by any live slot.
type FreeSpaceRegion struct {
	Offset uint16
	Length uint16
}

func (r FreeSpaceRegion) serialize(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], r.Offset)
	binary.LittleEndian.PutUint16(buf[2:4], r.Length)
}

func deserializeFreeSpaceRegion(buf []byte) FreeSpaceRegion {
	return FreeSpaceRegion{
		Offset: binary.LittleEndian.Uint16(buf[0:2]),
		Length: binary.LittleEndian.Uint16(buf[2:4]),
	}
}

// SlottedPage is one page of the index: a sorted sequence of variable-length
// (key, value) entries, plus child pointers for INTERNAL pages, managed
// with a best-fit free list, coalescing, and compaction. It is a transient
// buffer — read from the Page Manager, mutated, written back, and dropped.
type SlottedPage[K cmp.Ordered, V any] struct {
	PageID       PageID
	NodeType     NodeType
	PageSize     int
	Slots        []Slot
	Pointers     []PageID // len == len(Slots)+1 for Internal, 0 for Leaf
	FreeList     []FreeSpaceRegion
	FreeSpaceEnd uint16
	Data         []byte // length PageSize; entry bytes live at [offset, offset+len)

	KeyCodec Codec[K]
	ValCodec Codec[V]
}

// NewSlottedPage allocates a fresh, empty page of the given kind and size.
func NewSlottedPage[K cmp.Ordered, V any](id PageID, nodeType NodeType, pageSize int, keyCodec Codec[K], valCodec Codec[V]) *SlottedPage[K, V] {
	p := &SlottedPage[K, V]{
		PageID:       id,
		NodeType:     nodeType,
		PageSize:     pageSize,
		FreeSpaceEnd: uint16(pageSize),
		Data:         make([]byte, pageSize),
		KeyCodec:     keyCodec,
		ValCodec:     valCodec,
	}
	if nodeType == Internal {
		p.Pointers = []PageID{0}
	}
	return p
}

// HeaderRegionEnd is the first byte offset not occupied by the page header,
// slot array, pointer array, or free-list array.
func (p *SlottedPage[K, V]) HeaderRegionEnd() int {
	pointerBytes := 0
	if p.NodeType == Internal {
		pointerBytes = len(p.Pointers) * PointerSize
	}
	return PageHeaderSize + len(p.Slots)*SlotSize + pointerBytes + len(p.FreeList)*FreeSpaceRegionSize
}

// TotalFree is the sum of the contiguous free region and every free-list
// hole. It is computed, never stored, so invariant 5 (§8 property 4) holds
// by construction.
func (p *SlottedPage[K, V]) TotalFree() int {
	total := int(p.FreeSpaceEnd) - p.HeaderRegionEnd()
	for _, h := range p.FreeList {
		total += int(h.Length)
	}
	return total
}

// CanInsert is the cheap overflow predicate the B-tree uses: it checks only
// the contiguous region, not the free list, so a page reporting false may
// still have enough total free space to succeed after a Compact.
func (p *SlottedPage[K, V]) CanInsert(keyLen, valueLen int) bool {
	need := SlotSize + keyLen + valueLen
	if p.NodeType == Internal {
		need += PointerSize
	}
	contiguous := int(p.FreeSpaceEnd) - p.HeaderRegionEnd()
	return need <= contiguous
}

// findSpaceFor selects where to place length bytes of entry data, in the
// order: perfect fit, best fit (minimum surplus), then the contiguous
// region. holeIdx is -1 when the contiguous region was used.
func (p *SlottedPage[K, V]) findSpaceFor(length int) (offset int, holeIdx int, ok bool) {
	for i, h := range p.FreeList {
		if int(h.Length) == length {
			return int(h.Offset), i, true
		}
	}
	bestIdx := -1
	bestSurplus := -1
	for i, h := range p.FreeList {
		if int(h.Length) < length {
			continue
		}
		surplus := int(h.Length) - length
		if bestIdx == -1 || surplus < bestSurplus {
			bestIdx = i
			bestSurplus = surplus
		}
	}
	if bestIdx != -1 {
		return int(p.FreeList[bestIdx].Offset), bestIdx, true
	}
	newOffset := int(p.FreeSpaceEnd) - length
	if newOffset >= p.HeaderRegionEnd()+SlotSize {
		return newOffset, -1, true
	}
	return 0, 0, false
}

// FindKeyPosition performs a binary search over the slots, decoding the key
// at each probed slot, and returns the index of the first slot whose key is
// >= k, or len(Slots) if k exceeds every key present.
func (p *SlottedPage[K, V]) FindKeyPosition(k K) (int, error) {
	lo, hi := 0, len(p.Slots)
	for lo < hi {
		mid := (lo + hi) / 2
		midKey, err := p.keyAt(mid)
		if err != nil {
			return 0, err
		}
		if k <= midKey {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

// FindExactKey returns the slot index holding k, or ok=false if absent.
func (p *SlottedPage[K, V]) FindExactKey(k K) (idx int, ok bool, err error) {
	pos, err := p.FindKeyPosition(k)
	if err != nil {
		return 0, false, err
	}
	if pos >= len(p.Slots) {
		return 0, false, nil
	}
	key, err := p.keyAt(pos)
	if err != nil {
		return 0, false, err
	}
	if key == k {
		return pos, true, nil
	}
	return 0, false, nil
}

// GetPointer returns the child page id for the subtree whose key range
// contains k. The separator at index i is the inclusive upper bound of
// pointers[i] — a key equal to a separator routes to that separator's left
// child.
func (p *SlottedPage[K, V]) GetPointer(k K) (PageID, error) {
	pos, err := p.FindKeyPosition(k)
	if err != nil {
		return 0, err
	}
	return p.Pointers[pos], nil
}

func (p *SlottedPage[K, V]) keyAt(i int) (K, error) {
	s := p.Slots[i]
	return p.KeyCodec.Unmarshal(p.Data[s.Offset : s.Offset+s.KeyLength])
}

func (p *SlottedPage[K, V]) valueAt(i int) (V, error) {
	s := p.Slots[i]
	return p.ValCodec.Unmarshal(p.Data[s.Offset+s.KeyLength : s.Offset+s.KeyLength+s.ValueLength])
}

// KeyAt exposes keyAt for callers outside the package (the B-tree lives in
// this same package, but tests use it too).
func (p *SlottedPage[K, V]) KeyAt(i int) (K, error) { return p.keyAt(i) }

// ValueAt exposes valueAt for callers outside the package.
func (p *SlottedPage[K, V]) ValueAt(i int) (V, error) { return p.valueAt(i) }

// Insert places (key, value) at slot index pos, which the caller obtained
// via FindKeyPosition. It fails with PageOverflowError when no space can be
// found.
func (p *SlottedPage[K, V]) Insert(pos int, key []byte, value []byte) error {
	totalLen := len(key) + len(value)
	offset, holeIdx, ok := p.findSpaceFor(totalLen)
	if !ok {
		return &PageOverflowError{PageID: p.PageID}
	}
	copy(p.Data[offset:offset+len(key)], key)
	copy(p.Data[offset+len(key):offset+totalLen], value)

	if holeIdx >= 0 {
		hole := p.FreeList[holeIdx]
		if int(hole.Length) == totalLen {
			p.FreeList = append(p.FreeList[:holeIdx], p.FreeList[holeIdx+1:]...)
		} else {
			p.FreeList[holeIdx].Offset = hole.Offset + uint16(totalLen)
			p.FreeList[holeIdx].Length = hole.Length - uint16(totalLen)
		}
	} else {
		p.FreeSpaceEnd = uint16(offset)
	}

	slot := Slot{Offset: uint16(offset), KeyLength: uint16(len(key)), ValueLength: uint16(len(value))}
	p.Slots = append(p.Slots, Slot{})
	copy(p.Slots[pos+1:], p.Slots[pos:len(p.Slots)-1])
	p.Slots[pos] = slot
	return nil
}

// InsertPointer splices a child page id into the pointer array at idx. The
// caller is responsible for calling this alongside Insert when inserting a
// separator into an INTERNAL page (see BTree.insertIntoPage).
func (p *SlottedPage[K, V]) InsertPointer(idx int, child PageID) {
	p.Pointers = append(p.Pointers, 0)
	copy(p.Pointers[idx+1:], p.Pointers[idx:len(p.Pointers)-1])
	p.Pointers[idx] = child
}

// Update overwrites the value at pos. If the new value fits within the old
// value's byte length it is rewritten in place and any trailing slack is
// added to the free list; otherwise the slot is deleted and reinserted,
// propagating PageOverflowError if that reinsert cannot find space (the
// caller must then split).
func (p *SlottedPage[K, V]) Update(pos int, key []byte, value []byte) error {
	old := p.Slots[pos]
	if len(value) <= int(old.ValueLength) {
		offset := old.Offset
		copy(p.Data[offset:offset+uint16(len(key))], key)
		copy(p.Data[offset+uint16(len(key)):offset+uint16(len(key))+uint16(len(value))], value)
		slack := int(old.ValueLength) - len(value)
		p.Slots[pos].ValueLength = uint16(len(value))
		if slack > 0 {
			holeOffset := offset + uint16(len(key)) + uint16(len(value))
			p.addToFreeList(holeOffset, uint16(slack))
		}
		return nil
	}
	if err := p.Delete(pos); err != nil {
		return err
	}
	return p.Insert(pos, key, value)
}

// Delete removes the slot at pos and returns its byte range to the free
// list, coalescing with neighboring holes and with the contiguous region
// where possible.
func (p *SlottedPage[K, V]) Delete(pos int) error {
	slot := p.Slots[pos]
	p.Slots = append(p.Slots[:pos], p.Slots[pos+1:]...)
	p.addToFreeList(slot.Offset, slot.TotalLength())
	return nil
}

// addToFreeList records a freed byte range, merging it with adjacent holes
// and, if it abuts free_space_end, folding it directly into the contiguous
// region instead of keeping a free-list entry for it.
func (p *SlottedPage[K, V]) addToFreeList(offset uint16, length uint16) {
	p.FreeList = append(p.FreeList, FreeSpaceRegion{Offset: offset, Length: length})
	sort.Slice(p.FreeList, func(i, j int) bool { return p.FreeList[i].Offset < p.FreeList[j].Offset })

	merged := p.FreeList[:0]
	for _, h := range p.FreeList {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.Offset+last.Length == h.Offset {
				last.Length += h.Length
				continue
			}
		}
		merged = append(merged, h)
	}
	p.FreeList = merged

	for len(p.FreeList) > 0 {
		first := p.FreeList[0]
		if first.Offset != p.FreeSpaceEnd {
			break
		}
		p.FreeSpaceEnd = first.Offset + first.Length
		p.FreeList = p.FreeList[1:]
	}
}

// Split divides the page at mid = num_keys/2, promoting the median entry
// (key and value) to the caller. Entries strictly after the median move to
// a freshly allocated right page; the left page drops them and frees their
// byte ranges.
func (p *SlottedPage[K, V]) Split(newPageID PageID) (medianKey K, medianValue V, right *SlottedPage[K, V], err error) {
	mid := len(p.Slots) / 2
	medianSlot := p.Slots[mid]
	medianKeyBytes := append([]byte(nil), p.Data[medianSlot.Offset:medianSlot.Offset+medianSlot.KeyLength]...)
	medianValueBytes := append([]byte(nil), p.Data[medianSlot.Offset+medianSlot.KeyLength:medianSlot.Offset+medianSlot.KeyLength+medianSlot.ValueLength]...)

	medianKey, err = p.KeyCodec.Unmarshal(medianKeyBytes)
	if err != nil {
		return medianKey, medianValue, nil, err
	}
	medianValue, err = p.ValCodec.Unmarshal(medianValueBytes)
	if err != nil {
		return medianKey, medianValue, nil, err
	}

	right = NewSlottedPage(newPageID, p.NodeType, p.PageSize, p.KeyCodec, p.ValCodec)
	if p.NodeType == Internal {
		right.Pointers = append([]PageID(nil), p.Pointers[mid+1:]...)
	}

	for i := mid + 1; i < len(p.Slots); i++ {
		s := p.Slots[i]
		key := append([]byte(nil), p.Data[s.Offset:s.Offset+s.KeyLength]...)
		val := append([]byte(nil), p.Data[s.Offset+s.KeyLength:s.Offset+s.KeyLength+s.ValueLength]...)
		if err := right.Insert(len(right.Slots), key, val); err != nil {
			return medianKey, medianValue, nil, err
		}
	}

	for i := mid; i < len(p.Slots); i++ {
		s := p.Slots[i]
		p.addToFreeList(s.Offset, s.TotalLength())
	}
	p.Slots = p.Slots[:mid]
	if p.NodeType == Internal {
		p.Pointers = p.Pointers[:mid+1]
	}

	return medianKey, medianValue, right, nil
}

// Compact rebuilds the data region from the live slots in slot order,
// eliminating every hole. After Compact, the ordered key-value sequence is
// unchanged, the free list is empty, and free_space_end equals page_size
// minus the live payload.
func (p *SlottedPage[K, V]) Compact() {
	newData := make([]byte, p.PageSize)
	freeSpaceEnd := uint16(p.PageSize)
	for i := range p.Slots {
		s := p.Slots[i]
		total := s.TotalLength()
		newOffset := freeSpaceEnd - total
		copy(newData[newOffset:newOffset+s.KeyLength], p.Data[s.Offset:s.Offset+s.KeyLength])
		copy(newData[newOffset+s.KeyLength:newOffset+total], p.Data[s.Offset+s.KeyLength:s.Offset+total])
		p.Slots[i].Offset = newOffset
		freeSpaceEnd = newOffset
	}
	p.Data = newData
	p.FreeSpaceEnd = freeSpaceEnd
	p.FreeList = nil
}

// ShouldCompact reports whether the ratio of free-list holes to total free
// space exceeds CompactionThreshold. It is advisory only; nothing in this
// package calls it automatically.
func (p *SlottedPage[K, V]) ShouldCompact() bool {
	total := p.TotalFree()
	if total == 0 {
		return false
	}
	holes := 0
	for _, h := range p.FreeList {
		holes += int(h.Length)
	}
	return float64(holes)/float64(total) > CompactionThreshold
}

// Serialize encodes the page into a PageSize-byte little-endian buffer per
// the on-disk layout: page header, slot array, pointer array (INTERNAL
// only), free-list array, then the data region copied verbatim.
func (p *SlottedPage[K, V]) Serialize() []byte {
	buf := make([]byte, p.PageSize)

	binary.LittleEndian.PutUint64(buf[0:8], p.PageID)
	buf[8] = byte(p.NodeType)
	binary.LittleEndian.PutUint16(buf[9:11], uint16(len(p.Slots)))
	binary.LittleEndian.PutUint16(buf[11:13], p.FreeSpaceEnd)
	binary.LittleEndian.PutUint16(buf[13:15], uint16(len(p.FreeList)))
	binary.LittleEndian.PutUint16(buf[15:17], uint16(p.TotalFree()))

	off := PageHeaderSize
	for _, s := range p.Slots {
		s.serialize(buf[off : off+SlotSize])
		off += SlotSize
	}
	if p.NodeType == Internal {
		for _, ptr := range p.Pointers {
			binary.LittleEndian.PutUint64(buf[off:off+PointerSize], ptr)
			off += PointerSize
		}
	}
	for _, h := range p.FreeList {
		h.serialize(buf[off : off+FreeSpaceRegionSize])
		off += FreeSpaceRegionSize
	}

	copy(buf[p.FreeSpaceEnd:], p.Data[p.FreeSpaceEnd:])
	return buf
}

// DeserializeSlottedPage decodes a page from buf, which must be exactly
// PageSize bytes (the Page Manager always supplies exactly that many).
func DeserializeSlottedPage[K cmp.Ordered, V any](buf []byte, pageSize int, keyCodec Codec[K], valCodec Codec[V]) (*SlottedPage[K, V], error) {
	if len(buf) != pageSize {
		return nil, &InvalidBufferSizeError{Expected: pageSize, Got: len(buf)}
	}
	nodeTypeByte := buf[8]
	if nodeTypeByte != byte(Internal) && nodeTypeByte != byte(Leaf) {
		return nil, ErrInvalidNodeType
	}
	p := &SlottedPage[K, V]{
		PageID:   binary.LittleEndian.Uint64(buf[0:8]),
		NodeType: NodeType(nodeTypeByte),
		PageSize: pageSize,
		KeyCodec: keyCodec,
		ValCodec: valCodec,
	}
	numKeys := int(binary.LittleEndian.Uint16(buf[9:11]))
	p.FreeSpaceEnd = binary.LittleEndian.Uint16(buf[11:13])
	freeListCount := int(binary.LittleEndian.Uint16(buf[13:15]))

	off := PageHeaderSize
	p.Slots = make([]Slot, numKeys)
	for i := 0; i < numKeys; i++ {
		p.Slots[i] = deserializeSlot(buf[off : off+SlotSize])
		off += SlotSize
	}
	if p.NodeType == Internal {
		p.Pointers = make([]PageID, numKeys+1)
		for i := 0; i <= numKeys; i++ {
			p.Pointers[i] = binary.LittleEndian.Uint64(buf[off : off+PointerSize])
			off += PointerSize
		}
	}
	p.FreeList = make([]FreeSpaceRegion, freeListCount)
	for i := 0; i < freeListCount; i++ {
		p.FreeList[i] = deserializeFreeSpaceRegion(buf[off : off+FreeSpaceRegionSize])
		off += FreeSpaceRegionSize
	}

	p.Data = make([]byte, pageSize)
	copy(p.Data[p.FreeSpaceEnd:], buf[p.FreeSpaceEnd:])
	return p, nil
}
