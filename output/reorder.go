package output

import "fmt"

// reorderBuffer holds ready sectors that are ahead of the write cursor, keyed
// by source position.
//
// Every held position is strictly greater than the cursor, so "the smallest
// held position equals the cursor" is the same test as "the cursor is held",
// and an exact lookup replaces an ordered min query.
type reorderBuffer struct {
	sectors  map[int64]Sector
	maxDepth int
}

func newReorderBuffer(capacity int) *reorderBuffer {
	return &reorderBuffer{sectors: make(map[int64]Sector, capacity)}
}

// put holds s until its position comes up. A second sector for a held
// position breaks single ownership and panics.
func (b *reorderBuffer) put(s Sector) {
	pos := s.Pos()
	if _, ok := b.sectors[pos]; ok {
		panic(fmt.Sprintf("output: duplicate ready sector at position %d", pos))
	}

	b.sectors[pos] = s
	b.maxDepth = max(b.maxDepth, len(b.sectors))
}

// take removes and returns the sector held at pos, or nil.
func (b *reorderBuffer) take(pos int64) Sector {
	s, ok := b.sectors[pos]
	if !ok {
		return nil
	}
	delete(b.sectors, pos)

	return s
}

func (b *reorderBuffer) size() int {
	return len(b.sectors)
}
