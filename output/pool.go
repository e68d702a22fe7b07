package output

import "github.com/arloliu/cso/errs"

// sectorPool is the fixed free list of sectors. Its size caps how many sectors
// are in flight between the reader and the destination.
type sectorPool struct {
	free []Sector
	size int
}

func newSectorPool(size int, factory SectorFactory) *sectorPool {
	p := &sectorPool{
		free: make([]Sector, 0, size),
		size: size,
	}
	for range size {
		p.free = append(p.free, factory())
	}

	return p
}

// acquire checks out a free sector.
func (p *sectorPool) acquire() (Sector, error) {
	if len(p.free) == 0 {
		return nil, errs.ErrPoolExhausted
	}

	s := p.free[len(p.free)-1]
	p.free[len(p.free)-1] = nil
	p.free = p.free[:len(p.free)-1]

	return s, nil
}

// release resets s and returns it to the free list.
func (p *sectorPool) release(s Sector) {
	s.Release()
	p.free = append(p.free, s)
}

func (p *sectorPool) full() bool {
	return len(p.free) == 0
}

// inUse returns the number of checked out sectors.
func (p *sectorPool) inUse() int {
	return p.size - len(p.free)
}
