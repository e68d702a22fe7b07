package output

import (
	"bytes"
	"testing"

	"github.com/arloliu/cso/section"
	"github.com/stretchr/testify/require"
)

// fakeSector parks its readiness callback so a test decides when, and in which
// order, sectors become ready.
type fakeSector struct {
	h *harness

	pos        int64
	raw        []byte
	best       []byte
	compressed bool
	ready      func(err error)
	releases   int
}

func (s *fakeSector) Process(pos int64, buf []byte, ready func(err error)) {
	s.pos = pos
	s.raw = buf
	s.ready = ready
	s.h.processing[pos] = s
}

func (s *fakeSector) Reserve(pos int64, buf []byte) {
	s.pos = pos
	s.raw = buf
	s.best = buf
}

func (s *fakeSector) Pos() int64         { return s.pos }
func (s *fakeSector) BestBuffer() []byte { return s.best }
func (s *fakeSector) BestSize() int      { return len(s.best) }
func (s *fakeSector) Compressed() bool   { return s.compressed }

func (s *fakeSector) Release() {
	s.releases++
	s.pos = 0
	s.raw = nil
	s.best = nil
	s.compressed = false
}

type write struct {
	off  int64
	data []byte
	bufs int
}

// fakeDest records every write into an in-memory image. Completions run
// inline unless deferred is set, in which case completeWrite runs them.
type fakeDest struct {
	deferred bool
	short    map[int]int64 // write number -> bytes left unwritten
	errs     map[int]error // write number -> error reported

	writes  []write
	pending []func()
	image   []byte
}

func (d *fakeDest) WriteV(bufs [][]byte, off int64, done func(n int64, err error)) {
	data := bytes.Join(bufs, nil)
	i := len(d.writes)
	d.writes = append(d.writes, write{off: off, data: data, bufs: len(bufs)})

	n := int64(len(data)) - d.short[i]
	if end := off + n; end > int64(len(d.image)) {
		d.image = append(d.image, make([]byte, end-int64(len(d.image)))...)
	}
	copy(d.image[off:], data[:n])

	err := d.errs[i]
	complete := func() { done(n, err) }
	if d.deferred {
		d.pending = append(d.pending, complete)
		return
	}
	complete()
}

func (d *fakeDest) completeWrite(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, d.pending, "no write in flight")

	done := d.pending[0]
	d.pending = d.pending[1:]
	done()
}

type harness struct {
	t          *testing.T
	out        *Output
	dst        *fakeDest
	sectors    []*fakeSector
	processing map[int64]*fakeSector

	progress    []float64
	finishCalls int
	finishErr   error
}

func newHarness(t *testing.T, sourceSize int64, dst *fakeDest, opts ...Option) *harness {
	t.Helper()

	h := &harness{t: t, dst: dst, processing: make(map[int64]*fakeSector)}
	out, err := New(func() Sector {
		s := &fakeSector{h: h}
		h.sectors = append(h.sectors, s)

		return s
	}, opts...)
	require.NoError(t, err)

	out.OnProgress(func(f float64) { h.progress = append(h.progress, f) })
	out.OnFinish(func(err error) {
		h.finishCalls++
		h.finishErr = err
	})
	require.NoError(t, out.SetDestination(dst, sourceSize))
	h.out = out

	return h
}

// sectorData returns a recognizable raw sector for pos.
func sectorData(pos int64) []byte {
	return bytes.Repeat([]byte{byte(pos>>section.SectorShift) + 0x10}, section.SectorSize)
}

func (h *harness) enqueue(positions ...int64) {
	h.t.Helper()
	for _, pos := range positions {
		require.NoError(h.t, h.out.Enqueue(pos, sectorData(pos)))
	}
}

// ready completes processing of the sector at pos. A size below SectorSize
// makes it compressed to size bytes, otherwise it stays raw.
func (h *harness) ready(pos int64, size int) {
	h.t.Helper()

	s, ok := h.processing[pos]
	require.True(h.t, ok, "sector %d is not processing", pos)
	delete(h.processing, pos)

	if size < section.SectorSize {
		s.best = bytes.Repeat([]byte{0xC0 | byte(pos>>section.SectorShift)}, size)
		s.compressed = true
	} else {
		s.best = s.raw
	}

	ready := s.ready
	s.ready = nil
	ready(nil)
}

func (h *harness) readyRaw(positions ...int64) {
	h.t.Helper()
	for _, pos := range positions {
		h.ready(pos, section.SectorSize)
	}
}

func (h *harness) failSector(pos int64, err error) {
	h.t.Helper()

	s, ok := h.processing[pos]
	require.True(h.t, ok, "sector %d is not processing", pos)
	delete(h.processing, pos)

	ready := s.ready
	s.ready = nil
	ready(err)
}

// decoded is a container read back from an image.
type decoded struct {
	header section.Header
	index  []section.IndexEntry
}

func decodeImage(t *testing.T, image []byte) decoded {
	t.Helper()

	require.GreaterOrEqual(t, len(image), section.HeaderSize)
	header, err := section.ParseHeader(image[:section.HeaderSize])
	require.NoError(t, err)

	index, err := section.ParseIndex(image[section.HeaderSize:], header.SectorCount()+1)
	require.NoError(t, err)

	return decoded{header: header, index: index}
}

// payload returns the stored bytes of sector i, padding excluded for raw
// sectors.
func (d decoded) payload(t *testing.T, image []byte, i int) []byte {
	t.Helper()

	shift := d.header.IndexShift
	start := d.index[i].Offset(shift)
	end := d.index[i+1].Offset(shift)
	require.LessOrEqual(t, start, end)
	require.LessOrEqual(t, end, int64(len(image)))

	if d.index[i].Uncompressed() {
		require.GreaterOrEqual(t, end-start, int64(section.SectorSize))
		return image[start : start+section.SectorSize]
	}

	return image[start:end]
}
