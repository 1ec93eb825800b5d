package recordstore

import (
	"encoding/binary"
)

// Page is one fixed-size block of a record-store file, held in memory while
// the page pool caches it. Adapted from the teacher's pkg/storage/disk.Page:
// a flat byte buffer of fixed length with little-endian int accessors.
type Page struct {
	buf   []byte
	dirty bool
}

func newPage(size int) *Page {
	return &Page{buf: make([]byte, size)}
}

func pageFromBytes(b []byte) *Page {
	return &Page{buf: b}
}

func (p *Page) getUint32(offset int) uint32 {
	return binary.LittleEndian.Uint32(p.buf[offset:])
}

func (p *Page) putUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(p.buf[offset:], v)
}

func (p *Page) slice(offset, length int) []byte {
	return p.buf[offset : offset+length]
}

func (p *Page) setSlice(offset int, b []byte) {
	copy(p.buf[offset:offset+len(b)], b)
	p.dirty = true
}

func (p *Page) contents() []byte { return p.buf }
