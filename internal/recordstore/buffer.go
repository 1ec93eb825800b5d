package recordstore

import (
	"container/list"
	"os"
	"sync"
)

// bufferedPage mirrors the teacher's pkg/storage/buffer.Buffer: a cached
// in-memory copy of one on-disk block, written back to disk when it is dirty
// and is evicted or flushed. The pins field is not used for eviction.
type bufferedPage struct {
	blockID int64
	page    *Page
	pins    int
	dirty   bool
}

// pagePool is a bounded, blockSize-granular cache in front of a single
// record-store file, letting a Sequence operate on datasets larger than RAM
// without holding the whole file in memory (§4.1: "must tolerate datasets
// larger than RAM; mmap-style paging or chunked read/write both satisfy the
// contract").
type pagePool struct {
	mu        sync.Mutex
	file      *os.File
	blockSize int
	capacity  int
	entries   map[int64]*list.Element // blockID -> lru element
	lru       *list.List              // front = most recently used
}

func newPagePool(file *os.File, blockSize, capacity int) *pagePool {
	return &pagePool{
		file:      file,
		blockSize: blockSize,
		capacity:  capacity,
		entries:   make(map[int64]*list.Element),
		lru:       list.New(),
	}
}

// fetch returns the page for blockID, reading it from disk (or zero-filling
// past EOF) if it is not already cached, and evicting the least-recently
// used page if the pool is at capacity.
func (p *pagePool) fetch(blockID int64) (*bufferedPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.entries[blockID]; ok {
		p.lru.MoveToFront(el)
		return el.Value.(*bufferedPage), nil
	}

	if p.lru.Len() >= p.capacity {
		if err := p.evictLocked(); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, p.blockSize)
	n, err := p.file.ReadAt(buf, blockID*int64(p.blockSize))
	if err != nil && n == 0 {
		// Past EOF: this is a fresh block, served zero-filled.
	}
	bp := &bufferedPage{blockID: blockID, page: pageFromBytes(buf)}
	el := p.lru.PushFront(bp)
	p.entries[blockID] = el
	return bp, nil
}

func (p *pagePool) markDirty(blockID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.entries[blockID]; ok {
		el.Value.(*bufferedPage).dirty = true
	}
}

// evictLocked flushes and drops the least-recently-used page. Caller holds p.mu.
func (p *pagePool) evictLocked() error {
	back := p.lru.Back()
	if back == nil {
		return nil
	}
	bp := back.Value.(*bufferedPage)
	if bp.dirty {
		if _, err := p.file.WriteAt(bp.page.contents(), bp.blockID*int64(p.blockSize)); err != nil {
			return err
		}
	}
	p.lru.Remove(back)
	delete(p.entries, bp.blockID)
	return nil
}

// flushAll writes back every dirty page. Used before size-affecting
// operations (sort) and on close.
func (p *pagePool) flushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for el := p.lru.Front(); el != nil; el = el.Next() {
		bp := el.Value.(*bufferedPage)
		if bp.dirty {
			if _, err := p.file.WriteAt(bp.page.contents(), bp.blockID*int64(p.blockSize)); err != nil {
				return err
			}
			bp.dirty = false
		}
	}
	return nil
}

// invalidateAll drops every cached page without writing back — used by the
// in-memory sort once its writes have been flushed.
func (p *pagePool) invalidateAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[int64]*list.Element)
	p.lru = list.New()
}
