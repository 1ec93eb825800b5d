// Package recordstore implements the out-of-core, file-backed fixed-size
// record sequence described in spec §4.1: append, random indexed read/write,
// length, in-place transform, and external-merge sort by a caller-supplied
// comparator. Every other pipeline stage consumes this abstraction
// exclusively; none of them opens a *os.File directly.
package recordstore

import (
	"fmt"
	"os"
)

// defaultBlockBytes mirrors the teacher's storage.MAX_PAGE_SIZE (16KB
// pages), the granularity at which the page pool reads and writes.
const defaultBlockBytes = 16384

// defaultPoolCapacity bounds how many blocks stay resident, mirroring the
// teacher's MAX_BUFFER_POOL_SIZE (200MB / 16KB pages).
const defaultPoolCapacity = 200 * 1024 * 1024 / defaultBlockBytes

// Codec describes how to turn a record of type T into and out of a
// fixed-size byte slice.
type Codec[T any] interface {
	Size() int
	Encode(v T, buf []byte)
	Decode(buf []byte) T
}

// Sequence is a fixed-size record sequence backed by a single file, with a
// bounded page cache in front of it so operations stay correct on datasets
// that do not fit in memory.
type Sequence[T any] struct {
	path       string
	file       *os.File
	codec      Codec[T]
	recordSize int
	perBlock   int
	blockBytes int
	pool       *pagePool
	length     int64
}

// Open opens the record store file at path for records encoded by codec,
// creating it if absent. An existing file is not truncated: its records are
// kept and Size reflects them.
func Open[T any](path string, codec Codec[T]) (*Sequence[T], error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("recordstore: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	recordSize := codec.Size()
	perBlock := defaultBlockBytes / recordSize
	if perBlock < 1 {
		perBlock = 1
	}
	blockBytes := perBlock * recordSize
	s := &Sequence[T]{
		path:       path,
		file:       f,
		codec:      codec,
		recordSize: recordSize,
		perBlock:   perBlock,
		blockBytes: blockBytes,
		pool:       newPagePool(f, blockBytes, defaultPoolCapacity),
		length:     info.Size() / int64(recordSize),
	}
	return s, nil
}

// Close flushes dirty pages and closes the underlying file.
func (s *Sequence[T]) Close() error {
	if err := s.pool.flushAll(); err != nil {
		return err
	}
	return s.file.Close()
}

// Size returns the number of records currently in the sequence.
func (s *Sequence[T]) Size() int64 { return s.length }

func (s *Sequence[T]) blockAndOffset(i int64) (int64, int) {
	block := i / int64(s.perBlock)
	offset := int(i%int64(s.perBlock)) * s.recordSize
	return block, offset
}

// At reads the record at index i.
func (s *Sequence[T]) At(i int64) (T, error) {
	var zero T
	if i < 0 || i >= s.length {
		return zero, fmt.Errorf("recordstore: index %d out of range [0,%d)", i, s.length)
	}
	block, offset := s.blockAndOffset(i)
	bp, err := s.pool.fetch(block)
	if err != nil {
		return zero, err
	}
	return s.codec.Decode(bp.page.slice(offset, s.recordSize)), nil
}

// Set overwrites the record at index i.
func (s *Sequence[T]) Set(i int64, v T) error {
	if i < 0 || i >= s.length {
		return fmt.Errorf("recordstore: index %d out of range [0,%d)", i, s.length)
	}
	block, offset := s.blockAndOffset(i)
	bp, err := s.pool.fetch(block)
	if err != nil {
		return err
	}
	buf := make([]byte, s.recordSize)
	s.codec.Encode(v, buf)
	bp.page.setSlice(offset, buf)
	s.pool.markDirty(block)
	return nil
}

// PushBack appends v and returns the new length.
func (s *Sequence[T]) PushBack(v T) (int64, error) {
	i := s.length
	s.length++
	block, offset := s.blockAndOffset(i)
	bp, err := s.pool.fetch(block)
	if err != nil {
		return 0, err
	}
	if offset+s.recordSize > len(bp.page.contents()) {
		return 0, fmt.Errorf("recordstore: record does not fit in block (corrupt block size)")
	}
	buf := make([]byte, s.recordSize)
	s.codec.Encode(v, buf)
	bp.page.setSlice(offset, buf)
	s.pool.markDirty(block)
	return s.length, nil
}

// Iterator is a stable cursor over a Sequence. Arithmetic between two
// iterators of the same sequence returns their element distance.
type Iterator[T any] struct {
	seq *Sequence[T]
	pos int64
}

func (s *Sequence[T]) Begin() Iterator[T] { return Iterator[T]{seq: s, pos: 0} }
func (s *Sequence[T]) End() Iterator[T]   { return Iterator[T]{seq: s, pos: s.length} }
func (s *Sequence[T]) IterAt(i int64) Iterator[T] { return Iterator[T]{seq: s, pos: i} }

func (it Iterator[T]) Pos() int64 { return it.pos }
func (it Iterator[T]) Next() Iterator[T] { return Iterator[T]{seq: it.seq, pos: it.pos + 1} }
func (it Iterator[T]) Prev() Iterator[T] { return Iterator[T]{seq: it.seq, pos: it.pos - 1} }
func (it Iterator[T]) Advance(n int64) Iterator[T] { return Iterator[T]{seq: it.seq, pos: it.pos + n} }
func (it Iterator[T]) Distance(o Iterator[T]) int64 { return it.pos - o.pos }
func (it Iterator[T]) Equal(o Iterator[T]) bool { return it.pos == o.pos }
func (it Iterator[T]) Done() bool { return it.pos >= it.seq.length }

func (it Iterator[T]) Get() (T, error) { return it.seq.At(it.pos) }
func (it Iterator[T]) Set(v T) error   { return it.seq.Set(it.pos, v) }

// Transform applies f to every record in a single forward pass, giving f
// the current position alongside a pointer to the decoded value; any
// mutation f makes is written back before advancing.
func (s *Sequence[T]) Transform(f func(pos int64, v *T)) error {
	for i := int64(0); i < s.length; i++ {
		v, err := s.At(i)
		if err != nil {
			return err
		}
		f(i, &v)
		if err := s.Set(i, v); err != nil {
			return err
		}
	}
	return nil
}
