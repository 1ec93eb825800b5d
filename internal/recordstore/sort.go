package recordstore

import (
	"bufio"
	"container/heap"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/exp/rand"
)

// maxInMemoryRun bounds how many records one sort run holds in memory before
// it is spilled to a temp file, keeping the sort correct on sequences too
// large for RAM (§4.1: sort "reorders in place under an external-merge-sort
// discipline").
const maxInMemoryRun = 500_000

// Sort reorders the sequence in place using less as the ordering predicate.
// It invalidates every previously held Iterator/index: callers that need to
// repair cross-references (as the node sorter does, §4.3) must do so with a
// subsequent pass over the freshly sorted sequence.
func (s *Sequence[T]) Sort(less func(a, b T) bool) error {
	if err := s.pool.flushAll(); err != nil {
		return err
	}
	n := s.length
	if n <= maxInMemoryRun {
		return s.sortInMemory(less)
	}
	return s.sortExternal(less)
}

func (s *Sequence[T]) sortInMemory(less func(a, b T) bool) error {
	n := int(s.length)
	buf := make([]T, n)
	for i := 0; i < n; i++ {
		v, err := s.At(int64(i))
		if err != nil {
			return err
		}
		buf[i] = v
	}
	sort.Slice(buf, func(i, j int) bool { return less(buf[i], buf[j]) })
	for i := 0; i < n; i++ {
		if err := s.Set(int64(i), buf[i]); err != nil {
			return err
		}
	}
	if err := s.pool.flushAll(); err != nil {
		return err
	}
	s.pool.invalidateAll()
	return nil
}

// runReader streams records sequentially out of one sorted run's temp file.
type runReader[T any] struct {
	r         *bufio.Reader
	codec     Codec[T]
	buf       []byte
	remaining int64
	head      T
	hasHead   bool
	closer    io.Closer
}

func (rr *runReader[T]) fill() error {
	if rr.remaining == 0 {
		rr.hasHead = false
		return nil
	}
	if _, err := io.ReadFull(rr.r, rr.buf); err != nil {
		return err
	}
	rr.head = rr.codec.Decode(rr.buf)
	rr.hasHead = true
	rr.remaining--
	return nil
}

// mergeHeap is a min-heap over the current head record of each open run.
type mergeHeap[T any] struct {
	runs []*runReader[T]
	less func(a, b T) bool
}

func (h *mergeHeap[T]) Len() int { return len(h.runs) }
func (h *mergeHeap[T]) Less(i, j int) bool {
	return h.less(h.runs[i].head, h.runs[j].head)
}
func (h *mergeHeap[T]) Swap(i, j int) { h.runs[i], h.runs[j] = h.runs[j], h.runs[i] }
func (h *mergeHeap[T]) Push(x any)    { h.runs = append(h.runs, x.(*runReader[T])) }
func (h *mergeHeap[T]) Pop() any {
	old := h.runs
	n := len(old)
	v := old[n-1]
	h.runs = old[:n-1]
	return v
}

func (s *Sequence[T]) sortExternal(less func(a, b T) bool) error {
	tmpDir := fmt.Sprintf("%s.sorttmp-%d", s.path, rand.Uint32())
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	n := s.length
	var runPaths []string
	for start := int64(0); start < n; start += maxInMemoryRun {
		end := start + maxInMemoryRun
		if end > n {
			end = n
		}
		count := int(end - start)
		buf := make([]T, count)
		for i := 0; i < count; i++ {
			v, err := s.At(start + int64(i))
			if err != nil {
				return err
			}
			buf[i] = v
		}
		sort.Slice(buf, func(i, j int) bool { return less(buf[i], buf[j]) })

		runPath := fmt.Sprintf("%s/run-%d", tmpDir, len(runPaths))
		if err := writeRun(runPath, buf, s.codec); err != nil {
			return err
		}
		runPaths = append(runPaths, runPath)
	}

	outPath := s.path + ".sorted"
	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}

	h := &mergeHeap[T]{less: less}
	var readers []*runReader[T]
	for _, rp := range runPaths {
		f, err := os.Open(rp)
		if err != nil {
			return err
		}
		info, _ := f.Stat()
		rr := &runReader[T]{
			r:         bufio.NewReaderSize(f, s.recordSize*256),
			codec:     s.codec,
			buf:       make([]byte, s.recordSize),
			remaining: info.Size() / int64(s.recordSize),
			closer:    f,
		}
		if err := rr.fill(); err != nil && err != io.EOF {
			return err
		}
		if rr.hasHead {
			heap.Push(h, rr)
		}
		readers = append(readers, rr)
	}

	writeBuf := make([]byte, s.recordSize)
	writer := bufio.NewWriterSize(outFile, s.recordSize*256)
	for h.Len() > 0 {
		rr := heap.Pop(h).(*runReader[T])
		s.codec.Encode(rr.head, writeBuf)
		if _, err := writer.Write(writeBuf); err != nil {
			return err
		}
		if err := rr.fill(); err != nil && err != io.EOF {
			return err
		}
		if rr.hasHead {
			heap.Push(h, rr)
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	for _, rr := range readers {
		rr.closer.Close()
	}
	if err := outFile.Close(); err != nil {
		return err
	}

	if err := s.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(outPath, s.path); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	s.file = f
	s.pool = newPagePool(f, s.blockBytes, defaultPoolCapacity)
	return nil
}

func writeRun[T any](path string, records []T, codec Codec[T]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, codec.Size()*256)
	buf := make([]byte, codec.Size())
	for _, v := range records {
		codec.Encode(v, buf)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}
