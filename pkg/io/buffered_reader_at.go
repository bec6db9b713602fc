// Package io holds reader helpers for files read from a backend.
package io

import (
	"io"
	"sync"
)

type readerBuffer struct {
	off  int64
	buf  []byte
	used int64
}

// BufferedReaderAt reads ahead in fixed size blocks and keeps the most
// recently used of them, turning the many small reads of a parquet footer
// and page walk into few backend requests. It is safe for concurrent use.
type BufferedReaderAt struct {
	mtx  sync.Mutex
	ra   io.ReaderAt
	size int64

	bufferSize int
	buffers    []*readerBuffer
	tick       int64
}

var _ io.ReaderAt = (*BufferedReaderAt)(nil)

// NewBufferedReaderAt keeps up to count buffers of size bytes over ra. A
// size or count of 0 disables buffering.
func NewBufferedReaderAt(ra io.ReaderAt, readerAtSize int64, size, count int) *BufferedReaderAt {
	if count <= 0 {
		size = 0
	}
	return &BufferedReaderAt{
		ra:         ra,
		size:       readerAtSize,
		bufferSize: size,
		buffers:    make([]*readerBuffer, 0, count),
	}
}

// calculateBounds widens a read to the buffer size, backing up from the end
// of the file when needed.
func calculateBounds(offset, length int64, bufferSize int, readerAtSize int64) (int64, int64) {
	if length >= int64(bufferSize) {
		return offset, length
	}
	length = int64(bufferSize)
	if offset+length > readerAtSize {
		offset = readerAtSize - length
		if offset < 0 {
			offset = 0
			length = readerAtSize
		}
	}
	return offset, length
}

func (r *BufferedReaderAt) ReadAt(b []byte, offset int64) (int, error) {
	length := int64(len(b))
	if r.bufferSize == 0 || length >= int64(r.bufferSize) {
		return r.ra.ReadAt(b, offset)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.tick++
	for _, rb := range r.buffers {
		if offset >= rb.off && offset+length <= rb.off+int64(len(rb.buf)) {
			rb.used = r.tick
			return copy(b, rb.buf[offset-rb.off:]), nil
		}
	}

	off, l := calculateBounds(offset, length, r.bufferSize, r.size)
	rb := r.victim()
	if int64(cap(rb.buf)) < l {
		rb.buf = make([]byte, l)
	}
	rb.buf = rb.buf[:l]
	n, err := r.ra.ReadAt(rb.buf, off)
	if err != nil && (err != io.EOF || int64(n) < l) {
		// drop the partial buffer and let the reader report the error
		rb.buf, rb.used = rb.buf[:0], 0
		return r.ra.ReadAt(b, offset)
	}
	rb.off, rb.used = off, r.tick
	return copy(b, rb.buf[offset-off:]), nil
}

// victim returns an unused buffer, or the least recently used one.
func (r *BufferedReaderAt) victim() *readerBuffer {
	if len(r.buffers) < cap(r.buffers) {
		rb := &readerBuffer{}
		r.buffers = append(r.buffers, rb)
		return rb
	}
	oldest := r.buffers[0]
	for _, rb := range r.buffers[1:] {
		if rb.used < oldest.used {
			oldest = rb
		}
	}
	return oldest
}
