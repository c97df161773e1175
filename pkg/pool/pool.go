// Object pools for the telemetry hot path
//
// Status broadcasts run once per publish interval for every subscriber, so
// the maps they build and the buffers they encode into are reused:
//
//	buf := pool.GetByteBuffer()
//	defer pool.PutByteBuffer(buf)
//	json.NewEncoder(buf).Encode(msg)
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"sync"
	"sync/atomic"
)

// maxPooledBuffer is the largest buffer capacity returned to the pool.
const maxPooledBuffer = 64 << 10

// ByteBuffer is an append-only byte buffer implementing io.Writer.
type ByteBuffer struct {
	buf []byte
}

var byteBufferPool = sync.Pool{
	New: func() any {
		misses.Add(1)
		return &ByteBuffer{buf: make([]byte, 0, 512)}
	},
}

// GetByteBuffer gets an empty byte buffer from the pool
func GetByteBuffer() *ByteBuffer {
	gets.Add(1)
	b := byteBufferPool.Get().(*ByteBuffer)
	b.buf = b.buf[:0]
	return b
}

// PutByteBuffer returns a byte buffer to the pool. Oversized buffers are
// dropped.
func PutByteBuffer(b *ByteBuffer) {
	if b == nil || cap(b.buf) > maxPooledBuffer {
		return
	}
	byteBufferPool.Put(b)
}

// Bytes returns the buffer contents. The slice is only valid until the
// buffer is reused.
func (b *ByteBuffer) Bytes() []byte {
	return b.buf
}

// Write appends bytes to the buffer
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends a single byte
func (b *ByteBuffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteString appends a string
func (b *ByteBuffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

func (b *ByteBuffer) Len() int { return len(b.buf) }
func (b *ByteBuffer) Cap() int { return cap(b.buf) }

// Reset clears the buffer
func (b *ByteBuffer) Reset() {
	b.buf = b.buf[:0]
}

var statusMapPool = sync.Pool{
	New: func() any {
		misses.Add(1)
		return make(map[string]any, 16)
	},
}

// GetStatusMap gets an empty status map from the pool
func GetStatusMap() map[string]any {
	gets.Add(1)
	return statusMapPool.Get().(map[string]any)
}

// PutStatusMap clears m and returns it to the pool
func PutStatusMap(m map[string]any) {
	if m == nil {
		return
	}
	clear(m)
	statusMapPool.Put(m)
}

var gets, misses atomic.Uint64

// Stats reports pool usage since start.
type Stats struct {
	Gets   uint64
	Misses uint64
}

// GetStats returns how many objects were requested and how many had to be
// allocated.
func GetStats() Stats {
	return Stats{Gets: gets.Load(), Misses: misses.Load()}
}
