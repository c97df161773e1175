// Unit tests for object pools
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestByteBufferPool(t *testing.T) {
	b := GetByteBuffer()
	if b.Len() != 0 {
		t.Fatalf("new buffer has %d bytes", b.Len())
	}
	b.WriteString("hello")
	b.WriteByte(' ')
	b.Write([]byte("world"))
	if string(b.Bytes()) != "hello world" {
		t.Errorf("contents = %q", b.Bytes())
	}
	b.Reset()
	if b.Len() != 0 || b.Cap() == 0 {
		t.Error("reset should keep capacity and drop contents")
	}
	PutByteBuffer(b)

	b2 := GetByteBuffer()
	if b2.Len() != 0 {
		t.Error("pooled buffer should be empty")
	}
	PutByteBuffer(b2)
	PutByteBuffer(nil)
}

func TestByteBufferJSON(t *testing.T) {
	b := GetByteBuffer()
	defer PutByteBuffer(b)
	if err := json.NewEncoder(b).Encode(map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(b.Bytes())); got != `{"a":1}` {
		t.Errorf("encoded %q", got)
	}
}

func TestOversizedBufferDropped(t *testing.T) {
	b := GetByteBuffer()
	b.Write(make([]byte, maxPooledBuffer+1))
	// Must not panic or poison the pool.
	PutByteBuffer(b)
	if GetByteBuffer().Len() != 0 {
		t.Error("buffer from pool not empty")
	}
}

func TestStatusMapPool(t *testing.T) {
	m := GetStatusMap()
	m["door01"] = 1.5
	PutStatusMap(m)
	m2 := GetStatusMap()
	if len(m2) != 0 {
		t.Errorf("pooled map has %d entries", len(m2))
	}
	PutStatusMap(m2)
	PutStatusMap(nil)
}

func TestStats(t *testing.T) {
	before := GetStats()
	PutStatusMap(GetStatusMap())
	after := GetStats()
	if after.Gets != before.Gets+1 {
		t.Errorf("gets %d -> %d", before.Gets, after.Gets)
	}
	if after.Misses < before.Misses {
		t.Error("misses went backwards")
	}
}

func TestConcurrentPool(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := GetByteBuffer()
				b.WriteString("x")
				if b.Len() != 1 {
					t.Error("buffer shared between goroutines")
				}
				PutByteBuffer(b)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkByteBuffer(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := GetByteBuffer()
		buf.WriteString(`{"jsonrpc":"2.0","method":"notify_status_update"}`)
		PutByteBuffer(buf)
	}
}
