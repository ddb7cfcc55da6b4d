package memory

/*
 * S370  - Low level memory
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import "sync"

// Frame size of one storage key, per the architecture: one key byte
// covers a 4096-byte frame.
const frameSize = 4096

// Key byte layout.
const (
	KeyAccess uint8 = 0xf0 // Storage protection access key.
	KeyFetch  uint8 = 0x08 // Fetch protect.
	KeyRef    uint8 = 0x04 // Reference bit.
	KeyChange uint8 = 0x02 // Change bit.
	KeyBad    uint8 = 0x01 // Bad frame (simulated hardware failure marker).
)

type mem struct {
	mem  [4 * 1024 * 1024]uint32
	key  [(4 * 1024 * 1024 * 4) / frameSize]uint8
	size uint32
	lock sync.Mutex

	esLock sync.Mutex
	es     [][frameSize]byte // Expanded storage, one 4K block per entry.
}

var memory mem

const (
	AMASK uint32 = 0x00ffffff // Mask address bits
)

// Lock acquires the process-wide main-storage access lock (C9). Held only
// for the duration of an atomic sequence (CS, CDS, PLO, MVS-assist locks,
// IPTE/SSKE/RRBE) — never across an instruction boundary.
func Lock() {
	memory.lock.Lock()
}

// Unlock releases the main-storage access lock.
func Unlock() {
	memory.lock.Unlock()
}

// Set size in K
func SetSize(k int) {
	if k > (16 * 1024) {
		k = 16 * 1024
	}
	memory.size = uint32(k * 1024)
}

// Return size of memory in bytes
func GetSize() uint32 {
	return memory.size
}

// Get memory value without range check
func GetMemory(addr uint32) uint32 {
	memory.key[addr/frameSize] |= KeyRef // Update access bits
	return memory.mem[addr>>2]
}

// Set memory to a value, without range check
func SetMemory(addr, data uint32) {
	memory.key[addr/frameSize] |= KeyRef | KeyChange // Update Access and modify bits
	memory.mem[addr>>2] = data
}

// Set memory to a value, without range check
func SetMemoryMask(addr uint32, data uint32, mask uint32) {
	memory.key[addr/frameSize] |= KeyRef | KeyChange // Update Access and modify bits
	addr >>= 2
	memory.mem[addr] &= ^mask
	memory.mem[addr] |= data & mask
}

// Check if address out of range
func CheckAddr(addr uint32) bool {
	return addr < memory.size
}

// Get a word from memory
func GetWord(addr uint32) (value uint32, error bool) {
	if addr >= memory.size {
		return 0, true
	}
	memory.key[addr/frameSize] |= KeyRef // Update Access bits
	return memory.mem[addr>>2], false
}

// Put a word to memory
func PutWord(addr, data uint32) bool {
	if addr >= memory.size {
		return true
	}
	memory.key[addr/frameSize] |= KeyRef | KeyChange // Update Access and modify bits
	memory.mem[addr>>2] = data
	return false
}

// Put a word to memory, under mask
func PutWordMask(addr, data, mask uint32) bool {
	if addr >= memory.size {
		return true
	}
	memory.key[addr/frameSize] |= KeyRef | KeyChange // Update Access and modify bits
	addr >>= 2
	memory.mem[addr] &= ^mask
	memory.mem[addr] |= data & mask
	return false
}

func GetKey(addr uint32) uint8 {
	if addr >= memory.size {
		return 0
	}
	return memory.key[addr/frameSize]
}

func PutKey(addr uint32, key uint8) {
	if addr < memory.size {
		memory.key[addr/frameSize] = key
	}
}

// SetExpandedSize allocates n blocks of expanded storage (4 KiB each).
func SetExpandedSize(n int) {
	memory.esLock.Lock()
	defer memory.esLock.Unlock()
	memory.es = make([][frameSize]byte, n)
}

// ExpandedBlocks returns the number of expanded-storage blocks configured.
func ExpandedBlocks() int {
	memory.esLock.Lock()
	defer memory.esLock.Unlock()
	return len(memory.es)
}

// ReadBlock copies one 4 KiB expanded-storage block into dst.
func ReadBlock(block int, dst *[frameSize]byte) bool {
	memory.esLock.Lock()
	defer memory.esLock.Unlock()
	if block < 0 || block >= len(memory.es) {
		return true
	}
	*dst = memory.es[block]
	return false
}

// WriteBlock copies src into one 4 KiB expanded-storage block.
func WriteBlock(block int, src *[frameSize]byte) bool {
	memory.esLock.Lock()
	defer memory.esLock.Unlock()
	if block < 0 || block >= len(memory.es) {
		return true
	}
	memory.es[block] = *src
	return false
}
