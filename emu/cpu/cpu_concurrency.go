/*
   CPU concurrency coordinator for IBM 370/ESA-390 simulator.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package cpu

import (
	"errors"
	"runtime"
	"sync"
	"unicode"

	config "github.com/rcornwell/esa390/config/configparser"
	mem "github.com/rcornwell/esa390/emu/memory"
)

// numCPUs is the configured number of logical CPUs sharing main storage.
// Set by configuration at startup (see setNumCPU below). Only
// affects whether a failed CS/CDS/PLO bothers to yield the host thread.
var numCPUs = 1

// todLock serializes updates to the shared TOD clock performed by the
// interval timer goroutine against STCK/STCKE/SCK reads from CPU threads.
var todLock sync.Mutex

// serializeLock stands in for a process-wide memory barrier: instructions
// documented to serialize (CS, CDS, TS, IPTE, STCK, SIGP, BCR 0xF,0) take
// and immediately release it.
var serializeLock sync.Mutex

// sigpLock guards reads/writes of a peer CPU's register context performed
// from SIGP, distinct from the main-storage lock.
var sigpLock sync.Mutex

// lockMain acquires the process-wide main-storage access lock (C9). It is
// the single lock CS, CDS, PLO, and the MVS-assist instructions share with
// the storage substrate, so all callers agree on one mutex.
func lockMain() {
	mem.Lock()
}

// unlockMain releases the main-storage access lock.
func unlockMain() {
	mem.Unlock()
}

// serializeBarrier performs the ordered-memory-barrier substitute required
// around serializing instructions.
func serializeBarrier() {
	serializeLock.Lock()
	serializeLock.Unlock() //nolint:staticcheck // barrier, not a guarded critical section
}

// spinBackoff yields the host thread after a failed CS/CDS/PLO so that a
// guest spinlock does not monopolize a physical CPU. Purely a politeness
// heuristic; it has no architectural effect.
func spinBackoff() {
	if numCPUs > 1 {
		runtime.Gosched()
	}
}

// setNumCPU records how many logical CPUs are configured. Registered with
// the config layer alongside the existing memsize/vma/ipldev switches.
func setNumCPU(_ uint16, number string, _ []config.Option) error {
	n := 0
	for _, digit := range number {
		if !unicode.IsDigit(digit) {
			return errors.New("CPU count not a number: " + number)
		}
		n = (n * 10) + (int(digit) - '0')
	}
	if n < 1 {
		n = 1
	}
	numCPUs = n
	return nil
}

func init() {
	config.RegisterOption("NUMCPU", setNumCPU)
}
