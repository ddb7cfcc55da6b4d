/*
   MVS lock assist instructions for IBM 370/ESA-390 simulator.

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
	mem "github.com/rcornwell/esa390/emu/memory"
)

// opE5 dispatches the SSE-format MVS lock assists. Operand 1 is the ASCB;
// operand 2's first word is the locks-held indicator (PSAHLHI) and second
// word points to the lock interface table. step.reg carries the E5xx
// extension code in place of split R1/R2 nibbles.
func (cpu *cpuState) opE5(step *stepInfo) uint16 {
	switch step.reg {
	case 0x04:
		return cpu.obtainLock(step, false)
	case 0x05:
		return cpu.releaseLock(step, false)
	case 0x06:
		return cpu.obtainLock(step, true)
	case 0x07:
		return cpu.releaseLock(step, true)
	default:
		return ircOper
	}
}

// obtainLock implements Obtain Local Lock (E504) and Obtain CMS Lock (E506).
func (cpu *cpuState) obtainLock(step *stepInfo, cms bool) uint16 {
	ascb := step.address1
	hlhiAddr := step.address2
	if (ascb&0x3) != 0 || (hlhiAddr&0x3) != 0 {
		return ircSpec
	}

	serializeBarrier()
	lockMain()
	defer unlockMain()

	lockAddr := ascb + ascbLocalLock
	heldBit := localHeld
	if cms {
		lockAddr = cpu.regs[11]
		heldBit = cmsHeld
	}
	if (lockAddr & 0x3) != 0 {
		return ircSpec
	}

	lockVal, err := mem.GetWord(lockAddr)
	if err {
		return ircAddr
	}
	hlhi, err := mem.GetWord(hlhiAddr)
	if err {
		return ircAddr
	}

	free := lockVal == 0 && (hlhi&heldBit) == 0
	if cms {
		free = free && (hlhi&localHeld) != 0
	}

	if !free {
		return cpu.lockFallback(step, cms, true)
	}

	owner := ascb
	if !cms {
		owner, err = mem.GetWord(psaCPUAddr)
		if err {
			return ircAddr
		}
	}
	if mem.PutWord(lockAddr, owner) {
		return ircAddr
	}
	hlhi, err = mem.GetWord(hlhiAddr)
	if err {
		return ircAddr
	}
	if mem.PutWord(hlhiAddr, hlhi|heldBit) {
		return ircAddr
	}
	cpu.regs[13] = 0

	return 0
}

// releaseLock implements Release Local Lock (E505) and Release CMS Lock (E507).
func (cpu *cpuState) releaseLock(step *stepInfo, cms bool) uint16 {
	ascb := step.address1
	hlhiAddr := step.address2
	if (ascb&0x3) != 0 || (hlhiAddr&0x3) != 0 {
		return ircSpec
	}

	serializeBarrier()
	lockMain()
	defer unlockMain()

	lockAddr := ascb + ascbLocalLock
	suspendAddr := ascb + ascbSuspendQ
	heldBit := localHeld
	if cms {
		lockAddr = cpu.regs[11]
		suspendAddr = lockAddr + 4
		heldBit = cmsHeld
	}
	if (lockAddr & 0x3) != 0 {
		return ircSpec
	}

	lockVal, err := mem.GetWord(lockAddr)
	if err {
		return ircAddr
	}
	hlhi, err := mem.GetWord(hlhiAddr)
	if err {
		return ircAddr
	}
	suspendQ, err := mem.GetWord(suspendAddr)
	if err {
		return ircAddr
	}

	owner := ascb
	if !cms {
		owner, err = mem.GetWord(psaCPUAddr)
		if err {
			return ircAddr
		}
	}

	held := (hlhi & heldBit) != 0
	mine := lockVal == owner
	empty := suspendQ == 0
	if !cms {
		mine = mine && (hlhi&cmsHeld) == 0
	}

	if !(held && mine && empty) {
		return cpu.lockFallback(step, cms, false)
	}

	if mem.PutWord(lockAddr, 0) {
		return ircAddr
	}
	hlhi, err = mem.GetWord(hlhiAddr)
	if err {
		return ircAddr
	}
	if mem.PutWord(hlhiAddr, hlhi&^heldBit) {
		return ircAddr
	}
	cpu.regs[13] = 0

	return 0
}

// lockFallback branches to the software fallback routine named by the
// lock-interface table when an obtain or release precondition fails.
// GR12 receives the current PSW instruction address, GR13 the new one.
func (cpu *cpuState) lockFallback(step *stepInfo, cms, obtain bool) uint16 {
	litBase, err := mem.GetWord(step.address2 + 4)
	if err {
		return ircAddr
	}

	var off uint32
	switch {
	case !cms && obtain:
		off = litObtainLocal
	case cms && obtain:
		off = litObtainCMS
	case !cms && !obtain:
		off = litReleaseLocal
	default:
		off = litReleaseCMS
	}

	newIA, err := mem.GetWord((litBase + off) & AMASK)
	if err {
		return ircAddr
	}

	cpu.regs[12] = cpu.PC
	cpu.regs[13] = newIA
	cpu.PC = newIA & AMASK

	return 0
}
