/*
   Perform Locked Operation for IBM 370/ESA-390 simulator.

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

// PLO sub-function codes, taken from GR0 bits 24-31.
const (
	ploCL = iota
	ploCLG
	ploCS
	ploCSG
	ploDCS
	ploDCSG
	ploCSST
	ploCSSTG
	ploCSDST
	ploCSDSTG
	ploCSTST
	ploCSTSTG
	ploFuncCount
)

// ploDesc describes one PLO sub-function in terms of the generic
// compare/store engine below: words is the operand width (1 for the plain
// form, 2 for the "G" form standing in for a 64-bit operand since this core
// has no native 64-bit general registers), load skips the compare entirely,
// dcomp requires a second location (named by the parameter list) to also
// compare equal, and stores counts additional unconditional stores made
// from the parameter list once the compare succeeds.
type ploDesc struct {
	words  int
	load   bool
	dcomp  bool
	stores int
}

var ploTable = [ploFuncCount]ploDesc{
	ploCL:     {words: 1, load: true},
	ploCLG:    {words: 2, load: true},
	ploCS:     {words: 1},
	ploCSG:    {words: 2},
	ploDCS:    {words: 1, dcomp: true},
	ploDCSG:   {words: 2, dcomp: true},
	ploCSST:   {words: 1, stores: 1},
	ploCSSTG:  {words: 2, stores: 1},
	ploCSDST:  {words: 1, dcomp: true, stores: 1},
	ploCSDSTG: {words: 2, dcomp: true, stores: 1},
	ploCSTST:  {words: 1, stores: 2},
	ploCSTSTG: {words: 2, stores: 2},
}

// opPLO implements Perform Locked Operation. GR0 bit 0 requests a pure
// capability query (CC=0, nothing else touched); otherwise GR0's low byte
// selects one of the twelve sub-functions above. Operand 1 names the
// primary compare/store location, operand 2 the word-granularity parameter
// list carrying replacement values and any secondary compare/store
// locations, read and written in that order.
func (cpu *cpuState) opPLO(step *stepInfo) uint16 {
	if (cpu.regs[0] & 0x80000000) != 0 {
		cpu.cc = 0
		return 0
	}

	fn := cpu.regs[0] & 0xff
	if fn >= ploFuncCount {
		cpu.cc = 3
		return 0
	}
	desc := ploTable[fn]

	if (step.address1&0x3) != 0 || (step.address2&0x3) != 0 {
		return ircSpec
	}

	serializeBarrier()
	lockMain()
	defer unlockMain()

	r1 := step.R1

	if desc.load {
		for i := 0; i < desc.words; i++ {
			val, err := cpu.readFull(step.address1 + uint32(i*4))
			if err != 0 {
				return err
			}
			cpu.regs[(int(r1)+i)&0xf] = val
		}
		cpu.cc = 0
		return 0
	}

	match := true
	for i := 0; i < desc.words; i++ {
		cur, err := cpu.readFull(step.address1 + uint32(i*4))
		if err != 0 {
			return err
		}
		if cur != cpu.regs[(int(r1)+i)&0xf] {
			match = false
		}
	}

	listAddr := step.address2

	if desc.dcomp {
		addr2, err := cpu.readFull(listAddr)
		if err != 0 {
			return err
		}
		listAddr += 4
		for i := 0; i < desc.words; i++ {
			cmpVal, err := cpu.readFull(listAddr)
			if err != 0 {
				return err
			}
			listAddr += 4
			cur, err := cpu.readFull(addr2 + uint32(i*4))
			if err != 0 {
				return err
			}
			if cur != cmpVal {
				match = false
			}
		}
	}

	if !match {
		for i := 0; i < desc.words; i++ {
			val, err := cpu.readFull(step.address1 + uint32(i*4))
			if err != 0 {
				return err
			}
			cpu.regs[(int(r1)+i)&0xf] = val
		}
		cpu.cc = 1
		spinBackoff()
		return 0
	}

	for i := 0; i < desc.words; i++ {
		repl, err := cpu.readFull(listAddr)
		if err != 0 {
			return err
		}
		listAddr += 4
		if err := cpu.writeFull(step.address1+uint32(i*4), repl); err != 0 {
			return err
		}
	}

	for range desc.stores {
		addr, err := cpu.readFull(listAddr)
		if err != 0 {
			return err
		}
		listAddr += 4
		for i := 0; i < desc.words; i++ {
			val, err := cpu.readFull(listAddr)
			if err != 0 {
				return err
			}
			listAddr += 4
			if err := cpu.writeFull(addr+uint32(i*4), val); err != 0 {
				return err
			}
		}
	}

	cpu.cc = 0
	return 0
}
