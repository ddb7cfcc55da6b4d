/*
   Access register load/store for IBM 370/ESA-390 simulator.

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

// opLAM loads access registers R1 through R2 (the RS instruction's R3
// field, reusing step.R2) from consecutive words starting at the operand
// address, wrapping from 15 back to 0.
func (cpu *cpuState) opLAM(step *stepInfo) uint16 {
	addr := step.address1
	reg := step.R1
	for {
		val, err := cpu.readFull(addr)
		if err != 0 {
			return err
		}
		cpu.aregs[reg] = val
		addr += 4
		if reg == step.R2 {
			break
		}
		reg = (reg + 1) & 0xf
	}
	return 0
}

// opSTAM stores access registers R1 through R2 to consecutive words
// starting at the operand address, wrapping from 15 back to 0.
func (cpu *cpuState) opSTAM(step *stepInfo) uint16 {
	addr := step.address1
	reg := step.R1
	for {
		if err := cpu.writeFull(addr, cpu.aregs[reg]); err != 0 {
			return err
		}
		addr += 4
		if reg == step.R2 {
			break
		}
		reg = (reg + 1) & 0xf
	}
	return 0
}
