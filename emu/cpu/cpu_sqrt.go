/*
   IBM 370 hex floating point square root

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

import "math"

// hexToFloat64 converts a normalized or unnormalized hex floating point
// value (sign, characteristic, fraction held in the low fracBits of
// mantissa) to its native double value.
func hexToFloat64(sign bool, fraction uint64, exponent int, fracBits uint) float64 {
	if fraction == 0 {
		return 0
	}
	v := float64(fraction) / float64(uint64(1)<<fracBits)
	v *= math.Pow(16, float64(exponent-64))
	if sign {
		v = -v
	}
	return v
}

// float64ToHex converts a non-negative native double into a normalized hex
// floating point characteristic and fraction of fracBits width.
func float64ToHex(v float64, fracBits uint) (exponent int, fraction uint64) {
	if v == 0 {
		return 0, 0
	}
	exponent = 64
	for v >= 1 {
		v /= 16
		exponent++
	}
	for v < 1.0/16.0 {
		v *= 16
		exponent--
	}
	fraction = uint64(v * float64(uint64(1)<<fracBits))
	return exponent, fraction
}

// fpSqrt computes the hex floating point square root of a value held as
// (sign, characteristic, fraction) with a fraction of fracBits width,
// returning the IBM-format program interruption code on error. A true
// zero operand returns a true zero result, matching the architecture's
// definition of square root of zero.
func fpSqrt(sign bool, exponent int, fraction uint64, fracBits uint) (int, uint64, uint16) {
	if fraction == 0 {
		return 0, 0, 0
	}
	if sign {
		return 0, 0, ircSpec
	}
	root := math.Sqrt(hexToFloat64(false, fraction, exponent, fracBits))
	newExp, newFrac := float64ToHex(root, fracBits)
	return newExp, newFrac, 0
}

// opSQDR computes the long (double) precision square root, FPR1 = sqrt(FPR2).
func (cpu *cpuState) opSQDR(step *stepInfo) uint16 {
	if (step.R1&0x9) != 0 || (step.R2&0x9) != 0 {
		return ircSpec
	}
	src := cpu.fpregs[step.R2]
	sign := (src & MSIGNL) != 0
	exponent := int((src & EMASKL) >> 56)
	fraction := src & MMASKL

	newExp, newFrac, err := fpSqrt(sign, exponent, fraction, 56)
	if err != 0 {
		return err
	}
	cpu.fpregs[step.R1] = (uint64(newExp) << 56 & EMASKL) | (newFrac & MMASKL)

	return 0
}

// opSQER computes the short (single) precision square root, FPR1 = sqrt(FPR2).
func (cpu *cpuState) opSQER(step *stepInfo) uint16 {
	if (step.R1&0x9) != 0 || (step.R2&0x9) != 0 {
		return ircSpec
	}
	src := cpu.fpregs[step.R2] & HMASKL
	sign := (src & MSIGNL) != 0
	exponent := int((src & EMASKL) >> 56)
	fraction := (src & MMASKL) >> 32

	newExp, newFrac, err := fpSqrt(sign, exponent, fraction, 24)
	if err != 0 {
		return err
	}
	result := (uint64(newExp) << 56 & EMASKL) | ((newFrac << 32) & MMASKL)
	cpu.fpregs[step.R1] = result | (cpu.fpregs[step.R1] & LMASKL)

	return 0
}

// opEDX dispatches the storage-operand floating point extensions registered
// at opcode 0xED: a low nibble of 4 in step.reg selects Square Root (long),
// 5 selects Square Root (short); the high nibble of step.reg selects the
// result register.
func (cpu *cpuState) opEDX(step *stepInfo) uint16 {
	r1 := (step.reg >> 4) & 0xf
	switch step.reg & 0xf {
	case 0x4: // SQD
		src1, err := cpu.readFull(step.address1)
		if err != 0 {
			return err
		}
		src2, err := cpu.readFull(step.address1 + 4)
		if err != 0 {
			return err
		}
		operand := (uint64(src1) << 32) | uint64(src2)

		sign := (operand & MSIGNL) != 0
		exponent := int((operand & EMASKL) >> 56)
		fraction := operand & MMASKL

		newExp, newFrac, ferr := fpSqrt(sign, exponent, fraction, 56)
		if ferr != 0 {
			return ferr
		}
		cpu.fpregs[r1] = (uint64(newExp) << 56 & EMASKL) | (newFrac & MMASKL)

	case 0x5: // SQE
		src1, err := cpu.readFull(step.address1)
		if err != 0 {
			return err
		}

		sign := (src1 & 0x80000000) != 0
		exponent := int((src1 >> 24) & 0x7f)
		fraction := uint64(src1 & 0x00ffffff)

		newExp, newFrac, ferr := fpSqrt(sign, exponent, fraction, 24)
		if ferr != 0 {
			return ferr
		}
		result := (uint64(newExp) << 56 & EMASKL) | ((newFrac << 32) & MMASKL)
		cpu.fpregs[r1] = result | (cpu.fpregs[r1] & LMASKL)

	default:
		return ircOper
	}
	return 0
}
