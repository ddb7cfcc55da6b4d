/*
   Signal Processor for IBM 370/ESA-390 simulator.

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

// SIGP order codes this implementation recognizes. The architecture
// defines more; anything else reports CC=3 (not operational/not supported).
const (
	sigpSense   = 1
	sigpExtCall = 2
	sigpEmSig   = 3
	sigpStart   = 4
	sigpStop    = 5
	sigpRestart = 6
	sigpSetPfx  = 13
)

// secondaryCPU is one additional logical CPU beyond the primary CycleCPU
// loop in cpu.go. It owns its own cpuState and runs fetch() in a goroutine
// against the same shared main storage.
type secondaryCPU struct {
	state   cpuState
	running bool
	extIrq  bool
	stopCh  chan struct{}
}

// secCPUs holds every logical CPU address beyond CPU 0 that SIGP has ever
// started, keyed by logical CPU address. Access is serialized by sigpLock.
var secCPUs = map[uint16]*secondaryCPU{}

func (sc *secondaryCPU) run() {
	for {
		select {
		case <-sc.stopCh:
			return
		default:
		}
		if sc.extIrq && sc.state.extEnb {
			sc.state.extIrq = true
			sc.extIrq = false
		}
		sc.state.fetch()
	}
}

// opSIGP implements Signal Processor. R1 carries the target logical CPU
// address, the R3 field (reused as step.R2 by this core's RS decode)
// carries the order code in GR(R3)'s low byte, and the D2(B2) operand
// address is used directly as the order's parameter, per architecture.
func (cpu *cpuState) opSIGP(step *stepInfo) uint16 {
	if (cpu.flags & problem) != 0 {
		return ircPriv
	}

	order := cpu.regs[step.R2] & 0xff
	target := uint16(cpu.regs[step.R1] & 0xffff)
	param := step.address1

	sigpLock.Lock()
	defer sigpLock.Unlock()

	if target == 0 || int(target) >= numCPUs {
		cpu.cc = 3
		return 0
	}

	sc := secCPUs[target]

	switch order {
	case sigpSense:
		if sc == nil || !sc.running {
			cpu.regs[step.R1] = 0x00000004 // CPU not operational status bit
			cpu.cc = 1
		} else {
			cpu.cc = 0
		}

	case sigpStart, sigpRestart:
		if sc == nil {
			sc = &secondaryCPU{}
			secCPUs[target] = sc
		}
		if !sc.running {
			sc.state.createTable()
			sc.state.cpuAddr = target
			sc.state.PC = param & AMASK
			sc.stopCh = make(chan struct{})
			sc.running = true
			go sc.run()
		}
		cpu.cc = 0

	case sigpStop:
		if sc != nil && sc.running {
			close(sc.stopCh)
			sc.running = false
		}
		cpu.cc = 0

	case sigpExtCall, sigpEmSig:
		if sc == nil || !sc.running {
			cpu.cc = 1
			cpu.regs[step.R1] = 0x00000004
		} else {
			sc.extIrq = true
			cpu.cc = 0
		}

	case sigpSetPfx:
		if sc == nil || !sc.running {
			cpu.cc = 1
		} else {
			sc.state.PC = param & AMASK
			cpu.cc = 0
		}

	default:
		cpu.cc = 3
	}

	return 0
}
