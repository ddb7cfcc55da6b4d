/*
   S370 - Master control packet, passed between telnet front ends, the
   regular interval timer, and the running CPU core.

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

// Package master defines the single packet type shared between the telnet
// front ends, the interval timer, and the CPU core goroutine. All of these
// run concurrently and rendezvous only on the master channel.
package master

import "net"

// Msg identifies what a Packet is asking the core to do.
type Msg int

const (
	// Start lets the core begin executing instructions.
	Start Msg = iota
	// Stop halts instruction execution without tearing down the core.
	Stop
	// IPLdevice requests an initial program load from DevNum.
	IPLdevice
	// TimeClock delivers a regular interval-timer pulse.
	TimeClock
	// TelConnect reports a new telnet connection for DevNum.
	TelConnect
	// TelDisconnect reports a telnet connection for DevNum closing.
	TelDisconnect
	// TelReceive delivers input bytes read from a telnet connection.
	TelReceive
)

// Packet is sent over the master channel to drive the CPU core from
// outside its own goroutine.
type Packet struct {
	DevNum uint16   // Target device for IPL/telnet messages.
	Msg    Msg      // What action to perform.
	Conn   net.Conn // Connection for TelConnect.
	Data   []byte   // Payload for TelReceive.
}
