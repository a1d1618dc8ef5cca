/*
Copyright © 2025 the RDSim authors.
This file is part of RDSim.

RDSim is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RDSim is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RDSim.  If not, see <http://www.gnu.org/licenses/>.
*/

package rdsim

import "sync/atomic"

// BlockTicket hands out consecutive half-open ranges [start, end) of
// the interval [0, total), at most block long, to concurrent callers.
type BlockTicket struct {
	cursor atomic.Int64
	total  int
	block  int
}

// NewBlockTicket returns a ticket over [0, total). block must be positive.
func NewBlockTicket(total, block int) *BlockTicket {
	if block < 1 {
		panic("rdsim: block size must be positive")
	}
	return &BlockTicket{total: total, block: block}
}

// Next claims the next range. ok is false once the ticket is exhausted.
func (t *BlockTicket) Next() (start, end int, ok bool) {
	s := t.cursor.Add(int64(t.block)) - int64(t.block)
	if s >= int64(t.total) {
		return 0, 0, false
	}
	start = int(s)
	end = start + t.block
	if end > t.total {
		end = t.total
	}
	return start, end, true
}

// Claimed returns the number of elements handed out so far.
func (t *BlockTicket) Claimed() int {
	c := int(t.cursor.Load())
	if c > t.total {
		return t.total
	}
	return c
}
