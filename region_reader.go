// Copyright (C) 2025 kayon <kayon.hu@gmail.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

//go:build linux

package heapscan

import (
	"io"

	"golang.org/x/sys/unix"
)

var _ RemoteReader = (*ProcessReader)(nil)

// ProcessReader copies memory out of another process with process_vm_readv,
// one local and one remote iovec per call.
type ProcessReader struct {
	pid int

	// pre-allocation
	lIov [1]unix.Iovec
	rIov [1]unix.RemoteIovec
}

func NewProcessReader(pid int) *ProcessReader {
	return &ProcessReader{pid: pid}
}

func (r *ProcessReader) ReadRemote(local []byte, base uint64) (n int, err error) {
	if len(local) == 0 {
		return 0, nil
	}

	r.lIov[0].Base = &local[0]
	r.lIov[0].SetLen(len(local))

	r.rIov[0].Base = uintptr(base)
	r.rIov[0].Len = len(local)

	n, err = unix.ProcessVMReadv(r.pid, r.lIov[:], r.rIov[:], 0)
	if err != nil {
		// when an error occurs, n may be -1
		return 0, &ReadError{Addr: base, Len: len(local), Err: processError(err)}
	}
	if n == 0 {
		return 0, &ReadError{Addr: base, Len: len(local), Err: io.ErrNoProgress}
	}
	return n, nil
}
