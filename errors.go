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

package heapscan

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

var (
	ErrAccessDenied    = errors.New("access denied")
	ErrProcessNotFound = errors.New("no such process")
	ErrUnsupported     = errors.New("remote memory reads are not supported on this platform")
)

// ParseError reports a malformed line of the mapping table.
// It only ever affects the line it was produced for.
type ParseError struct {
	Line   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse maps line %q: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse maps line %q: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadError is a failed remote read inside an accepted segment.
type ReadError struct {
	Addr uint64
	Len  int
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %d bytes at %08X: %v", e.Len, e.Addr, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must stop the whole scan.
// Parse errors are the only recoverable kind.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *ParseError
	return !errors.As(err, &pe)
}

// processError maps errno values and fs errors describing the target
// process itself onto the package sentinels. Anything else is returned as is.
func processError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ESRCH), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrProcessNotFound, err)
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES), errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}
