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
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"heapscan/logflags"
	"heapscan/scanner"
)

// RemoteReader copies len(local) bytes starting at the remote address base.
// A short count is a successful partial transfer; any error is fatal.
type RemoteReader interface {
	ReadRemote(local []byte, base uint64) (int, error)
}

// Observer receives scan progress. Every method is called from the scanning
// goroutine, in address order.
type Observer interface {
	SegmentStarted(seg Segment)
	WindowRead(base uint64, n int)
	Found(m scanner.Match)
}

// NopObserver ignores everything; embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) SegmentStarted(Segment) {}
func (NopObserver) WindowRead(uint64, int) {}
func (NopObserver) Found(scanner.Match) {}

type Stats struct {
	// Lines that could not be parsed.
	Malformed int
	// Parsed segments that are neither heap nor stack.
	Skipped int
	// Segments actually scanned.
	Segments int
	Windows  int
	Bytes    uint64
	Matches  int
	Elapsed  time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%d segments, %d windows, %d bytes, %d matches in %s",
		s.Segments, s.Windows, s.Bytes, s.Matches, s.Elapsed)
}

// ScanTable runs one pass over the mapping table: every line is parsed and
// classified, and every heap or stack segment is read window by window and
// searched for value. Malformed lines are skipped. A failed remote read ends
// the pass, as does ctx being cancelled between two windows.
func ScanTable(ctx context.Context, maps *Maps, reader RemoteReader, value *scanner.Value, observer Observer, opts Options) (stats Stats, err error) {
	if err = opts.validate(); err != nil {
		return
	}
	if observer == nil {
		observer = NopObserver{}
	}

	st := time.Now()
	defer func() {
		stats.Elapsed = time.Since(st)
	}()

	lines, err := maps.Lines()
	if err != nil {
		return
	}

	buf := getWindowBuffer(opts.ChunkSize)
	defer freeWindowBuffer(buf)

	loop := &scanLoop{
		reader:   reader,
		scan:     scanner.NewScanner(value),
		observer: observer,
		opts:     opts,
		stats:    &stats,
		buf:      *buf,
		logger:   logflags.ScanLogger(),
	}
	mapsLogger := logflags.MapsLogger()

	for _, line := range lines {
		seg, perr := ParseSegment(line)
		if perr != nil {
			stats.Malformed++
			mapsLogger.WithError(perr).Debug("skip line")
			continue
		}
		if !seg.Eligible() {
			stats.Skipped++
			continue
		}
		if err = loop.segment(ctx, seg); err != nil {
			return
		}
	}
	return
}

type scanLoop struct {
	reader   RemoteReader
	scan     *scanner.Scanner
	observer Observer
	opts     Options
	stats    *Stats
	buf      []byte
	logger   *logrus.Entry
}

func (l *scanLoop) Collect(m scanner.Match) {
	l.stats.Matches++
	l.observer.Found(m)
}

func (l *scanLoop) segment(ctx context.Context, seg Segment) error {
	l.stats.Segments++
	l.observer.SegmentStarted(seg)

	chunk := uint64(l.opts.ChunkSize)
	base := seg.Start
	remaining := seg.Size()

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		window := l.buf[:min(remaining, chunk)]
		size, err := l.reader.ReadRemote(window, base)
		if err != nil {
			return fmt.Errorf("scan %s %08X-%08X: %w", seg.Label, seg.Start, seg.End, err)
		}
		if size > len(window) {
			size = len(window)
		}

		l.stats.Windows++
		l.stats.Bytes += uint64(size)
		l.observer.WindowRead(base, size)
		if logflags.Scan() {
			l.logger.Debugf("window %08X+%d (%d requested)", base, size, len(window))
		}

		l.scan.ScanChunk(window[:size], base, l)

		base = l.opts.Boundary.next(seg.Start, base, size)
		remaining = 0
		if base < seg.End {
			remaining = seg.End - base
		}
	}
	return nil
}
