package heapscan

import (
	"context"
	"errors"
	"fmt"

	"heapscan/logflags"
	"heapscan/proc"
	"heapscan/scanner"
)

var errNotOpened = errors.New("no process opened")

// Heapscan scans the heap and stack of one process for an int32 value.
type Heapscan struct {
	proc   *proc.Process
	maps   *Maps
	reader RemoteReader
	opts   Options
}

func New(options ...Option) *Heapscan {
	return &Heapscan{opts: DefaultOptions().with(options...)}
}

// Open attaches to pid. Nothing is read from its memory yet.
func (h *Heapscan) Open(pid int) (err error) {
	_ = h.Close()

	h.proc, err = proc.NewProcess(pid)
	if err != nil {
		h.proc = nil
		return fmt.Errorf("open process %d: %w", pid, processError(err))
	}
	h.maps, err = OpenMaps(pid)
	if err != nil {
		h.proc = nil
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	h.reader = NewProcessReader(pid)
	return nil
}

func (h *Heapscan) Close() (err error) {
	if h.maps != nil {
		err = h.maps.Close()
		h.maps = nil
	}
	h.reader = nil
	return
}

func (h *Heapscan) Process() *proc.Process {
	return h.proc
}

func (h *Heapscan) Options() Options {
	return h.opts
}

// Segments returns the parsed mapping table, eligible or not.
func (h *Heapscan) Segments() (Segments, error) {
	if h.maps == nil {
		return nil, errNotOpened
	}
	return h.maps.Segments()
}

// Scan makes one pass over the opened process. It may be called again for
// a fresh pass; the mapping table is re-read every time.
func (h *Heapscan) Scan(ctx context.Context, value *scanner.Value, observer Observer) (Stats, error) {
	if h.maps == nil || h.proc == nil {
		return Stats{}, errNotOpened
	}
	if !h.proc.Alive() {
		_ = h.Close()
		return Stats{}, fmt.Errorf("process %d: %w", h.proc.PID, ErrProcessNotFound)
	}

	if h.opts.Freeze {
		logger := logflags.ProcLogger()
		if err := h.proc.Pause(); err != nil {
			return Stats{}, fmt.Errorf("stop process %d: %w", h.proc.PID, processError(err))
		}
		logger.Debugf("stopped %d", h.proc.PID)
		defer func() {
			if err := h.proc.Resume(); err != nil {
				logger.WithError(err).Warnf("resume %d", h.proc.PID)
				return
			}
			logger.Debugf("resumed %d", h.proc.PID)
		}()
	}

	stats, err := ScanTable(ctx, h.maps, h.reader, value, observer, h.opts)
	logflags.ScanLogger().Debugf("pid %d: %s", h.proc.PID, stats)
	return stats, err
}
