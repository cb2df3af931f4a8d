package heapscan

import (
	"fmt"

	"heapscan/scanner"
)

// BoundaryPolicy decides where the window after a read starts.
type BoundaryPolicy uint8

const (
	// BoundaryCompat continues right after the last transferred byte.
	// Windows never overlap, so after a partial transfer whose length is not
	// a multiple of 4 a value split across the two windows is missed.
	BoundaryCompat BoundaryPolicy = iota

	// BoundaryOverlap restarts at the last 4-byte slot (relative to the
	// segment start) that was not completely read, re-reading up to 3 bytes.
	// Windows therefore always start on a slot, and so do reported matches.
	BoundaryOverlap
)

func (p BoundaryPolicy) String() string {
	if p == BoundaryOverlap {
		return "overlap"
	}
	return "compat"
}

func (p BoundaryPolicy) next(segStart, base uint64, size int) uint64 {
	next := base + uint64(size)
	if p != BoundaryOverlap || size%scanner.ValueSize == 0 {
		return next
	}
	aligned := segStart + (next-segStart)&^uint64(scanner.ValueSize-1)
	if aligned <= base {
		// fewer than 4 bytes transferred: rewinding would read the same
		// window again, so give up on that slot and move to the next one
		return aligned + scanner.ValueSize
	}
	return aligned
}

type Options struct {
	ChunkSize int
	Boundary  BoundaryPolicy
	// Freeze stops the target with SIGSTOP for the duration of a scan.
	Freeze bool
}

func DefaultOptions() Options {
	return Options{
		ChunkSize: DefaultChunkSize,
		Boundary:  BoundaryCompat,
	}
}

func (opts Options) validate() error {
	if opts.ChunkSize < scanner.ValueSize || opts.ChunkSize%scanner.ValueSize != 0 {
		return fmt.Errorf("chunk size %d is not a positive multiple of %d", opts.ChunkSize, scanner.ValueSize)
	}
	return nil
}

type Option func(*Options)

func (opts Options) with(options ...Option) Options {
	for _, option := range options {
		option(&opts)
	}
	return opts
}

func WithChunkSize(size int) Option {
	return func(opts *Options) {
		opts.ChunkSize = size
	}
}

func WithBoundary(policy BoundaryPolicy) Option {
	return func(opts *Options) {
		opts.Boundary = policy
	}
}

func WithFreeze(freeze bool) Option {
	return func(opts *Options) {
		opts.Freeze = freeze
	}
}
