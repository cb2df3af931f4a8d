package heapscan

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"heapscan/scanner"
)

type fakeRegion struct {
	start uint64
	data  []byte
}

// fakeMemory serves reads from a sparse address space.
type fakeMemory struct {
	regions []fakeRegion
	step    int   // if > 0, the most bytes a single read transfers
	steps   []int // per-read limits, consumed before step applies
	fail    error
	failAt  uint64
	windows [][2]uint64 // requested (base, len)
}

func (m *fakeMemory) ReadRemote(local []byte, base uint64) (int, error) {
	m.windows = append(m.windows, [2]uint64{base, uint64(len(local))})
	if m.fail != nil && base >= m.failAt {
		return 0, &ReadError{Addr: base, Len: len(local), Err: m.fail}
	}
	for _, r := range m.regions {
		if base >= r.start && base < r.start+uint64(len(r.data)) {
			n := copy(local, r.data[base-r.start:])
			limit := m.step
			if len(m.steps) > 0 {
				limit, m.steps = m.steps[0], m.steps[1:]
			}
			if limit > 0 && n > limit {
				n = limit
			}
			return n, nil
		}
	}
	return 0, &ReadError{Addr: base, Len: len(local), Err: fmt.Errorf("unmapped")}
}

func (m *fakeMemory) region(start uint64, size int) []byte {
	data := make([]byte, size)
	m.regions = append(m.regions, fakeRegion{start: start, data: data})
	return data
}

type recorder struct {
	NopObserver
	segments []Segment
	windows  [][2]uint64
	matches  []scanner.Match
}

func (r *recorder) SegmentStarted(seg Segment) {
	r.segments = append(r.segments, seg)
}

func (r *recorder) WindowRead(base uint64, n int) {
	r.windows = append(r.windows, [2]uint64{base, uint64(n)})
}

func (r *recorder) Found(m scanner.Match) {
	r.matches = append(r.matches, m)
}

func mapsLine(start, end uint64, label string) string {
	return fmt.Sprintf("%x-%x rw-p 00000000 00:00 0 %s", start, end, label)
}

func scanTable(t *testing.T, table string, mem *fakeMemory, value int32, opts Options) (*recorder, Stats, error) {
	t.Helper()
	rec := &recorder{}
	stats, err := ScanTable(context.Background(), NewMaps(strings.NewReader(table)), mem, scanner.NewInt32(value), rec, opts)
	return rec, stats, err
}

func TestScanHeapScenario(t *testing.T) {
	mem := &fakeMemory{}
	data := mem.region(0x7f0000000000, 0x1000)
	copy(data, []byte{0x00, 0x00, 0x00, 0x00, 0x2a, 0x00, 0x00, 0x00})

	rec, stats, err := scanTable(t, "7f0000000000-7f0000001000 rw-p 00000000 00:00 0 [heap]\n", mem, 42, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := []scanner.Match{{Addr: 0x7f0000000004, Value: 42}}
	if !reflect.DeepEqual(rec.matches, want) {
		t.Fatalf("matches = %v, want %v", rec.matches, want)
	}
	if stats.Matches != 1 || stats.Segments != 1 || stats.Windows != 1 || stats.Bytes != 0x1000 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestScanSkipsMalformedAndIneligible(t *testing.T) {
	mem := &fakeMemory{}
	stack := mem.region(0x7ffd00000000, 0x2000)
	copy(stack[0x1ff8:], scanner.NewInt32(-7).Bytes())
	file := mem.region(0x55d000000000, 0x1000)
	copy(file, scanner.NewInt32(-7).Bytes())

	table := strings.Join([]string{
		"7ffd00000000-7ffd00002000 rw-p [stack]",
		"not a mapping line",
		"zz-7f rw-p 00000000 00:00 0 [heap]",
		"55d000000000-55d000001000 rw-p 00000000 103:08 42 /usr/bin/target",
		"7f3a00000000-7f3a00001000 rw-p 00000000 00:00 0",
		mapsLine(0x7ffd00000000, 0x7ffd00002000, "[stack]"),
	}, "\n")

	rec, stats, err := scanTable(t, table, mem, -7, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Malformed != 3 || stats.Skipped != 2 || stats.Segments != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(rec.segments) != 1 || rec.segments[0].Kind != KindStack {
		t.Fatalf("segments = %v", rec.segments)
	}
	want := []scanner.Match{{Addr: 0x7ffd00001ff8, Value: -7}}
	if !reflect.DeepEqual(rec.matches, want) {
		t.Fatalf("matches = %v, want %v", rec.matches, want)
	}
	for _, w := range mem.windows {
		if w[0] < 0x7ffd00000000 {
			t.Fatalf("read outside the stack at %X", w[0])
		}
	}
}

func TestScanWindows(t *testing.T) {
	mem := &fakeMemory{}
	mem.region(0x10000, 6000)

	rec, stats, err := scanTable(t, mapsLine(0x10000, 0x10000+6000, "[heap]"), mem, 1, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]uint64{{0x10000, 4096}, {0x10000 + 4096, 1904}}
	if !reflect.DeepEqual(mem.windows, want) || !reflect.DeepEqual(rec.windows, want) {
		t.Fatalf("windows = %v / %v, want %v", mem.windows, rec.windows, want)
	}
	if stats.Windows != 2 || stats.Bytes != 6000 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestScanWindowsCoverSegment(t *testing.T) {
	sizes := []int{1, 3, 4, 4095, 4096, 4097, 8192, 10000}
	chunks := []int{4, 16, 4096, 65536}
	steps := []int{0, 1, 5, 7, 4096}

	for _, size := range sizes {
		for _, chunk := range chunks {
			for _, step := range steps {
				name := fmt.Sprintf("size=%d,chunk=%d,step=%d", size, chunk, step)
				t.Run(name, func(t *testing.T) {
					const start = 0x400000
					mem := &fakeMemory{step: step}
					mem.region(start, size)

					_, _, err := scanTable(t, mapsLine(start, start+uint64(size), "[heap]"), mem, 0, DefaultOptions().with(WithChunkSize(chunk)))
					if err != nil {
						t.Fatal(err)
					}
					var total uint64
					last := uint64(0)
					for i, w := range mem.windows {
						if i > 0 && w[0] <= last {
							t.Fatalf("base did not increase: %v", mem.windows)
						}
						if w[1] > uint64(chunk) {
							t.Fatalf("window %d longer than chunk: %v", i, w)
						}
						last = w[0]
						n := w[1]
						if step > 0 && n > uint64(step) {
							n = uint64(step)
						}
						total += n
					}
					if total != uint64(size) {
						t.Fatalf("transferred %d bytes, want %d", total, size)
					}
				})
			}
		}
	}
}

func TestScanMatchesAligned(t *testing.T) {
	mem := &fakeMemory{}
	data := mem.region(0x20000, 0x3000)
	v := scanner.NewInt32(0x01020304)
	for _, off := range []int{0, 6, 0xffc, 0x1000, 0x1005, 0x2ffc} {
		copy(data[off:], v.Bytes())
	}

	rec, _, err := scanTable(t, mapsLine(0x20000, 0x23000, "[heap]"), mem, v.Int32(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var addrs []uint64
	for _, m := range rec.matches {
		if m.Addr%4 != 0 {
			t.Errorf("unaligned match at %X", m.Addr)
		}
		addrs = append(addrs, m.Addr)
	}
	want := []uint64{0x20000, 0x20ffc, 0x21000, 0x22ffc}
	if !reflect.DeepEqual(addrs, want) {
		t.Fatalf("addresses = %X, want %X", addrs, want)
	}
}

func TestScanIdempotent(t *testing.T) {
	mem := &fakeMemory{step: 1000}
	data := mem.region(0x30000, 0x5000)
	for off := 0; off < len(data); off += 0x104 {
		copy(data[off:], scanner.NewInt32(99).Bytes())
	}
	table := mapsLine(0x30000, 0x35000, "[heap]")
	opts := DefaultOptions().with(WithBoundary(BoundaryOverlap))

	first, _, err := scanTable(t, table, mem, 99, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := scanTable(t, table, mem, 99, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.matches) == 0 || !reflect.DeepEqual(first.matches, second.matches) {
		t.Fatalf("runs differ: %d vs %d matches", len(first.matches), len(second.matches))
	}
}

func TestScanBoundaryPolicy(t *testing.T) {
	// a transfer of 6 bytes leaves the value at offset 4 split in two
	newMemory := func() *fakeMemory {
		mem := &fakeMemory{step: 6}
		data := mem.region(0x40000, 16)
		copy(data[4:], scanner.NewInt32(1234).Bytes())
		return mem
	}
	table := mapsLine(0x40000, 0x40010, "[heap]")

	t.Run("compat misses split value", func(t *testing.T) {
		rec, _, err := scanTable(t, table, newMemory(), 1234, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if len(rec.matches) != 0 {
			t.Fatalf("matches = %v", rec.matches)
		}
	})

	t.Run("overlap finds split value", func(t *testing.T) {
		mem := newMemory()
		rec, _, err := scanTable(t, table, mem, 1234, DefaultOptions().with(WithBoundary(BoundaryOverlap)))
		if err != nil {
			t.Fatal(err)
		}
		want := []scanner.Match{{Addr: 0x40004, Value: 1234}}
		if !reflect.DeepEqual(rec.matches, want) {
			t.Fatalf("matches = %v, want %v", rec.matches, want)
		}
		if mem.windows[1][0] != 0x40004 {
			t.Fatalf("second window starts at %X, want 40004", mem.windows[1][0])
		}
	})
}

func TestScanOverlapStaysAligned(t *testing.T) {
	mem := &fakeMemory{steps: []int{1, 5}}
	data := mem.region(0x1000, 16)
	copy(data[1:], scanner.NewInt32(77).Bytes())
	copy(data[8:], scanner.NewInt32(77).Bytes())

	rec, _, err := scanTable(t, mapsLine(0x1000, 0x1010, "[heap]"), mem, 77, DefaultOptions().with(WithBoundary(BoundaryOverlap)))
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range mem.windows {
		if (w[0]-0x1000)%scanner.ValueSize != 0 {
			t.Errorf("window starts off a slot at %X", w[0])
		}
	}
	want := []scanner.Match{{Addr: 0x1008, Value: 77}}
	if !reflect.DeepEqual(rec.matches, want) {
		t.Fatalf("matches = %v, want %v", rec.matches, want)
	}
}

func TestBoundaryNext(t *testing.T) {
	tests := []struct {
		policy BoundaryPolicy
		base   uint64
		size   int
		want   uint64
	}{
		{BoundaryCompat, 0x1000, 4096, 0x2000},
		{BoundaryCompat, 0x1000, 6, 0x1006},
		{BoundaryOverlap, 0x1000, 4096, 0x2000},
		{BoundaryOverlap, 0x1000, 6, 0x1004},
		{BoundaryOverlap, 0x1000, 3, 0x1004},
		{BoundaryOverlap, 0x1000, 1, 0x1004},
		{BoundaryOverlap, 0x1004, 5, 0x1008},
		{BoundaryOverlap, 0x1004, 7, 0x1008},
	}
	for _, tt := range tests {
		if got := tt.policy.next(0x1000, tt.base, tt.size); got != tt.want {
			t.Errorf("%s.next(%X, %d) = %X, want %X", tt.policy, tt.base, tt.size, got, tt.want)
		}
	}
}

func TestScanFatalReadError(t *testing.T) {
	mem := &fakeMemory{fail: ErrAccessDenied, failAt: 0x51000}
	mem.region(0x50000, 0x2000)
	mem.region(0x60000, 0x1000)
	table := mapsLine(0x50000, 0x52000, "[heap]") + "\n" + mapsLine(0x60000, 0x61000, "[stack]")

	_, stats, err := scanTable(t, table, mem, 0, DefaultOptions())
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("error = %v, want ErrAccessDenied", err)
	}
	if !IsFatal(err) {
		t.Fatal("read error not fatal")
	}
	var re *ReadError
	if !errors.As(err, &re) || re.Addr != 0x51000 {
		t.Fatalf("error = %v, want ReadError at 51000", err)
	}
	if stats.Segments != 1 || len(mem.windows) != 2 {
		t.Fatalf("scan continued after a fatal error: %+v %v", stats, mem.windows)
	}
}

func TestScanCancelled(t *testing.T) {
	mem := &fakeMemory{}
	mem.region(0x70000, 0x1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ScanTable(ctx, NewMaps(strings.NewReader(mapsLine(0x70000, 0x71000, "[heap]"))), mem, scanner.NewInt32(0), nil, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(mem.windows) != 0 {
		t.Fatalf("read after cancel: %v", mem.windows)
	}
}

func TestScanInvalidChunkSize(t *testing.T) {
	for _, size := range []int{0, -4, 3, 4098} {
		_, _, err := scanTable(t, "", &fakeMemory{}, 0, DefaultOptions().with(WithChunkSize(size)))
		if err == nil {
			t.Errorf("chunk size %d accepted", size)
		}
	}
}
