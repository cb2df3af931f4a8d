package heapscan

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"heapscan/logflags"
)

const (
	// address perms offset dev inode
	mapsFieldsMin = 5
	// ... followed by a pathname
	mapsFieldsWithPath = 6
)

// Maps is the mapping table of one process, read once.
type Maps struct {
	r     io.Reader
	close func() error
}

// OpenMaps opens /proc/<pid>/maps. Failing to open it is fatal for the
// scan: the process is gone or we are not allowed to look at it.
func OpenMaps(pid int) (*Maps, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, processError(err)
	}
	return &Maps{r: f, close: f.Close}, nil
}

// NewMaps reads a mapping table from r, e.g. a saved copy.
func NewMaps(r io.Reader) *Maps {
	return &Maps{r: r}
}

func (m *Maps) Close() error {
	if m.close == nil {
		return nil
	}
	err := m.close()
	m.close = nil
	return err
}

// Lines returns every record of the table. The kernel generates the file on
// read, so a read error mid-way is reported rather than truncating silently.
func (m *Maps) Lines() ([][]byte, error) {
	if seeker, ok := m.r.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, processError(err)
		}
	}
	var lines [][]byte
	bufScan := bufio.NewScanner(m.r)
	for bufScan.Scan() {
		lines = append(lines, bytes.Clone(bufScan.Bytes()))
	}
	if err := bufScan.Err(); err != nil {
		return lines, processError(err)
	}
	return lines, nil
}

// Segments parses every line, skipping the malformed ones.
func (m *Maps) Segments() (Segments, error) {
	lines, err := m.Lines()
	if err != nil {
		return nil, err
	}
	logger := logflags.MapsLogger()
	segments := make(Segments, 0, len(lines))
	for _, line := range lines {
		seg, err := ParseSegment(line)
		if err != nil {
			logger.WithError(err).Debug("skip line")
			continue
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// ParseSegment parses one record of the form
//
//	<start>-<end> <perms> <offset> <dev> <inode> [<pathname>]
//
// Fields may be separated by any run of whitespace. The label is the last
// field of a record that carries a pathname, empty otherwise.
func ParseSegment(raw []byte) (Segment, error) {
	fields := bytes.Fields(raw)
	if len(fields) < mapsFieldsMin {
		return Segment{}, &ParseError{Line: string(raw), Reason: "too few fields"}
	}

	addr := bytes.Split(fields[0], []byte{'-'})
	if len(addr) != 2 {
		return Segment{}, &ParseError{Line: string(raw), Reason: "address is not <start>-<end>"}
	}

	start, err := strconv.ParseUint(string(addr[0]), 16, 64)
	if err != nil {
		return Segment{}, &ParseError{Line: string(raw), Reason: "bad start address", Err: err}
	}
	end, err := strconv.ParseUint(string(addr[1]), 16, 64)
	if err != nil {
		return Segment{}, &ParseError{Line: string(raw), Reason: "bad end address", Err: err}
	}
	if start >= end {
		return Segment{}, &ParseError{Line: string(raw), Reason: "empty or inverted range"}
	}

	seg := Segment{
		Start: start,
		End:   end,
		Perms: ParsePermissions(fields[1]),
	}
	if len(fields) >= mapsFieldsWithPath {
		seg.Label = string(fields[len(fields)-1])
	}
	seg.Kind = Classify(seg.Label)
	return seg, nil
}
