//go:build !linux

package heapscan

var _ RemoteReader = (*ProcessReader)(nil)

type ProcessReader struct {
	pid int
}

func NewProcessReader(pid int) *ProcessReader {
	return &ProcessReader{pid: pid}
}

func (r *ProcessReader) ReadRemote(local []byte, base uint64) (int, error) {
	return 0, &ReadError{Addr: base, Len: len(local), Err: ErrUnsupported}
}
