package scanner

// Scanner finds naturally aligned occurrences of a Value in raw memory.
type Scanner struct {
	value *Value
}

func NewScanner(value *Value) *Scanner {
	return &Scanner{value: value}
}

// ScanChunk reports every match in buf, where buf[0] lives at address base.
// Offsets 0, 4, 8, ... are checked while a whole value still fits, so a
// trailing partial value is ignored. It returns the number of matches.
func (s *Scanner) ScanChunk(buf []byte, base uint64, collector Collector) (found int) {
	target := s.value.Int32()
	for off := 0; off+ValueSize <= len(buf); off += ValueSize {
		if !s.value.EqualBytes(buf[off:]) {
			continue
		}
		found++
		if collector != nil {
			collector.Collect(Match{Addr: base + uint64(off), Value: target})
		}
	}
	return
}
