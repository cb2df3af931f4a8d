package scanner

import "fmt"

// Match is an occurrence of the value at an absolute address.
type Match struct {
	Addr  uint64
	Value int32
}

func (m Match) String() string {
	return fmt.Sprintf("%d @ %X", m.Value, m.Addr)
}

type Collector interface {
	Collect(m Match)
}

type CollectorFunc func(m Match)

func (c CollectorFunc) Collect(m Match) {
	c(m)
}

type SliceCollector struct {
	Results []Match
}

func (c *SliceCollector) Collect(m Match) {
	c.Results = append(c.Results, m)
}

func NewSliceCollector(initialCapacity int) *SliceCollector {
	return &SliceCollector{
		Results: make([]Match, 0, initialCapacity),
	}
}
