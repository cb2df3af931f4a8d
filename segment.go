package heapscan

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	labelHeap  = "[heap]"
	labelStack = "[stack]"
)

// SegmentKind is what a mapping is backed by, derived from its label.
type SegmentKind uint8

const (
	KindAnonymous SegmentKind = iota
	KindHeap
	KindStack
	KindFileBacked
	KindOther
)

var kindName = [...]string{"anon", "heap", "stack", "file", "other"}

func (k SegmentKind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Classify maps a label onto its kind. Heap and stack are exact matches,
// so per-thread names like "[stack:1234]" end up as KindOther.
func Classify(label string) SegmentKind {
	switch {
	case label == "":
		return KindAnonymous
	case label == labelHeap:
		return KindHeap
	case label == labelStack:
		return KindStack
	case strings.HasPrefix(label, "/"):
		return KindFileBacked
	}
	return KindOther
}

// Segment is one contiguous range of the target's address space.
// Start < End holds for every Segment returned by ParseSegment.
type Segment struct {
	Start uint64
	End   uint64
	Perms Permissions
	Label string
	Kind  SegmentKind
}

func (seg Segment) Size() uint64 {
	return seg.End - seg.Start
}

// Eligible reports whether the segment is a growth region worth scanning.
// Only heap and stack qualify, regardless of permissions.
func (seg Segment) Eligible() bool {
	return seg.Kind == KindHeap || seg.Kind == KindStack
}

func (seg Segment) String() string {
	return fmt.Sprintf("%08X-%08X %s %-5s %8s %s",
		seg.Start, seg.End, seg.Perms, seg.Kind, humanize.IBytes(seg.Size()), seg.Label)
}

type Segments []Segment

func (segments Segments) Size() (size uint64) {
	for _, seg := range segments {
		size += seg.Size()
	}
	return
}

func (segments Segments) Eligible() (eligible Segments) {
	for _, seg := range segments {
		if seg.Eligible() {
			eligible = append(eligible, seg)
		}
	}
	return
}
