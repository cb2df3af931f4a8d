package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"heapscan"
	"heapscan/proc"
	"heapscan/scanner"
)

var (
	colorLabel     = color.New(color.FgYellow)
	colorHighlight = color.New(color.FgGreen)
	colorAddress   = color.New(color.FgCyan)
	colorFaint     = color.New(color.Faint)
)

// reporter prints one line per scanned segment and one per match.
type reporter struct {
	heapscan.NopObserver
	w     io.Writer
	value *scanner.Value
}

func newReporter(w io.Writer, value *scanner.Value) *reporter {
	return &reporter{w: w, value: value}
}

func (r *reporter) SegmentStarted(seg heapscan.Segment) {
	_, _ = fmt.Fprintf(r.w, "%s %s from %s to %s %s\n",
		colorLabel.Sprint("scan"),
		r.value,
		colorAddress.Sprintf("0x%x", seg.Start),
		colorAddress.Sprintf("0x%x", seg.End),
		colorFaint.Sprintf("(%s %s)", seg.Label, humanize.IBytes(seg.Size())),
	)
}

func (r *reporter) Found(m scanner.Match) {
	_, _ = fmt.Fprintf(r.w, "found value %s in addr %s\n",
		colorHighlight.Sprint(m.Value),
		colorAddress.Sprintf("%x", m.Addr),
	)
}

func displayProcess(w io.Writer, p *proc.Process, value *scanner.Value) {
	if p == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s %s %s\n",
		colorLabel.Sprint("process"),
		colorAddress.Sprint(p.PID),
		colorHighlight.Sprint(p.Comm),
		colorFaint.Sprintf("value %s [%s]", value, value.Hex()),
	)
}

func displaySegments(w io.Writer, segments heapscan.Segments) {
	var paddingLabel int
	for _, seg := range segments {
		if n := len(seg.Label); n > paddingLabel {
			paddingLabel = n
		}
	}

	for _, seg := range segments {
		kind := fmt.Sprintf("%-5s", seg.Kind)
		if seg.Eligible() {
			kind = colorHighlight.Sprint(kind)
		}
		_, _ = fmt.Fprintf(w, "%s %s %s %9s %-*s\n",
			colorAddress.Sprintf("%012x-%012x", seg.Start, seg.End),
			seg.Perms,
			kind,
			humanize.IBytes(seg.Size()),
			paddingLabel, seg.Label,
		)
	}

	eligible := segments.Eligible()
	_, _ = fmt.Fprintf(w, "%d mappings, %d scannable (%s of %s)\n",
		len(segments), len(eligible),
		humanize.IBytes(eligible.Size()), humanize.IBytes(segments.Size()))
}

func displaySummary(w io.Writer, stats heapscan.Stats) {
	_, _ = fmt.Fprintf(w, "%s %d matches in %d segments, %s read in %d windows (%s)\n",
		colorLabel.Sprint("done"),
		stats.Matches,
		stats.Segments,
		humanize.IBytes(stats.Bytes),
		stats.Windows,
		stats.Elapsed,
	)
}
