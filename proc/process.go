package proc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

type State byte

func (state State) String() string {
	return fmt.Sprintf("%c", state)
}

type Process struct {
	PID int
	// the PID of the parent of this process
	PPID int
	// the process group ID of the process
	PGRP int
	// the filename of the executable, truncated by the kernel to 15 characters
	Comm string
	// complete command line for the process
	Command string
	// R running, S sleeping, D disk sleep, Z zombie, T stopped, t tracing stop, X dead
	State State
	// resident set size, in pages
	RSS uint64
}

func NewProcess(pid int) (*Process, error) {
	process := &Process{PID: pid}
	return process, process.Refresh()
}

// Refresh reads and parses /proc/<pid>/stat and /proc/<pid>/cmdline.
func (p *Process) Refresh() error {
	buf, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", p.PID))
	if err != nil {
		return err
	}

	// comm may itself contain spaces and parentheses
	l := bytes.IndexByte(buf, '(')
	r := bytes.LastIndexByte(buf, ')')
	if l < 0 || r <= l || r+2 > len(buf) {
		return fmt.Errorf("unable to extract comm in %q", buf)
	}
	p.Comm = string(buf[l+1 : r])

	if _, err = fmt.Sscanf(string(buf[r+2:]), "%c %d %d", &p.State, &p.PPID, &p.PGRP); err != nil {
		return fmt.Errorf("parse /proc/%d/stat: %w", p.PID, err)
	}
	// fields after comm: state is field 3 of stat, rss is field 24
	if rest := bytes.Fields(buf[r+2:]); len(rest) > 21 {
		p.RSS, _ = strconv.ParseUint(string(rest[21]), 10, 64)
	}

	cmdline, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", p.PID))
	if err != nil {
		// kernel threads and zombies have no readable cmdline
		return nil
	}
	p.Command = string(bytes.TrimSpace(bytes.ReplaceAll(cmdline, []byte{0}, []byte{' '})))
	return nil
}

func (p *Process) Alive() bool {
	return Exists(p.PID)
}

func (p *Process) Pause() error {
	return Stop(p.PID)
}

func (p *Process) Resume() error {
	return Continue(p.PID)
}

func (p *Process) String() string {
	if p.Command != "" {
		return fmt.Sprintf("[%d] %s (%s)", p.PID, p.Comm, p.Command)
	}
	return fmt.Sprintf("[%d] %s", p.PID, p.Comm)
}

// EnumProcesses lists the processes owned by the current user, newest
// first, excluding this process. Processes that vanish while being listed
// are left out.
func EnumProcesses() ([]*Process, error) {
	uid := os.Getuid()
	dir, err := os.Open("/proc")
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	results := make([]*Process, 0, 50)
	for {
		names, err := dir.Readdirnames(64)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			pid, err := strconv.Atoi(name)
			if err != nil || pid == selfPID {
				continue
			}
			if PathUID("/proc/"+name) != uid {
				continue
			}
			if process, err := NewProcess(pid); err == nil {
				results = append(results, process)
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PID > results[j].PID
	})
	return results, nil
}
