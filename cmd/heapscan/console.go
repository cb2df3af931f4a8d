package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/manifoldco/promptui"

	"heapscan/proc"
	"heapscan/scanner"
)

// runConsole lets the user pick a process and enter the value to look for.
func runConsole() (pid int, value *scanner.Value, err error) {
	processes, err := proc.EnumProcesses()
	if err != nil {
		return
	}
	if len(processes) == 0 {
		return 0, nil, errors.New("no process owned by this user is running")
	}

	if pid, err = selectProcess(processes); err != nil {
		return
	}
	value, err = enterValue()
	return
}

func selectProcess(processes []*proc.Process) (int, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> [{{ .PID }}] {{ .Comm | green }}",
		Inactive: "  [{{ .PID }}] {{ .Comm }}",
		Selected: "Process > [{{ .PID }}] {{ .Comm | green }}",
		Details: `
──────────────────── Process ────────────────────
{{ "Name:" | faint }}	{{ .Comm }}
{{ "PID:" | faint }}	{{ .PID | cyan }}
{{ "PPID:" | faint }}	{{ .PPID }}
{{ "State:" | faint }}	{{ .State | yellow }}
{{ "Command:" | faint }}	{{ .Command }}`,
	}

	prompt := promptui.Select{
		Label:     colorLabel.Sprintf("<SELECT PROCESS> [Press / to search]"),
		Items:     processes,
		Templates: templates,
		Size:      8,
		Searcher: func(input string, index int) bool {
			p := processes[index]
			input = strings.ToLower(input)
			return strings.Contains(strings.ToLower(p.Comm), input) ||
				strings.Contains(strings.ToLower(p.Command), input) ||
				strings.HasPrefix(fmt.Sprint(p.PID), input)
		},
	}
	prompt.HideHelp = true

	i, _, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return processes[i].PID, nil
}

func enterValue() (*scanner.Value, error) {
	templates := &promptui.PromptTemplates{
		Prompt:  "{{ . }} ",
		Valid:   "{{ . | green }} ",
		Invalid: "{{ . | red }} ",
		Success: "{{ . }} ",
	}

	prompt := promptui.Prompt{
		Label:     colorLabel.Sprintf("<SCAN VALUE> [Int32]"),
		Templates: templates,
		Validate: func(input string) error {
			if _, err := scanner.ParseInt32(input); err != nil {
				return errInvalidInput
			}
			return nil
		},
	}

	input, err := prompt.Run()
	if err != nil {
		return nil, err
	}
	return scanner.ParseInt32(input)
}

var errInvalidInput = fmt.Errorf("invalid input. Int32: 32bit (%d to %d)", math.MinInt32, math.MaxInt32)
