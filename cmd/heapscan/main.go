package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/pflag"

	"heapscan"
	"heapscan/config"
	"heapscan/logflags"
	"heapscan/scanner"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

var (
	chunkSize    int
	overlap      bool
	freeze       bool
	listSegments bool

	configPath  string
	writeConfig bool
	logFlag     bool
	logOutput   string
	noColor     bool
)

func init() {
	// Scan switches
	pflag.IntVarP(&chunkSize, "chunk-size", "c", heapscan.DefaultChunkSize, "bytes read from the target per system call, a multiple of 4")
	pflag.BoolVar(&overlap, "overlap", false, "re-read values split by a short read instead of missing them")
	pflag.BoolVarP(&freeze, "freeze", "f", false, "stop the target with SIGSTOP while it is scanned")
	pflag.BoolVarP(&listSegments, "list", "l", false, "print the mapping table of <pid> and exit")

	// Ambient switches
	pflag.StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/heapscan/config.yml)")
	pflag.BoolVar(&writeConfig, "save-config", false, "write the effective scan settings to the config file and exit")
	pflag.BoolVar(&logFlag, "log", false, "enable debug logging")
	pflag.StringVar(&logOutput, "log-output", "", "comma separated layers to log: scan, maps, proc")
	pflag.BoolVar(&noColor, "no-color", false, "disable colored output")

	pflag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [<pid> <value>]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Scan the heap and stack of <pid> for the signed 32-bit <value>.")
	fmt.Fprintln(os.Stderr, "Without arguments, the process and value are chosen interactively.")
	fmt.Fprintln(os.Stderr)
	pflag.PrintDefaults()
}

func main() {
	pflag.Parse()
	os.Exit(run(pflag.Args()))
}

func run(args []string) int {
	if err := logflags.Setup(logFlag, logOutput); err != nil {
		return fail(err)
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return fail(err)
	}
	conf = mergeConfig(conf)
	setupColor(conf)

	if writeConfig {
		if err = saveConfig(conf); err != nil {
			return fail(err)
		}
		return exitOK
	}

	var (
		pid   int
		value *scanner.Value
	)
	switch {
	case len(args) == 0 && !listSegments:
		pid, value, err = runConsole()
	case len(args) == 1 && listSegments:
		pid, err = parsePID(args[0])
	case len(args) == 2 && !listSegments:
		if pid, err = parsePID(args[0]); err == nil {
			value, err = scanner.ParseInt32(args[1])
		}
	default:
		usage()
		return exitError
	}
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return exitInterrupted
		}
		return fail(err)
	}

	h := heapscan.New(scanOptions(conf)...)
	if err = h.Open(pid); err != nil {
		return fail(err)
	}
	defer h.Close()

	if listSegments {
		segments, err := h.Segments()
		if err != nil {
			return fail(err)
		}
		displaySegments(os.Stdout, segments)
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	displayProcess(os.Stdout, h.Process(), value)
	stats, err := h.Scan(ctx, value, newReporter(os.Stdout, value))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			displaySummary(os.Stdout, stats)
			return exitInterrupted
		}
		return fail(err)
	}
	displaySummary(os.Stdout, stats)
	return exitOK
}

// mergeConfig overlays the flags given on the command line onto the config
// file.
func mergeConfig(conf *config.Config) *config.Config {
	merged := *conf
	if merged.ChunkSize == 0 || pflag.CommandLine.Changed("chunk-size") {
		merged.ChunkSize = chunkSize
	}
	if pflag.CommandLine.Changed("overlap") {
		merged.Overlap = overlap
	}
	if pflag.CommandLine.Changed("freeze") {
		merged.Freeze = freeze
	}
	if noColor {
		merged.Color = "never"
	}
	return &merged
}

func scanOptions(conf *config.Config) []heapscan.Option {
	policy := heapscan.BoundaryCompat
	if conf.Overlap {
		policy = heapscan.BoundaryOverlap
	}
	return []heapscan.Option{
		heapscan.WithChunkSize(conf.ChunkSize),
		heapscan.WithBoundary(policy),
		heapscan.WithFreeze(conf.Freeze),
	}
}

// saveConfig writes the merged settings back to the config file.
func saveConfig(conf *config.Config) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	if err := config.Save(path, conf); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "%s %s\n", colorLabel.Sprint("saved"), path)
	return nil
}

func setupColor(conf *config.Config) {
	switch {
	case conf.Color == "never":
		color.NoColor = true
	case conf.Color == "always":
		color.NoColor = false
	}
}

func parsePID(s string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return pid, nil
}

func fail(err error) int {
	_, _ = fmt.Fprintln(os.Stderr, color.RedString("ERROR: %v", err))
	return exitError
}
