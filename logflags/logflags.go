// Copyright (C) 2025 kayon <kayon.hu@gmail.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logflags

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	scan = false
	maps = false
	proc = false

	out io.Writer = os.Stderr
)

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.Level = logrus.DebugLevel
	if !flag {
		logger.Level = logrus.PanicLevel
	}
	return logger.WithFields(fields)
}

// Scan returns true if the scan loop should log every window it reads.
func Scan() bool {
	return scan
}

// ScanLogger returns a logger for the scan loop.
func ScanLogger() *logrus.Entry {
	return makeLogger(scan, logrus.Fields{"layer": "scan"})
}

// Maps returns true if skipped mapping lines should be logged.
func Maps() bool {
	return maps
}

// MapsLogger returns a logger for the mapping table parser.
func MapsLogger() *logrus.Entry {
	return makeLogger(maps, logrus.Fields{"layer": "maps"})
}

// Proc returns true if process control (stop/continue) should be logged.
func Proc() bool {
	return proc
}

func ProcLogger() *logrus.Entry {
	return makeLogger(proc, logrus.Fields{"layer": "proc"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	scan, maps, proc = false, false, false
	if !logFlag {
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "scan,maps,proc"
	}
	for _, layer := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(layer) {
		case "scan":
			scan = true
		case "maps":
			maps = true
		case "proc":
			proc = true
		}
	}
	return nil
}

// SetOutput redirects all loggers created afterwards. A nil writer
// restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	out = w
}
