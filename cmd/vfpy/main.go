// Command vfpy runs interpreter-hosted frame filters over raw video.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/reglet-dev/vfpython/domain/entities"
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/host"
	vflog "github.com/reglet-dev/vfpython/log"
)

const appName = "vfpy"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "formats":
		os.Exit(cmdFormats(os.Args[2:]))
	case "schema":
		os.Exit(cmdSchema(os.Args[2:]))
	case "version":
		fmt.Println(host.Version)
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `vfpy %s

Usage:
  %s run -c <config> -s WxH [-f pixfmt] [-i in.raw] [-o out.raw]   Filter raw video.
  %s check -c <config> [-s WxH]                                      Load the filter and print its formats.
  %s formats                                                          List pixel formats.
  %s schema                                                           Print the configuration JSON schema.
  %s version                                                          Print the version.

<config> is a YAML, TOML or JSON file, or an option string such as
  pylib=/usr/lib/libpython3.12.so:script=invert.py:class=Invert

`, host.Version, appName, appName, appName, appName, appName)
}

// logFlags are shared by the commands that start an interpreter.
type logFlags struct {
	level  string
	format string
}

func (l *logFlags) logger(fallbackLevel string) (*slog.Logger, error) {
	name := l.level
	if name == "" {
		name = fallbackLevel
	}
	level, err := vflog.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	format, err := vflog.ParseFormat(l.format)
	if err != nil {
		return nil, err
	}
	return slog.New(vflog.NewHandler(os.Stderr, vflog.WithLevel(level), vflog.WithFormat(format))), nil
}

// fail reports err in the format selected by -log-format.
func (l *logFlags) fail(err error) int {
	format, perr := vflog.ParseFormat(l.format)
	if perr != nil {
		format = vflog.FormatText
	}
	report(os.Stderr, format, err)
	return 1
}

func fail(err error) int {
	report(os.Stderr, vflog.FormatText, err)
	return 1
}

// report writes err as its structured detail: one JSON object, or a line of
// text followed by the guest traceback when there is one.
func report(w io.Writer, format vflog.Format, err error) {
	detail := domainerrors.ToErrorDetail(err)
	if format == vflog.FormatJSON {
		_ = json.NewEncoder(w).Encode(struct {
			Error *entities.ErrorDetail `json:"error"`
		}{detail})
		return
	}
	fmt.Fprintf(w, "%s: %v\n", appName, err)
	if detail.Traceback != "" {
		fmt.Fprint(w, strings.TrimRight(detail.Traceback, "\n")+"\n")
	}
}
