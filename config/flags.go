package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// Commands understood by the command line.
const (
	CommandLatest  = "latest"
	CommandConvert = "convert"
	CommandHistory = "history"
	CommandSetup   = "setup"
)

// Flags global command-line flags followed by the command and its arguments.
type Flags struct {
	ConfigPath    string
	Provider      string
	CorrelationID string
	LogLevel      string

	Command string
	Args    []string
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	var f Flags

	fs := flag.NewFlagSet("fxgate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.ConfigPath, "config", "", "path to yaml config, environment only when empty")
	fs.StringVar(&f.Provider, "provider", "", "rate provider name, the configured default when empty")
	fs.StringVar(&f.CorrelationID, "correlation-id", "", "correlation id forwarded upstream, generated when empty")
	fs.StringVar(&f.LogLevel, "log-level", "", "overrides log_level from the config")
	fs.Usage = func() {
		fmt.Fprintf(output, "usage: fxgate [flags] <command> [args]\n\ncommands:\n")
		fmt.Fprintf(output, "  latest BASE [BASE...]          latest rates for one or more bases\n")
		fmt.Fprintf(output, "  convert FROM TO AMOUNT         convert an amount\n")
		fmt.Fprintf(output, "  history [-page N] [-size N] BASE START END\n")
		fmt.Fprintf(output, "                                 daily rates between two yyyy-mm-dd dates\n")
		fmt.Fprintf(output, "  setup                          interactive config wizard\n\nflags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return Flags{}, fmt.Errorf("command is required")
	}

	f.Command = strings.ToLower(rest[0])
	f.Args = rest[1:]

	switch f.Command {
	case CommandLatest:
		if len(f.Args) == 0 {
			return Flags{}, fmt.Errorf("invalid arguments provided: latest needs at least one base currency")
		}
	case CommandConvert:
		if len(f.Args) != 3 {
			return Flags{}, fmt.Errorf("invalid arguments provided: convert needs FROM TO AMOUNT, got %d args", len(f.Args))
		}
	case CommandHistory, CommandSetup:
	default:
		fs.Usage()
		return Flags{}, fmt.Errorf("unknown command %q", f.Command)
	}

	return f, nil
}

// HistoryArgs arguments of the history command. Page and size default to 1 and 10.
type HistoryArgs struct {
	Base  string
	Start string
	End   string
	Page  int
	Size  int
}

// ParseHistoryArgs parses the arguments following the history command.
func ParseHistoryArgs(args []string, output io.Writer) (HistoryArgs, error) {
	var h HistoryArgs

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&h.Page, "page", 1, "page number, starting at 1")
	fs.IntVar(&h.Size, "size", 10, "days per page")

	if err := fs.Parse(args); err != nil {
		return HistoryArgs{}, err
	}
	if fs.NArg() != 3 {
		return HistoryArgs{}, fmt.Errorf("invalid arguments provided: history needs BASE START END, got %d args", fs.NArg())
	}

	h.Base, h.Start, h.End = fs.Arg(0), fs.Arg(1), fs.Arg(2)

	return h, nil
}
