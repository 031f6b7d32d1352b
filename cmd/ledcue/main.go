package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `Usage: ledcue <command> [flags]

Commands:
  play     follow mission telemetry and play an LED plan
  set      set the strip to one color
  colors   list the known colors
  check    validate a plan file
  make     write a plan file from waypoint ranges
  test     cycle red, green, blue and off until interrupted

Run "ledcue <command> -h" for the flags of a command.
`

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1 // runtime failure after startup
	exitUsage   = 2 // bad flags, config or plan
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	if len(argv) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cmd, args := argv[0], argv[1:]
	switch cmd {
	case "play":
		return runPlay(ctx, args, stderr)
	case "set":
		return runSet(ctx, args, stderr)
	case "colors":
		return runColors(args, stdout, stderr)
	case "check":
		return runCheck(args, stdout, stderr)
	case "make":
		return runMake(args, stdout, stderr)
	case "test":
		return runTest(ctx, args, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}
}
