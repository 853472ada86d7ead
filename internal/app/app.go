// Package app implements the goals-zone command line.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "fetch-videos":
		return runFetchVideos(args[1:])
	case "fetch-fixtures":
		return runFetchFixtures(args[1:])
	case "run":
		return runRun(args[1:])
	case "resolve":
		return runResolve(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "serve":
		return runServe(args[1:])
	case "hash-key":
		return runHashKey(args[1:])
	case "add-alias":
		return runAddAlias(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "goals-zone CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  goals-zone <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health          Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  fetch-videos    Run one reddit video cycle")
	fmt.Fprintln(os.Stderr, "  fetch-fixtures  Run one fixtures cycle (--mode to force a listing)")
	fmt.Fprintln(os.Stderr, "  run             Run the video and fixtures loops until interrupted")
	fmt.Fprintln(os.Stderr, "  resolve         Resolve a post title against stored matches (dry run)")
	fmt.Fprintln(os.Stderr, "  validate        Validate captured fixture and reddit payloads")
	fmt.Fprintln(os.Stderr, "  serve           Start the Echo API server")
	fmt.Fprintln(os.Stderr, "  hash-key        Hash an admin API key for ADMIN_API_KEY_HASH")
	fmt.Fprintln(os.Stderr, "  add-alias       Store an alternative name for a team")
	fmt.Fprintln(os.Stderr, "  daemon          Manage systemd units for run and serve")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"goals-zone <command> -h\" for command-specific flags.")
}
