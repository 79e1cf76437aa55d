package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Status(ctx context.Context) error
	Get(ctx context.Context, path string) error
	Ping(ctx context.Context) error
	Import(ctx context.Context, user string) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF,
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts:
//
//	help              show available commands
//	status            show the stored session and refresh counters
//	get <path>        GET an API path with automatic token refresh
//	ping              check that the server is reachable
//	import [user]     store a token pair (read without echo)
//	logout            forget the stored session
//	exit | quit       leave the program
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tr> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, get <path>, ping, logout, exit")
			} else {
				printlnFn("Available commands: status, import [user], ping, exit")
			}

		case "status":
			err = a.Status(ctx)

		case "get":
			if len(args) == 0 {
				printlnFn("Usage: get <path>")
				continue
			}
			err = a.Get(ctx, args[0])

		case "ping":
			err = a.Ping(ctx)

		case "import":
			user := ""
			if len(args) > 0 {
				user = args[0]
			}
			err = a.Import(ctx, user)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
