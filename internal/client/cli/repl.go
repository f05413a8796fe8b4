package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error

	AddExpense(ctx context.Context) error
	ListExpenses(ctx context.Context) error
	EditExpense(ctx context.Context, id string) error
	DeleteExpense(ctx context.Context, id string) error
	AttachReceipt(ctx context.Context, id, path string) error
	ShowReceipt(ctx context.Context, id string) error
	Sync(ctx context.Context) error
	DeadLetters(ctx context.Context) error

	Say(ctx context.Context, text string) error
	History(ctx context.Context, userID string) error
	Refresh(ctx context.Context, sessionID string) error
	Typing(ctx context.Context, userID string) error
	Sessions(ctx context.Context, status string) error
	Reply(ctx context.Context, userID, sessionID, text string) error
	CloseSession(ctx context.Context, sessionID string) error

	NewTicket(ctx context.Context) error
	Tickets(ctx context.Context) error
	Respond(ctx context.Context, id string) error
}

const (
	helpGuest = "Available commands: register, login, status, exit"
	helpUser  = "Available commands: add, (l)ist, edit <id>, delete <id>, receipt <id> <file>, receipt-url <id>, " +
		"say <text>, chat, refresh, typing, ticket, tickets, sync, deadletters, status, logout, exit"
	helpAdmin = "Operator commands: sessions [active|closed], chat <user>, refresh <session>, typing <user>, " +
		"reply <user> <session> <text>, close <session>, respond <ticket>"
)

func arg(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// runREPL starts a simple read–eval–print loop for the fintrack CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// The prompt shows the current status (from statusFn). Everything except
// help, register, login, status and exit needs a signed-in user; operator
// commands additionally need the admin role.
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ft %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			switch {
			case !a.isLoggedIn():
				printlnFn(helpGuest)
			case a.isAdmin():
				printlnFn(helpUser)
				printlnFn(helpAdmin)
			default:
				printlnFn(helpUser)
			}
			continue

		case "register":
			_ = a.Register(ctx)
			continue

		case "login":
			_ = a.Login(ctx)
			continue

		case "status":
			_ = a.Status(ctx)
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if !a.isLoggedIn() {
			switch cmd {
			case "add", "l", "list", "edit", "delete", "receipt", "receipt-url", "sync", "deadletters",
				"say", "chat", "refresh", "typing", "ticket", "tickets", "logout",
				"sessions", "reply", "close", "respond":
				printlnFn("Please login first")
			default:
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "add":
			_ = a.AddExpense(ctx)

		case "l", "list":
			_ = a.ListExpenses(ctx)

		case "edit":
			if len(parts) < 2 {
				printlnFn("Usage: edit <id>")
				continue
			}
			_ = a.EditExpense(ctx, parts[1])

		case "delete":
			if len(parts) < 2 {
				printlnFn("Usage: delete <id>")
				continue
			}
			_ = a.DeleteExpense(ctx, parts[1])

		case "receipt":
			if len(parts) < 3 {
				printlnFn("Usage: receipt <id> <file>")
				continue
			}
			_ = a.AttachReceipt(ctx, parts[1], parts[2])

		case "receipt-url":
			if len(parts) < 2 {
				printlnFn("Usage: receipt-url <id>")
				continue
			}
			_ = a.ShowReceipt(ctx, parts[1])

		case "sync":
			_ = a.Sync(ctx)

		case "deadletters":
			_ = a.DeadLetters(ctx)

		case "say":
			if len(parts) < 2 {
				printlnFn("Usage: say <text>")
				continue
			}
			_ = a.Say(ctx, strings.Join(parts[1:], " "))

		case "chat":
			_ = a.History(ctx, arg(parts, 1))

		case "refresh":
			_ = a.Refresh(ctx, arg(parts, 1))

		case "typing":
			_ = a.Typing(ctx, arg(parts, 1))

		case "ticket":
			_ = a.NewTicket(ctx)

		case "tickets":
			_ = a.Tickets(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "sessions", "reply", "close", "respond":
			if !a.isAdmin() {
				printlnFn("Only operators can use", cmd)
				continue
			}
			switch cmd {
			case "sessions":
				_ = a.Sessions(ctx, arg(parts, 1))
			case "reply":
				if len(parts) < 4 {
					printlnFn("Usage: reply <user> <session> <text>")
					continue
				}
				_ = a.Reply(ctx, parts[1], parts[2], strings.Join(parts[3:], " "))
			case "close":
				if len(parts) < 2 {
					printlnFn("Usage: close <session>")
					continue
				}
				_ = a.CloseSession(ctx, parts[1])
			case "respond":
				if len(parts) < 2 {
					printlnFn("Usage: respond <ticket>")
					continue
				}
				_ = a.Respond(ctx, parts[1])
			}

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
