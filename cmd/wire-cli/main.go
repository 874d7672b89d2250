// Command wire-cli sends end-to-end encrypted broadcasts over Wire.
//
// Usage:
//
//	wire-cli -e me@example.com send "hello team"
//	wire-cli -e me@example.com set-availability busy
//	wire-cli -e me@example.com listen
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	flags "github.com/jessevdk/go-flags"
	"golang.org/x/term"

	client "github.com/ffflorian/wire-cli"
)

type globalOpts struct {
	Backend  string `short:"b" long:"backend" description:"Backend REST URL (default: Wire production)"`
	WSURL    string `long:"websocket" description:"Notification WebSocket URL (default: Wire production)"`
	Email    string `short:"e" long:"email" description:"Email address of the Wire account"`
	Password string `short:"p" long:"password" description:"Account password (prompted when omitted)"`
	DB       string `long:"db" description:"Path to database file"`
	Verbose  bool   `short:"v" long:"verbose" description:"Enable verbose logging"`
	DryRun   bool   `short:"d" long:"dry-run" description:"Don't send any data beside logging in and out"`

	Send             sendCommand             `command:"send" description:"Broadcast a text message to all team members"`
	SetAvailability  setAvailabilityCommand  `command:"set-availability" description:"Broadcast an availability status (none, available, away, busy)"`
	SetName          setNameCommand          `command:"set-name" description:"Update the account's display name"`
	SetEmail         setEmailCommand         `command:"set-email" description:"Start changing the account's email address"`
	Self             selfCommand             `command:"self" description:"Show the logged-in user's profile"`
	Clients          clientsCommand          `command:"clients" description:"List registered clients of the account"`
	DeleteAllClients deleteAllClientsCommand `command:"delete-all-clients" description:"Delete every registered client of the account"`
	ResetPassword    resetPasswordCommand    `command:"reset-password" description:"Initiate or complete a password reset"`
	Listen           listenCommand           `command:"listen" description:"Print incoming messages as they arrive"`
}

var opts globalOpts

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = false

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func clientOpts() []client.Option {
	var copts []client.Option
	if opts.Backend != "" {
		copts = append(copts, client.WithBackendURL(opts.Backend))
	}
	if opts.WSURL != "" {
		copts = append(copts, client.WithWSURL(opts.WSURL))
	}
	if opts.DB != "" {
		copts = append(copts, client.WithDBPath(opts.DB))
	}
	if opts.Verbose {
		copts = append(copts, client.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}
	if opts.DryRun {
		copts = append(copts, client.WithDryRun())
	}
	return copts
}

// promptPassword reads a password without echo.
func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label, ": ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// password returns the --password flag or prompts for it.
func password() (string, error) {
	if opts.Password != "" {
		return opts.Password, nil
	}
	return promptPassword("Password")
}

// connect opens a session for the configured account: a stored session when
// one exists, otherwise a fresh login with the password. The sender client is
// re-registered when the stored one was deleted remotely.
func connect(ctx context.Context) (*client.Client, error) {
	if opts.Email == "" {
		return nil, fmt.Errorf("no account given, use --email")
	}

	if opts.Password == "" {
		c, err := client.Open(ctx, opts.Email, clientOpts()...)
		if err == nil {
			if c.ClientRegistered(ctx) {
				return c, nil
			}
			pw, perr := password()
			if perr != nil {
				c.Close()
				return nil, perr
			}
			if err := c.EnsureClient(ctx, pw); err != nil {
				c.Close()
				return nil, err
			}
			return c, nil
		}
		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "no usable stored session: %v\n", err)
		}
	}

	pw, err := password()
	if err != nil {
		return nil, err
	}

	c := client.NewClient(clientOpts()...)
	if err := c.Login(ctx, opts.Email, pw); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.EnsureClient(ctx, pw); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
