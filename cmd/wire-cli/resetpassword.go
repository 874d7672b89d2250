package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	client "github.com/ffflorian/wire-cli"
)

type resetPasswordCommand struct {
	Code string `long:"code" description:"Reset code from the email (completes the reset)"`
}

// Execute initiates a password reset, or completes one when --code is given.
// Neither step needs a login.
func (cmd *resetPasswordCommand) Execute(args []string) error {
	if opts.Email == "" {
		return fmt.Errorf("no account given, use --email")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if cmd.Code == "" {
		if err := client.InitiatePasswordReset(ctx, opts.Email, clientOpts()...); err != nil {
			return err
		}
		fmt.Printf("Password reset initiated, check the inbox of %s\n", opts.Email)
		fmt.Println("Complete it with: wire-cli reset-password --code <code>")
		return nil
	}

	newPassword, err := promptPassword("New password")
	if err != nil {
		return err
	}

	if err := client.CompletePasswordReset(ctx, opts.Email, cmd.Code, newPassword, clientOpts()...); err != nil {
		return err
	}
	fmt.Println("Password reset complete")
	return nil
}
