package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

type setEmailCommand struct {
	Args struct {
		Email string `positional-arg-name:"email" required:"true" description:"New email address"`
	} `positional-args:"true" required:"true"`
}

func (cmd *setEmailCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SetEmail(ctx, cmd.Args.Email); err != nil {
		return err
	}

	fmt.Printf("Email change started, check the inbox of %s for the verification link\n", cmd.Args.Email)
	return nil
}
