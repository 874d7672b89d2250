package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

type sendCommand struct {
	Args struct {
		Message string `positional-arg-name:"message" required:"true" description:"Text message to broadcast"`
	} `positional-args:"true" required:"true"`
}

func (cmd *sendCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SendText(ctx, cmd.Args.Message); err != nil {
		return err
	}

	fmt.Println("Message sent to all team members")
	return nil
}
