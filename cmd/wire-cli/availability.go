package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	client "github.com/ffflorian/wire-cli"
)

type setAvailabilityCommand struct {
	Args struct {
		Status string `positional-arg-name:"status" required:"true" description:"One of: none, available, away, busy"`
	} `positional-args:"true" required:"true"`
}

func (cmd *setAvailabilityCommand) Execute(args []string) error {
	availability, err := client.ParseAvailabilityType(cmd.Args.Status)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SetAvailability(ctx, availability); err != nil {
		return err
	}

	fmt.Printf("Availability set to %s\n", availability)
	return nil
}
