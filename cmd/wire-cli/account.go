package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

type setNameCommand struct {
	Args struct {
		Name string `positional-arg-name:"name" required:"true" description:"New display name"`
	} `positional-args:"true" required:"true"`
}

func (cmd *setNameCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SetName(ctx, cmd.Args.Name); err != nil {
		return err
	}

	fmt.Printf("Display name set to %q\n", cmd.Args.Name)
	return nil
}

type selfCommand struct{}

func (cmd *selfCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	self, err := c.Self(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("ID:     %s\n", self.ID)
	fmt.Printf("Name:   %s\n", self.Name)
	if self.Handle != "" {
		fmt.Printf("Handle: @%s\n", self.Handle)
	}
	if self.Email != "" {
		fmt.Printf("Email:  %s\n", self.Email)
	}
	if self.TeamID != "" {
		fmt.Printf("Team:   %s\n", self.TeamID)
	}
	return nil
}
