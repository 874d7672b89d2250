package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

type clientsCommand struct{}

func (cmd *clientsCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	clients, err := c.Clients(ctx)
	if err != nil {
		return err
	}

	if len(clients) == 0 {
		fmt.Println("No registered clients")
		return nil
	}
	for _, cl := range clients {
		label := cl.Label
		if label == "" {
			label = "(no label)"
		}
		fmt.Printf("%s  %-9s  %-7s  %s\n", cl.ID, cl.Type, cl.Class, label)
	}
	return nil
}

type deleteAllClientsCommand struct{}

func (cmd *deleteAllClientsCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	pw, err := password()
	if err != nil {
		return err
	}

	n, err := c.DeleteAllClients(ctx, pw)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d client(s)\n", n)
	return nil
}
