package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	client "github.com/ffflorian/wire-cli"
)

type listenCommand struct{}

func (cmd *listenCommand) Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Println("Listening for messages, press Ctrl-C to stop")

	err = c.Listen(ctx, func(env *client.Envelope) {
		switch {
		case env.Message.Text != nil:
			fmt.Printf("[%s] %s/%s: %s\n", env.Time, env.From, env.SenderClient, env.Message.Text.Content)
		case env.Message.Availability != nil:
			fmt.Printf("[%s] %s is now %s\n", env.Time, env.From, env.Message.Availability.Type)
		default:
			fmt.Printf("[%s] %s/%s: (unsupported message type)\n", env.Time, env.From, env.SenderClient)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
