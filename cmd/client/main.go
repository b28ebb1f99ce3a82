package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-udp/internal/client"
	"github.com/rocketscienceinc/tictactoe-udp/internal/protocol"
)

// main - connects to the server and relays terminal commands until the game is over.
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: client HOST PORT")
		os.Exit(1)
	}

	c, err := client.Dial(os.Args[1], os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open socket: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	fmt.Println("Socket open.")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go readCommands(ctx, c)

	if err = printMessages(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// readCommands - sends every parsable terminal line to the server.
func readCommands(ctx context.Context, c *client.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, protocol.MaxDatagramSize), protocol.MaxDatagramSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		msg, err := client.ParseCommand(scanner.Text())
		if err != nil {
			fmt.Println("Could not parse instruction.")
			continue
		}

		data, err := protocol.Encode(msg)
		if err != nil {
			fmt.Println("Could not parse instruction.")
			continue
		}

		if err = c.SendRaw(data); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
}

// printMessages - prints server messages until a game over arrives.
func printMessages(ctx context.Context, c *client.Client) error {
	for {
		msg, err := c.Receive(ctx)
		if err != nil {
			return err
		}

		fmt.Print(client.Describe(msg))

		if msg.Code == protocol.CodeGameOver {
			return nil
		}
	}
}
