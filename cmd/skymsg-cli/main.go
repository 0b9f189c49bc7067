// Command skymsg-cli exercises the messaging client from the command
// line: establish a session, list recent conversations, page through
// history and send messages.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/shillcollin/skymsg"
	"github.com/shillcollin/skymsg/obs"
)

func main() {
	// A local .env is a convenience for credentials; absence is fine.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "skymsg-cli",
		Usage: "Talk to the messaging service from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Establish a session and cache the token",
				Action: runLogin,
			},
			{
				Name:   "recent",
				Usage:  "List recently active conversations",
				Action: runRecent,
			},
			{
				Name:      "history",
				Usage:     "Show one page of a conversation's history",
				ArgsUsage: "<chat-id>",
				Action:    runHistory,
			},
			{
				Name:      "send",
				Usage:     "Send a text message",
				ArgsUsage: "<chat-id> <text>",
				Action:    runSend,
			},
		},
	}
}

// connect loads config, wires tracing and establishes a session. The
// returned shutdown flushes exporters and must run before exit.
func connect(c *cli.Context) (*skymsg.Client, func(), error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	shutdown := func() {}
	if cfg.Trace.Exporter != "" && cfg.Trace.Exporter != string(obs.ExporterNone) {
		opts := obs.DefaultOptions()
		opts.ServiceName = "skymsg-cli"
		opts.Exporter = obs.ExporterType(cfg.Trace.Exporter)
		opts.Endpoint = cfg.Trace.Endpoint
		opts.Insecure = cfg.Trace.Insecure
		stop, err := obs.Init(c.Context, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("init tracing: %w", err)
		}
		shutdown = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = stop(ctx)
		}
	}

	clientOpts := []skymsg.ClientOption{
		skymsg.WithCredentials(cfg.Username, cfg.Password),
	}
	if cfg.Cache != "" {
		clientOpts = append(clientOpts, skymsg.WithTokenCache(cfg.Cache))
	}
	if cfg.Login != "" {
		clientOpts = append(clientOpts, skymsg.WithLoginURL(cfg.Login))
	}
	if cfg.Host != "" {
		clientOpts = append(clientOpts, skymsg.WithMessagesHost(cfg.Host))
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, skymsg.WithTimeout(time.Duration(cfg.Timeout)*time.Second))
	}

	client := skymsg.NewClient(clientOpts...)
	if err := client.Connect(c.Context); err != nil {
		shutdown()
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	fmt.Fprintf(os.Stderr, "session %s established (%s)\n", uuid.NewString()[:8], client.State())
	return client, shutdown, nil
}

func runLogin(c *cli.Context) error {
	client, shutdown, err := connect(c)
	if err != nil {
		return err
	}
	defer shutdown()
	fmt.Printf("connected to %s\n", client.Host())
	return nil
}

func runRecent(c *cli.Context) error {
	client, shutdown, err := connect(c)
	if err != nil {
		return err
	}
	defer shutdown()

	chats, err := client.Chats().Recent(c.Context)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	for _, chat := range chats {
		if chat.Group() {
			fmt.Printf("%s\t[group, %d members]\t%s\n", chat.ID, len(chat.UserIDs), chat.Topic)
		} else {
			fmt.Printf("%s\n", chat.ID)
		}
	}
	return nil
}

func runHistory(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: history <chat-id>")
	}
	client, shutdown, err := connect(c)
	if err != nil {
		return err
	}
	defer shutdown()

	chat, err := client.Chats().Chat(c.Context, c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	msgs, err := chat.Messages(c.Context)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	for _, msg := range msgs {
		fmt.Printf("%s\t%s\t%s\n", msg.ArrivalTime, msg.From, msg.Content)
	}
	return nil
}

func runSend(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: send <chat-id> <text>")
	}
	client, shutdown, err := connect(c)
	if err != nil {
		return err
	}
	defer shutdown()

	chat, err := client.Chats().Chat(c.Context, c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	msg, err := chat.Send(c.Context, c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("sent %s\n", msg.ClientID)
	return nil
}
