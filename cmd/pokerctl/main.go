// pokerctl is a terminal client for a scrum poker room. It joins a room over
// WebSocket, prints every event it receives and reads commands from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"scrumpoker/internal/client"
	"scrumpoker/internal/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		url      string
		room     string
		name     string
		observer bool
		verbose  bool
	)

	flagSet := pflag.NewFlagSet("pokerctl", pflag.ContinueOnError)
	flagSet.StringVar(&url, "url", "ws://localhost:8080/ws", "WebSocket endpoint of the server")
	flagSet.StringVarP(&room, "room", "r", "", "room code to join (required)")
	flagSet.StringVarP(&name, "name", "n", "", "username to join as (required)")
	flagSet.BoolVar(&observer, "observer", false, "join as an observer instead of a player")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log connection details to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if room == "" || name == "" {
		printHelp(flagSet)
		return fmt.Errorf("--room and --name are required")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	role := domain.RolePlayer
	if observer {
		role = domain.RoleObserver
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(client.Options{
		URL:      url,
		Username: name,
		RoomID:   strings.ToUpper(room),
		Role:     role,
		Logger:   logger,
		OnNotice: func(n client.Notice) {
			if n.Message != "" {
				fmt.Printf("* %s\n", n.Message)
			}
		},
	})
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	go func() {
		if err := c.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("read loop stopped", "error", err)
		}
	}()

	return repl(ctx, cancel, c, os.Stdin, os.Stdout)
}

// repl reads commands until EOF, quit or ctx is done
func repl(ctx context.Context, cancel context.CancelFunc, c *client.Client, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "exit" {
				c.Leave()
				cancel()
				return nil
			}
			if err := dispatch(c, fields, out); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
		}
	}
}

func dispatch(c *client.Client, fields []string, out io.Writer) error {
	arg := func() (string, error) {
		if len(fields) < 2 {
			return "", fmt.Errorf("usage: %s <value>", fields[0])
		}
		return fields[1], nil
	}

	switch fields[0] {
	case "vote":
		card, err := arg()
		if err != nil {
			return err
		}
		return c.Vote(card)
	case "select":
		card, err := arg()
		if err != nil {
			return err
		}
		return c.Mirror().Select(card)
	case "submit":
		return c.Submit()
	case "reveal":
		return c.Reveal()
	case "reset":
		return c.Reset()
	case "seq":
		id, err := arg()
		if err != nil {
			return err
		}
		return c.ChangeSequence(domain.SequenceID(id))
	case "sync":
		return c.Sync()
	case "ping":
		return c.Ping()
	case "leave":
		return c.Leave()
	case "join":
		return c.Join()
	case "state":
		printState(out, c.Mirror())
		return nil
	case "help":
		printCommands(out)
		return nil
	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func printState(out io.Writer, m *client.Mirror) {
	s := m.State()

	status := "connected"
	if !s.Connected {
		status = "disconnected"
	}
	fmt.Fprintf(out, "room %s as %s (%s, %s)\n", s.RoomID, s.Username, s.Role, status)
	fmt.Fprintf(out, "sequence %s: %s\n", s.CardSequence, strings.Join(s.CardSequence.Cards(), " "))
	if s.SelectedCard != "" {
		fmt.Fprintf(out, "selected %s\n", s.SelectedCard)
	}

	for _, n := range s.Usernames() {
		p := s.Participants[n]
		mark := " "
		if p.HasVoted {
			mark = "x"
		}
		line := fmt.Sprintf("  [%s] %s (%s)", mark, n, p.Role)
		if v, ok := s.Votes[n]; ok {
			line += " " + v
		}
		fmt.Fprintln(out, line)
	}

	if !s.VotesRevealed {
		fmt.Fprintf(out, "votes hidden, all voted: %t\n", m.AllVoted())
		return
	}
	fmt.Fprintf(out, "votes revealed:")
	for _, card := range s.CardSequence.Cards() {
		if n := s.VoteDistribution[card]; n > 0 {
			fmt.Fprintf(out, " %s=%d", card, n)
		}
	}
	fmt.Fprintln(out)
	if sum := s.Summary; sum != nil {
		if sum.Average != nil {
			fmt.Fprintf(out, "average %.1f", *sum.Average)
		}
		if sum.Median != nil {
			fmt.Fprintf(out, " median %.1f", *sum.Median)
		}
		fmt.Fprintf(out, " mode %s consensus %t\n", sum.Mode, sum.Consensus)
	}
}

func printCommands(out io.Writer) {
	fmt.Fprint(out, `commands:
  vote <card>   select and submit a card
  select <card> select a card without submitting
  submit        submit the selected card
  reveal        reveal all votes
  reset         start a new round (observers, or anyone after reveal)
  seq <id>      change card sequence (fibonacci, modified, tshirt, powers)
  sync          request a fresh snapshot
  ping          application-level ping
  leave         leave the room
  join          join the room again
  state         print the local view of the room
  quit          leave and exit
`)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "pokerctl joins a scrum poker room from the terminal.\n\nUsage: pokerctl --room CODE --name NAME [flags]\n\nFlags:\n")
	flagSet.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	printCommands(os.Stderr)
}
