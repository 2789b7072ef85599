package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/Tnze/go-mc/chat"
	"github.com/gorogoro-space/chunkanalyzer/anvil"
	"github.com/gorogoro-space/chunkanalyzer/command"
	"github.com/gorogoro-space/chunkanalyzer/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "chunkanalyzer",
		Usage:     "finds the chunks holding the most entities and block entities",
		ArgsUsage: "[world]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Value: ".", Usage: "server directory holding the worlds and ops.json"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "plugins/ChunkAnalyzer/config.yml", Usage: "config file, created with defaults if missing"},
			&cli.StringFlag{Name: "player", Aliases: []string{"p"}, EnvVars: []string{"CHUNKA_PLAYER"}, Usage: "player running the command; must be an operator"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "ansi", Usage: "output format: ansi, plain or json (tellraw components)"},
			&cli.BoolFlag{Name: "console", Usage: "read commands from stdin, e.g. /chunka world"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	render, err := renderer(c.String("format"))
	if err != nil {
		return err
	}
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	srv := anvil.NewServer(c.String("server"), logger)
	h := command.New(conf, srv, logger)

	sender := &terminalSender{name: c.String("player"), w: c.App.Writer, render: render}
	if sender.name != "" {
		if sender.op, err = srv.IsOperator(sender.name); err != nil {
			return err
		}
	}

	if c.Bool("console") {
		return console(c.App.Reader, sender, h)
	}
	if !h.Execute(sender, conf.Command, c.Args().Slice()) {
		_ = cli.ShowAppHelp(c)
		return cli.Exit("", 1)
	}
	return nil
}

// console executes one command per line until stdin is closed or the stop command is given.
func console(r io.Reader, sender *terminalSender, h *command.Handler) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		label := strings.TrimPrefix(fields[0], "/")
		if label == "stop" || label == "exit" {
			return nil
		}
		if !h.Execute(sender, label, fields[1:]) {
			_, _ = fmt.Fprintln(sender.w, "Usage: "+h.Usage())
		}
	}
	return scanner.Err()
}

type terminalSender struct {
	name   string
	op     bool
	w      io.Writer
	render func(chat.Message) string
}

func (s *terminalSender) Name() string {
	if s.name == "" {
		return "CONSOLE"
	}
	return s.name
}

// IsPlayer reports whether a player name was given. Without one the terminal acts as the server console.
func (s *terminalSender) IsPlayer() bool   { return s.name != "" }
func (s *terminalSender) IsOperator() bool { return s.op }

func (s *terminalSender) SendMessage(msg chat.Message) {
	_, _ = fmt.Fprintln(s.w, s.render(msg))
}

func renderer(format string) (func(chat.Message) string, error) {
	switch format {
	case "ansi":
		return func(m chat.Message) string { return m.String() }, nil
	case "plain":
		return func(m chat.Message) string { return m.ClearString() }, nil
	case "json":
		return func(m chat.Message) string {
			b, err := json.Marshal(m)
			if err != nil {
				return m.ClearString()
			}
			return string(b)
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q, expected ansi, plain or json", format)
	}
}
