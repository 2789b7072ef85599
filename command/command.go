// Package command implements the analyzer command: without arguments it ranks the worlds of the server, with a world
// name it ranks the chunks of that world.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"

	"github.com/Tnze/go-mc/chat"
	"github.com/gorogoro-space/chunkanalyzer/anvil"
	"github.com/gorogoro-space/chunkanalyzer/census"
	"github.com/gorogoro-space/chunkanalyzer/config"
	"github.com/gorogoro-space/chunkanalyzer/report"
)

// Messages sent back for rejected invocations.
const (
	MessageUnavailable   = "That command is not available."
	MessageNotPlayer     = "The command can only be executed by the player."
	MessageNotOperator   = "No operator permissions."
	MessageInvalidLimit  = "Please specify the number of lines to be show, between 1 and 50."
	MessageBadWorldName  = "The world name should be a character from 0-9a-z_."
	MessageUnknownWorld  = "Can't get the world from the world name."
	MessageInvalidWorlds = "Invalid world name argument."
)

var worldNamePattern = regexp.MustCompile(`^[0-9a-z_]+$`)

// Sender is whoever runs the command.
type Sender interface {
	Name() string
	IsPlayer() bool
	IsOperator() bool
	SendMessage(msg chat.Message)
}

// WorldSource provides the worlds to analyze. anvil.Server implements it.
type WorldSource interface {
	Worlds() ([]*anvil.World, error)
	World(name string) (*anvil.World, error)
}

type Handler struct {
	conf   config.Config
	worlds WorldSource
	log    *slog.Logger
}

// New returns a Handler. A nil log uses slog.Default().
func New(conf config.Config, worlds WorldSource, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{conf: conf, worlds: worlds, log: log}
}

// Usage returns the usage line of the command.
func (h *Handler) Usage() string {
	return "/" + h.conf.Command + " [world]"
}

// Execute runs the command named label for sender. It returns false if the command failed unexpectedly, in which
// case the failure has been logged and the caller should show the usage. Invalid input is answered with a message
// to the sender and still counts as handled.
func (h *Handler) Execute(sender Sender, label string, args []string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("command panicked", "command", label, "sender", sender.Name(), "panic", r, "stack", string(debug.Stack()))
			ok = false
		}
	}()
	if err := h.execute(sender, label, args); err != nil {
		h.log.Error("command failed", "command", label, "sender", sender.Name(), "err", err)
		return false
	}
	return true
}

func (h *Handler) execute(sender Sender, label string, args []string) error {
	if label != h.conf.Command {
		sender.SendMessage(report.Plain(MessageUnavailable))
		return nil
	}
	if !sender.IsPlayer() {
		sender.SendMessage(report.Plain(MessageNotPlayer))
		return nil
	}
	if !sender.IsOperator() {
		sender.SendMessage(report.Plain(MessageNotOperator))
		return nil
	}
	if !h.conf.LimitValid() {
		sender.SendMessage(report.Plain(MessageInvalidLimit))
		return nil
	}

	switch len(args) {
	case 0:
		return h.showWorlds(sender)
	case 1:
		if !worldNamePattern.MatchString(args[0]) {
			sender.SendMessage(report.Plain(MessageBadWorldName))
			return nil
		}
		w, err := h.worlds.World(args[0])
		if errors.Is(err, anvil.ErrWorldNotFound) {
			sender.SendMessage(report.Plain(MessageUnknownWorld))
			return nil
		}
		if err != nil {
			return fmt.Errorf("open world %s: %w", args[0], err)
		}
		h.showChunks(sender, w)
		return nil
	default:
		sender.SendMessage(report.Plain(MessageInvalidWorlds))
		return nil
	}
}

func (h *Handler) commands() report.Commands {
	return report.Commands{Analyze: h.conf.Command, WorldTeleport: h.conf.WorldTeleportCommand}
}

func (h *Handler) showWorlds(sender Sender) error {
	worlds, err := h.worlds.Worlds()
	if err != nil {
		return fmt.Errorf("list worlds: %w", err)
	}
	send(sender, report.Worlds(census.WorldScores(worlds, h.conf.Limit), h.commands()))
	return nil
}

func (h *Handler) showChunks(sender Sender, w *anvil.World) {
	scores := census.ChunkScores(w, h.conf.Limit)
	h.log.Debug("ranked chunks", "world", w.Name, "chunks", w.ChunkCount(), "shown", len(scores))
	send(sender, report.Chunks(w, scores, h.conf.Limit, h.commands()))
}

func send(sender Sender, msgs []chat.Message) {
	for _, m := range msgs {
		sender.SendMessage(m)
	}
}
