// Package report renders census results as chat messages. Lines carry hover text and run a follow-up command when
// clicked, so a player can drill down from worlds to chunks and teleport from there.
package report

import (
	"fmt"
	"strings"

	"github.com/Tnze/go-mc/chat"
	"github.com/gorogoro-space/chunkanalyzer/anvil"
	"github.com/gorogoro-space/chunkanalyzer/census"
)

const (
	worldHeader = "■■■■■■ ChunkAnalyzer ■■■■■■"
	chunkHeader = "■■■■■■■ ChunkAnalyzer ■■■■■■■"
	footer      = "■■■■■■■■■■■■■■■■■■■■■■■■■■■"
)

// Commands names the commands the clickable lines run, without leading slash.
type Commands struct {
	// Analyze is the analyzer command itself, e.g. chunka.
	Analyze string
	// WorldTeleport moves a player to another world, e.g. mvtp.
	WorldTeleport string
}

// Worlds renders the world ranking. Clicking a world runs the analyzer for it.
func Worlds(scores []census.Entry[string], cmds Commands) []chat.Message {
	msgs := []chat.Message{blank(), coloured(worldHeader, chat.Gold), blank()}
	for _, s := range scores {
		line := fmt.Sprintf("  ● World: %s Count: %d", s.Key, s.Count)
		msgs = append(msgs, HoverClick(line, "Click to view details.", cmds.Analyze+" "+s.Key))
	}
	return append(msgs, blank(), coloured(footer, chat.Gold))
}

// Chunks renders the chunk ranking of world w. Hovering a chunk shows its region file and the most common types in
// it, clicking teleports to it.
func Chunks(w *anvil.World, scores []census.Entry[anvil.ChunkPos], limit int, cmds Commands) []chat.Message {
	msgs := []chat.Message{blank(), coloured(chunkHeader, chat.Gold), blank()}
	teleport := HoverClick("  ＞＞ Click to teleport", fmt.Sprintf("Teleport to \"%s\" World", w.Name), cmds.WorldTeleport+" "+w.Name)
	teleport.Color = chat.Red
	msgs = append(msgs, teleport, blank())

	for _, s := range scores {
		c, ok := w.Chunk(s.Key)
		if !ok {
			continue
		}
		line := fmt.Sprintf("  ● Chunk: %d,%d Count: %d", s.Key.X, s.Key.Z, s.Count)
		msgs = append(msgs, eventLine(line, ChunkDetail(c, limit), TeleportCommand(census.TeleportTarget(c))))
	}

	back := HoverClick("  ＜＜ Back", "Click to go back", cmds.Analyze)
	back.Color = chat.Red
	return append(msgs, blank(), back, blank(), coloured(footer, chat.Gold))
}

// ChunkDetail is the hover text of a chunk line.
func ChunkDetail(c *anvil.Chunk, limit int) chat.Message {
	l := census.TeleportTarget(c)
	var b strings.Builder
	b.WriteString("\n  File name: " + anvil.RegionFileName(c.X, c.Z))
	for i, t := range census.TopTypes(c, limit) {
		fmt.Fprintf(&b, "\n  %d. Type: %s Count: %d", i+1, t.Key, t.Count)
	}
	head := coloured("  Click to teleport(XYZ): "+formatXYZ(l, " / "), chat.Red)
	return chat.Message{Extra: []chat.Message{head, chat.Text(b.String())}}
}

// TeleportCommand returns the command, without slash, that teleports to l. An unknown height keeps the player's
// current height.
func TeleportCommand(l census.Location) string {
	return "tp " + formatXYZ(l, " ")
}

func formatXYZ(l census.Location, sep string) string {
	y := "~"
	if l.HasY {
		y = fmt.Sprintf("%.1f", l.Y)
	}
	return fmt.Sprintf("%.1f", l.X) + sep + y + sep + fmt.Sprintf("%.1f", l.Z)
}

// HoverClick returns a line that shows hover when hovered and runs /cmd when clicked.
func HoverClick(text, hover, cmd string) chat.Message {
	return eventLine(text, chat.Text(hover), cmd)
}

func eventLine(text string, hover chat.Message, cmd string) chat.Message {
	m := chat.Text(text)
	m.HoverEvent = chat.ShowText(hover)
	m.ClickEvent = chat.RunCommand("/" + cmd)
	return m
}

// Plain returns an uncoloured message without events.
func Plain(text string) chat.Message {
	return chat.Text(text)
}

func coloured(text, colour string) chat.Message {
	m := chat.Text(text)
	m.Color = colour
	return m
}

func blank() chat.Message {
	return chat.Text("")
}
