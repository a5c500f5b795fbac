// Package cli implements the interactive command-line interface for the
// ragnet gateway: live session status, epoch/opcode inspection, journal
// queries, and in-world actions such as chat and movement.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/ragnet-project/ragnet/internal/client"
	"github.com/ragnet-project/ragnet/internal/config"
	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/epoch/e20120307"
	"github.com/ragnet-project/ragnet/internal/epoch/e20220406"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/journal"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg      *config.Config
	eventBus *events.Bus
	gateway  *client.Gateway
	journal  *journal.Journal
}

// NewCLI creates a new CLI handler. The journal may be nil when the
// event journal is disabled in configuration.
func NewCLI(cfg *config.Config, eventBus *events.Bus, gateway *client.Gateway, jnl *journal.Journal) *CLI {
	return &CLI{
		cfg:      cfg,
		eventBus: eventBus,
		gateway:  gateway,
		journal:  jnl,
	}
}

// Start begins the interactive CLI loop.
func (c *CLI) Start(ctx context.Context) {
	fmt.Println("\nragnet CLI ready. Type 'help' for available commands.")
	fmt.Println("─────────────────────────────────────────────────────")

	// Simple line reader for cross-platform compatibility
	reader := newLineReader()
	if reader == nil {
		log.Warn().Msg("CLI: failed to initialize line reader, CLI disabled")
		<-ctx.Done()
		return
	}
	defer reader.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadLine("ragnet> ")
		if err != nil {
			if err == io.EOF {
				return
			}
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if err := c.execute(ctx, cmd, args); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// execute processes a single CLI command.
func (c *CLI) execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "status", "s":
		c.printStatus()
	case "epochs":
		c.printEpochs()
	case "opcodes":
		return c.cmdOpcodes(args)
	case "journal", "j":
		return c.cmdJournal(args)
	case "stats":
		return c.cmdStats()
	case "prune":
		return c.cmdPrune()
	case "say":
		return c.cmdSay(args)
	case "walk":
		return c.cmdWalk(args)
	case "setconfig":
		return c.cmdSetConfig(args)
	case "quit", "exit", "q":
		fmt.Println("Shutting down ragnet...")
		c.eventBus.Emit(ctx, events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
	default:
		fmt.Printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	return nil
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Println("\n╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      ragnet CLI Commands                     ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  status             Show session connection status           ║")
	fmt.Println("║  epochs             List supported protocol epochs           ║")
	fmt.Println("║  opcodes <epoch>    Show the opcode catalog for an epoch     ║")
	fmt.Println("║  journal [n]        Show the n most recent journal entries   ║")
	fmt.Println("║  stats              Show journal event counts by type        ║")
	fmt.Println("║  prune              Prune journal entries past retention     ║")
	fmt.Println("║  say <message>      Send a chat message in-world             ║")
	fmt.Println("║  walk <x> <y>       Walk to map cell (x, y)                  ║")
	fmt.Println("║  setconfig <k> <v>  Update a configuration value             ║")
	fmt.Println("║  quit               Shutdown ragnet                          ║")
	fmt.Println("║  help               Show this help message                   ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// printStatus displays session status in a formatted table.
func (c *CLI) printStatus() {
	if c.gateway == nil {
		fmt.Println("Gateway not running")
		return
	}

	infos := c.gateway.Status()
	if len(infos) == 0 {
		fmt.Println("No active sessions")
		return
	}

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Session", "Remote", "State", "Epoch", "Recv", "Sent", "Unknown", "Malformed", "Last Frame"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, info := range infos {
		state := "CONNECTED"
		if !info.Connected {
			state = "CLOSED"
		} else if !info.Bound {
			state = "UNBOUND"
		}

		ep := info.Epoch
		if ep == "" {
			ep = "-"
		}

		last := "-"
		if !info.LastFrame.IsZero() {
			last = time.Since(info.LastFrame).Round(time.Second).String() + " ago"
		}

		tw.Append([]string{
			info.Name,
			info.Remote,
			state,
			ep,
			fmt.Sprintf("%d", info.Frames),
			fmt.Sprintf("%d", info.Sent),
			fmt.Sprintf("%d", info.Unknown),
			fmt.Sprintf("%d", info.Malformed),
			last,
		})
	}

	tw.Render()

	if c.gateway.InWorld() {
		fmt.Println("\nCharacter is in-world.")
	}
	fmt.Println()
}

// printEpochs lists the supported protocol epochs.
func (c *CLI) printEpochs() {
	active := c.cfg.GetGameData().Epoch

	fmt.Println()
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Epoch", "Opcodes", "Active"})
	tw.SetBorder(true)

	for _, id := range epoch.Known() {
		table, _ := catalogFor(id)
		mark := ""
		if id.String() == active {
			mark = "*"
		}
		tw.Append([]string{id.String(), fmt.Sprintf("%d", len(table)), mark})
	}

	tw.Render()
	fmt.Println()
}

// catalogFor returns the opcode table for an epoch by its revision ID.
func catalogFor(id epoch.ID) ([]epoch.OpcodeInfo, bool) {
	switch id {
	case epoch.E20120307:
		return e20120307.NewCatalog().Describe(), true
	case epoch.E20220406:
		return e20220406.NewCatalog().Describe(), true
	}
	return nil, false
}

func (c *CLI) cmdOpcodes(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: opcodes <epoch>")
	}

	id, err := epoch.Parse(args[0])
	if err != nil {
		return err
	}

	table, ok := catalogFor(id)
	if !ok {
		return fmt.Errorf("no catalog for epoch %s", id)
	}

	fmt.Println()
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Opcode", "Packet", "Size"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, info := range table {
		size := "variable"
		if info.Size > 0 {
			size = fmt.Sprintf("%d", info.Size)
		}
		tw.Append([]string{fmt.Sprintf("0x%04x", info.Opcode), info.Name, size})
	}

	tw.Render()
	fmt.Printf("%d opcodes in epoch %s\n\n", len(table), id)
	return nil
}

func (c *CLI) cmdJournal(args []string) error {
	if c.journal == nil {
		return fmt.Errorf("journal is disabled")
	}

	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid entry count: %s", args[0])
		}
		limit = n
	}

	entries, err := c.journal.Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Journal is empty")
		return nil
	}

	fmt.Println()
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "At", "Type", "Source", "Payload"})
	tw.SetBorder(true)

	for _, e := range entries {
		payload := e.Payload
		if len(payload) > 60 {
			payload = payload[:57] + "..."
		}
		tw.Append([]string{
			fmt.Sprintf("%d", e.ID),
			e.At.Local().Format("15:04:05"),
			e.Type,
			e.Source,
			payload,
		})
	}

	tw.Render()
	fmt.Println()
	return nil
}

func (c *CLI) cmdStats() error {
	if c.journal == nil {
		return fmt.Errorf("journal is disabled")
	}

	counts, err := c.journal.Stats()
	if err != nil {
		return err
	}
	total, err := c.journal.Count()
	if err != nil {
		return err
	}

	fmt.Println()
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Event Type", "Count"})
	tw.SetBorder(true)

	for _, tc := range counts {
		tw.Append([]string{tc.Type, fmt.Sprintf("%d", tc.Count)})
	}

	tw.Render()
	fmt.Printf("%d entries total\n\n", total)
	return nil
}

func (c *CLI) cmdPrune() error {
	if c.journal == nil {
		return fmt.Errorf("journal is disabled")
	}

	days := c.cfg.GetApplicationData().Journal.RetentionDays
	if days < 1 {
		return fmt.Errorf("journal retention is not configured")
	}

	removed, err := c.journal.Prune(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d entries older than %d days\n", removed, days)
	return nil
}

func (c *CLI) cmdSay(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: say <message>")
	}
	if c.gateway == nil {
		return fmt.Errorf("gateway not running")
	}

	message := strings.Join(args, " ")
	if err := c.gateway.Say(message); err != nil {
		return err
	}
	fmt.Printf("Sent: %s\n", message)
	return nil
}

func (c *CLI) cmdWalk(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: walk <x> <y>")
	}
	if c.gateway == nil {
		return fmt.Errorf("gateway not running")
	}

	x, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid x coordinate: %s", args[0])
	}
	y, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid y coordinate: %s", args[1])
	}

	if err := c.gateway.Walk(uint16(x), uint16(y)); err != nil {
		return err
	}
	fmt.Printf("Walking to (%d, %d)\n", x, y)
	return nil
}

func (c *CLI) cmdSetConfig(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: setconfig <key> <value>")
	}

	key := args[0]
	value := strings.Join(args[1:], " ")

	if err := c.cfg.UpdateGameField(key, value); err != nil {
		return err
	}

	if err := c.cfg.Save(); err != nil {
		return err
	}

	c.eventBus.Emit(context.Background(), events.Event{
		Type:   events.EventConfigChanged,
		Source: "cli",
		Payload: events.ConfigChangedPayload{
			Section: "game",
			Key:     key,
			Value:   value,
		},
	})

	fmt.Printf("Config updated: %s = %s\n", key, value)
	return nil
}

// lineReader is a simple cross-platform line reader.
type lineReader struct {
	scanner *bufio.Scanner
}

func newLineReader() *lineReader {
	return &lineReader{scanner: bufio.NewScanner(os.Stdin)}
}

func (lr *lineReader) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return lr.scanner.Text(), nil
}

func (lr *lineReader) Close() error {
	return nil
}
