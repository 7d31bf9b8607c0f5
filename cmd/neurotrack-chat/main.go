// ABOUTME: Interactive terminal client for the NeuroTrack staff chat backend
// ABOUTME: Wires the conversation engine, REST transport, and push channel together

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/neurotrack/chat-engine/internal/config"
	"github.com/neurotrack/chat-engine/internal/engine"
	"github.com/neurotrack/chat-engine/internal/session"
	"github.com/neurotrack/chat-engine/internal/store"
	"github.com/neurotrack/chat-engine/internal/transport"
	"github.com/neurotrack/chat-engine/internal/typing"
	"github.com/neurotrack/chat-engine/internal/views"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the client config file.
// Priority: NEUROTRACK_CHAT_CONFIG env var > XDG_CONFIG_HOME/neurotrack/chat.yaml > ~/.config/neurotrack/chat.yaml
func getConfigPath() string {
	if envPath := os.Getenv("NEUROTRACK_CHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "chat.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "neurotrack", "chat.yaml")
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: auto-discovered)")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = getConfigPath()
	}

	var cfg *config.Config
	if _, err := os.Stat(path); err == nil || *configPath != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	logger := setupLogger(cfg.Logging)

	gray := color.New(color.FgHiBlack)
	fmt.Printf("neurotrack-chat %s connected to %s\n", version, cfg.Server.APIBase)
	if cfg.Server.Token != "" {
		gray.Println("Auth: bearer token configured")
	} else {
		gray.Println("Auth: none")
	}
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	msgs := store.NewMessageStore()
	dir := store.NewDirectory()
	sess := session.New(msgs, dir, logger)
	tracker := typing.NewTracker(cfg.Chat.TypingExpiry)

	client := transport.NewClient(cfg.Server.APIBase, cfg.Server.Token, logger)
	eng := engine.New(msgs, dir, sess, tracker, client, logger)
	defer eng.Close()

	projector := views.NewProjector(msgs, dir, tracker)

	// Bootstrap the participant directory before accepting input.
	if err := eng.LoadDirectory(ctx, client); err != nil {
		return fmt.Errorf("loading participant directory: %w", err)
	}

	// Push channel with reconnect. A dropped connection never tears down the
	// session; local state stays usable and the reader dials again.
	go runPushReader(ctx, cfg, eng, logger)

	// Re-render on engine change signals.
	ticks, subID := eng.Subscribe(ctx)
	defer eng.Unsubscribe(subID)
	go func() {
		for range ticks {
			renderCurrent(eng, projector)
		}
	}()

	renderList(projector, views.FilterAll, "")
	return inputLoop(ctx, eng, client, projector)
}

func runPushReader(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) {
	reader := transport.NewPushReader(cfg.Server.WSURL, cfg.Server.Token, eng, logger)
	for {
		err := reader.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("push channel disconnected, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func inputLoop(ctx context.Context, eng *engine.Engine, client *transport.Client, projector *views.Projector) error {
	scanner := bufio.NewScanner(os.Stdin)
	filter := views.FilterAll

	for {
		if active, ok := eng.ActiveConversation(); ok {
			fmt.Printf("[%s]> ", active)
		} else {
			fmt.Print("> ")
		}

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			filter = handleCommand(ctx, eng, client, projector, filter, input)
			fmt.Println()
			continue
		}

		// Plain text goes to the active conversation.
		active, ok := eng.ActiveConversation()
		if !ok {
			fmt.Println("No open conversation. Use /open <participant_id> first.")
			fmt.Println()
			continue
		}
		if _, err := eng.Send(ctx, active, input); err != nil {
			fmt.Printf("[error] %v\n", err)
		}
		fmt.Println()
	}
}

func handleCommand(ctx context.Context, eng *engine.Engine, client *transport.Client, projector *views.Projector, filter views.Filter, input string) views.Filter {
	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/list":
		renderList(projector, filter, "")

	case "/filter":
		switch args {
		case "", "all":
			filter = views.FilterAll
		case "patient", "patients":
			filter = views.FilterPatient
		case "physio", "physiotherapist", "physiotherapists":
			filter = views.FilterPhysiotherapist
		default:
			fmt.Println("Usage: /filter [all|patient|physio]")
			return filter
		}
		renderList(projector, filter, "")

	case "/search", "/find":
		if args == "" {
			fmt.Println("Usage: /search <query>")
			return filter
		}
		renderList(projector, filter, args)

	case "/open":
		if args == "" {
			fmt.Println("Usage: /open <participant_id>")
			return filter
		}
		if err := eng.LoadHistory(ctx, client, args); err != nil {
			fmt.Printf("[error] %v\n", err)
			return filter
		}
		if err := eng.Activate(args); err != nil {
			fmt.Printf("[error] %v\n", err)
			return filter
		}
		renderThread(projector, args)

	case "/close":
		eng.Deactivate()
		fmt.Println("Conversation closed")

	case "/status":
		renderStatus(eng, projector, filter)

	case "/help":
		printHelp()

	default:
		fmt.Printf("Unknown command: %s (/help for commands)\n", cmd)
	}

	return filter
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /list                    Show the conversation list")
	fmt.Println("  /filter [all|patient|physio]  Restrict the list by participant kind")
	fmt.Println("  /search <query>          Search names and message bodies")
	fmt.Println("  /open <participant_id>   Open a conversation (loads history, marks read)")
	fmt.Println("  /close                   Close the open conversation")
	fmt.Println("  /status                  Show session summary")
	fmt.Println("  /help                    Show this help")
	fmt.Println("  /quit                    Exit")
}

func renderStatus(eng *engine.Engine, projector *views.Projector, filter views.Filter) {
	rows := projector.Conversations(time.Now())

	unread := 0
	online := 0
	for _, row := range rows {
		unread += row.Unread
		if row.Online {
			online++
		}
	}

	if active, ok := eng.ActiveConversation(); ok {
		fmt.Printf("Open conversation: %s\n", active)
	} else {
		fmt.Println("Open conversation: none")
	}
	fmt.Printf("Participants: %d (%d online)\n", len(rows), online)
	fmt.Printf("Unread messages: %d\n", unread)
	fmt.Printf("Filter: %s\n", filter)
}

// renderCurrent redraws whichever view the user is looking at. Signals are
// coalesced, so this always re-pulls fresh projections.
func renderCurrent(eng *engine.Engine, projector *views.Projector) {
	if active, ok := eng.ActiveConversation(); ok {
		fmt.Println()
		renderThread(projector, active)
	} else {
		fmt.Println()
		renderList(projector, views.FilterAll, "")
	}
}

func renderList(projector *views.Projector, filter views.Filter, query string) {
	rows := projector.Filtered(filter, query, time.Now())
	if len(rows) == 0 {
		fmt.Println("No conversations")
		return
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	gray := color.New(color.FgHiBlack)

	fmt.Println("Conversations:")
	for _, row := range rows {
		if row.Online {
			green.Print("  ● ")
		} else {
			gray.Print("  ○ ")
		}

		fmt.Printf("%-20s", row.Participant.DisplayName)
		gray.Printf(" %-16s", kindLabel(row.Participant))

		if row.Typing {
			gray.Print(" typing…        ")
		} else if row.LastMessage != nil {
			fmt.Printf(" %s", truncate(row.LastMessage.Body, 40))
		} else {
			gray.Print(" (no messages)")
		}

		if row.Unread > 0 {
			yellow.Printf("  [%d unread]", row.Unread)
		}
		if row.WhenLabel != "" {
			gray.Printf("  %s", row.WhenLabel)
		}
		gray.Printf("  id=%s", row.Participant.ID)
		fmt.Println()
	}
}

func renderThread(projector *views.Projector, participantID string) {
	buckets := projector.Thread(participantID, time.Now())
	if len(buckets) == 0 {
		fmt.Println("No messages yet")
		return
	}

	gray := color.New(color.FgHiBlack)
	blue := color.New(color.FgBlue)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, bucket := range buckets {
		gray.Printf("--- %s ---\n", bucket.Label)
		for _, m := range bucket.Messages {
			if m.Direction == store.DirectionIncoming {
				blue.Print("→ ")
			} else {
				green.Print("← ")
			}
			fmt.Print(m.Body)
			switch m.DeliveryState {
			case store.DeliveryPending:
				gray.Print("  (sending…)")
			case store.DeliveryFailed:
				red.Print("  (failed)")
			}
			gray.Printf("  %s\n", m.CreatedAt.Local().Format("15:04"))
		}
	}
}

func kindLabel(p store.Participant) string {
	if p.RoleLabel != "" {
		return p.RoleLabel
	}
	return string(p.Kind)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
