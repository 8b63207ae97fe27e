// chatctl is a terminal client: it logs in, keeps a local cache in sync
// through the live channel, and falls back to REST when the channel is
// down.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"github.com/Trabajadores202/work-flow-connect-80-89/clientsync"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	Email     string `envconfig:"EMAIL" required:"true"`
	Password  string `envconfig:"PASSWORD" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatctl terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	var config Config
	if err := envconfig.Process("CHATCTL", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	token, user, err := clientsync.Login(config.ServerURL, config.Email, config.Password)
	if err != nil {
		return exitRuntime, fmt.Errorf("login failed: %w", err)
	}
	color.Greenln("Logged in as " + user.Name)

	wsURL, err := websocketURL(config.ServerURL)
	if err != nil {
		return exitConfig, err
	}

	cache := clientsync.NewCache(user.ID)
	fallback := clientsync.NewFallback(config.ServerURL, token)
	engine := clientsync.NewEngine(logger, wsURL, token, cache, fallback)
	defer func() { _ = engine.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Connect(ctx); err != nil {
		color.Yellowln("Live channel unavailable, running on REST fallback")
		logger.Warn("Channel connect failed", "error", err)
	}

	repl(engine, cache, user.ID)
	return exitOK, nil
}

// repl reads commands from stdin: "ls" lists conversations, "open N"
// selects one and tails it, anything else is sent as a message to the
// selected conversation.
func repl(engine *clientsync.Engine, cache *clientsync.Cache, selfID string) {
	var activeID string
	engine.OnChange = func() {
		if activeID != "" {
			// Re-render only the tail of the active conversation.
			printTail(cache, activeID, selfID, 1)
		}
	}

	printConversations(cache)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "quit" || line == "exit":
			return
		case line == "ls":
			printConversations(cache)
		case line == "status":
			fmt.Println("channel:", engine.State())
		case strings.HasPrefix(line, "open "):
			index, err := strconv.Atoi(strings.TrimPrefix(line, "open "))
			if err != nil {
				color.Redln("usage: open <number from ls>")
				break
			}
			conversations := sortedConversations(cache)
			if index < 1 || index > len(conversations) {
				color.Redln("no such conversation")
				break
			}
			activeID = conversations[index-1].ID
			cache.SetActive(activeID)
			printTail(cache, activeID, selfID, 20)
		default:
			if activeID == "" {
				color.Redln("open a conversation first (ls, then open <n>)")
				break
			}
			if err := engine.Send(activeID, line); err != nil {
				color.Redln("send failed: " + err.Error())
			}
		}
		fmt.Print("> ")
	}
}

func sortedConversations(cache *clientsync.Cache) []clientsync.ConversationView {
	conversations := cache.Conversations()
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastActivityAt.After(conversations[j].LastActivityAt)
	})
	return conversations
}

func printConversations(cache *clientsync.Cache) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Name", "Unread", "Last message"})
	for i, view := range sortedConversations(cache) {
		name := view.Name
		if name == "" {
			name = strings.Join(view.ParticipantIDs, ", ")
		}
		last := ""
		if view.LastMessage != nil {
			last = view.LastMessage.Body
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			name,
			strconv.Itoa(view.Unread),
			truncate(last, 50),
		})
	}
	table.Render()
}

func printTail(cache *clientsync.Cache, conversationID, selfID string, n int) {
	entries := cache.Messages(conversationID)
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	for _, entry := range entries {
		prefix := entry.AuthorID
		if entry.AuthorID == selfID {
			prefix = "me"
		}
		line := fmt.Sprintf("[%s] %s: %s", entry.CreatedAt.Local().Format("15:04"), prefix, entry.Body)
		switch {
		case entry.Pending:
			color.Grayln(line + " (sending...)")
		case entry.Deleted:
			color.Grayln(fmt.Sprintf("[%s] %s: (deleted)", entry.CreatedAt.Local().Format("15:04"), prefix))
		case entry.AuthorID == selfID:
			color.Cyanln(line)
		default:
			fmt.Println(line)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// websocketURL derives the channel endpoint from the REST base URL.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}
