package main

import (
	"bufio"
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"http://localhost:5001"`
	Email     string `envconfig:"CHAT_EMAIL" required:"true"`
	Password  string `envconfig:"CHAT_PASSWORD" required:"true"`
	// CHAT_FULL_NAME enables signing up when the login fails
	FullName  string `envconfig:"CHAT_FULL_NAME"`
	CachePath string `envconfig:"CHAT_CACHE_PATH" default:".chat-relay/selected"`
	Colours   bool   `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel  string `envconfig:"CHAT_LOG_LEVEL" default:"WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client terminated with error: %v\n", err)
	}
	os.Exit(code)
}

type printer struct {
	colours bool
	names   map[string]string
	self    string
}

func (p printer) paint(style color.Style, s string) string {
	if !p.colours {
		return s
	}
	return style.Render(s)
}

func (p printer) name(id string) string {
	if id == p.self {
		return "me"
	}
	return lo.ValueOr(p.names, id, id)
}

func (p printer) message(env event.Envelope) {
	line := env.Text
	if env.Image != nil {
		line = strings.TrimSpace(line + " [image " + *env.Image + "]")
	}
	style := color.New(color.FgCyan)
	if env.SenderID == p.self {
		style = color.New(color.FgGreen)
	}
	fmt.Printf("%s %s\n", p.paint(style, p.name(env.SenderID)+" >"), line)
}

func (p printer) info(format string, args ...any) {
	fmt.Println(p.paint(color.New(color.FgGray), fmt.Sprintf(format, args...)))
}

func run() (int, error) {
	with := flag.String("with", "", "Email of the user to chat with, overrides the cached selection")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Session
	api := client.NewAPI(config.ServerURL, nil)
	me, err := api.Login(ctx, config.Email, config.Password)
	if err != nil && config.FullName != "" {
		me, err = api.Signup(ctx, config.FullName, config.Email, config.Password)
	}
	if err != nil {
		return exitRuntime, err
	}

	// 2. Counterpart: explicit choice first, then the cached one
	users, err := api.Users(ctx)
	if err != nil {
		return exitRuntime, err
	}
	out := printer{
		colours: config.Colours,
		self:    me.ID,
		names:   lo.SliceToMap(users, func(u domain.PublicUser) (string, string) { return u.ID, u.FullName }),
	}

	cache := client.NewSelectionCache(config.CachePath)
	selected, ok, err := pick(cache, users, *with)
	if err != nil {
		return exitRuntime, err
	}
	if !ok {
		out.info("Pick someone to chat with using -with <email>:")
		for _, u := range users {
			out.info("  %s <%s>", u.FullName, u.Email)
		}
		return exitOK, nil
	}
	if err = cache.Save(selected.ID); err != nil {
		log.Warn("Selection not cached", "error", err)
	}

	// 3. History then live updates
	history, err := api.Conversation(ctx, selected.ID)
	if err != nil {
		return exitRuntime, err
	}
	reconciler := client.NewReconciler(me.ID)
	reconciler.Open(selected.ID, history)

	out.info("Chatting with %s. /delete clears the conversation, /search <words>, /online, /quit.", selected.FullName)
	for _, env := range reconciler.Messages() {
		out.message(env)
	}

	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(config.ServerURL, "/"), "http") + "/ws"
	live, err := client.Dial(ctx, log, wsURL, api.Token())
	if err != nil {
		return exitRuntime, fmt.Errorf("real-time channel: %w", err)
	}
	defer func() { _ = live.Close() }()

	liveErr := make(chan error, 1)
	go func() {
		liveErr <- live.Run(ctx, reconciler, func(evt event.Event, outcome client.Outcome) {
			switch outcome {
			case client.Appended:
				out.message(evt.Data.(event.Envelope))
			case client.ClearedByCounterpart:
				out.info("%s deleted the conversation", selected.FullName)
			case client.Cleared:
				out.info("Conversation deleted")
			case client.RosterReplaced:
				if reconciler.IsOnline(selected.ID) {
					out.info("%s is online", selected.FullName)
				} else {
					out.info("%s is offline", selected.FullName)
				}
			}
		})
	}()

	// 4. Input loop
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-liveErr:
			if err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		case line, open := <-lines:
			if !open {
				return exitOK, nil
			}
			if quit := handleLine(ctx, api, reconciler, out, selected, strings.TrimSpace(line)); quit {
				return exitOK, nil
			}
		}
	}
}

func pick(cache *client.SelectionCache, users []domain.PublicUser, email string) (domain.PublicUser, bool, error) {
	if email != "" {
		u, ok := lo.Find(users, func(u domain.PublicUser) bool { return strings.EqualFold(u.Email, email) })
		return u, ok, nil
	}
	return cache.Restore(users)
}

func handleLine(ctx context.Context, api *client.API, r *client.Reconciler, out printer, selected domain.PublicUser, line string) bool {
	switch {
	case line == "":
	case line == "/quit":
		return true
	case line == "/online":
		out.info("Online: %s", strings.Join(lo.Map(r.Online(), func(id string, _ int) string { return out.name(id) }), ", "))
	case line == "/delete":
		deleted, err := api.DeleteConversation(ctx, selected.ID)
		if err != nil {
			out.info("Delete failed: %v", err)
			return false
		}
		out.info("%d messages deleted", deleted)
	case strings.HasPrefix(line, "/search "):
		found, err := api.Search(ctx, selected.ID, strings.TrimPrefix(line, "/search "))
		if err != nil {
			out.info("Search failed: %v", err)
			return false
		}
		out.info("%d result(s)", len(found))
		for _, env := range found {
			out.message(env)
		}
	default:
		env, err := api.Send(ctx, selected.ID, line, "")
		if err != nil {
			out.info("Send failed: %v", err)
			return false
		}
		if r.Sent(env) {
			out.message(env)
		}
	}
	return false
}
