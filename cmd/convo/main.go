package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"convo/auth"
	"convo/internal"
	"convo/moderation"
	"convo/runtime"
	"convo/services"
	"convo/transport"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the session, connection and chat components together and
// drives them from a line-based terminal loop.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Build the transport layers.
	api, err := transport.NewAPI(config.ServerURL, config.RequestTimeout, log)
	if err != nil {
		return exitConfig, err
	}
	if config.AuthToken != "" && !auth.TokenExpired(config.AuthToken, time.Now()) {
		api.SetToken(config.AuthToken)
	}
	socket := transport.NewSocket(config.StreamURL, log)

	// 4. Optional outgoing-message moderation.
	var moderator *moderation.Moderator
	if config.CensoredWordsPath != "" {
		censorChar, err := internal.CensorRune(config.CensoredChar)
		if err != nil {
			return exitConfig, err
		}
		words, err := moderation.LoadWords(config.CensoredWordsPath)
		if err != nil {
			return exitConfig, fmt.Errorf("loading censored words: %w", err)
		}
		m, err := moderation.NewModerator(words, censorChar)
		if err != nil {
			return exitConfig, fmt.Errorf("building moderator: %w", err)
		}
		moderator = &m
		log.Info("moderation enabled", "words", len(words))
	}

	// 5. Assemble the core.
	notifier := &consoleNotifier{}
	conns := runtime.NewConnectionManager(socket, log)
	session := services.NewSessionManager(api, conns, notifier, log)
	chat := services.NewChatSynchronizer(api, conns, notifier, moderator, log)

	// 6. Resume a previous session if the server still honours it.
	if err := session.CheckInitialSession(ctx); err != nil {
		return exitRuntime, fmt.Errorf("connecting the event stream: %w", err)
	}
	defer func() { _ = conns.Disconnect() }()

	if user, ok := session.CurrentUser(); ok {
		notifier.Success("Welcome back, " + user.FullName)
	}

	// 7. Interactive loop.
	printHelp()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		}
		if ctx.Err() != nil {
			return exitOK, nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return exitOK, nil
		}
		if err := dispatch(ctx, line, session, chat, conns, notifier); err != nil {
			log.Debug("command failed", "input", line, "error", err)
		}
	}
}
