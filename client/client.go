package main

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/infrastructure/grpc/relay"
	"nolmessage/infrastructure/wire"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"RELAY_ADDR,default=localhost:3001"`
	Username      string `env:"CHAT_USERNAME,default=guest"`
	ChatID        string `env:"CHAT_ID,default=lobby"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins the configured chat, prints every event it receives and posts
// each line typed on stdin.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpc.NewClient(config.ServerAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to relay at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Debug("Closing connection...")
		_ = conn.Close()
	}()

	stream, err := relay.NewChatRelayClient(conn).Session(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open session: %w", err)
	}

	join, err := wire.NewFrameStruct(event.JoinChat, domain.JoinChatCommand{Username: config.Username, ChatID: config.ChatID})
	if err != nil {
		return exitRuntime, err
	}
	if err := stream.Send(join); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}
	log.Info(fmt.Sprintf(">>> Connected to %s, chat %q as %q (Ctrl+C to quit)",
		config.ServerAddress, config.ChatID, config.Username))

	go readInput(ctx, stream, config)

	for {
		frame, err := stream.Recv()
		if err != nil {
			return streamEnded(ctx, err)
		}
		render(frame)
	}
}

// streamEnded maps the error that stopped the receive loop to an exit code.
// A half-close answered by the relay ends with io.EOF and is a clean exit.
func streamEnded(ctx context.Context, err error) (int, error) {
	if ctx.Err() != nil || stderrors.Is(err, io.EOF) {
		return exitOK, nil
	}
	return exitRuntime, fmt.Errorf("stream error: %w", err)
}

func readInput(ctx context.Context, stream relay.SessionClient, config Config) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		frame, err := wire.NewFrameStruct(event.SendMessage, domain.SendMessageCommand{
			Username: config.Username,
			Text:     text,
			ChatID:   config.ChatID,
		})
		if err != nil || stream.Send(frame) != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
	_ = stream.CloseSend()
}

func render(frame *structpb.Struct) {
	name := event.Name(frame.Fields["event"].GetStringValue())
	value, ok := frame.Fields["data"]
	if !ok {
		return
	}
	data, err := protojson.Marshal(value)
	if err != nil {
		return
	}

	switch name {
	case event.LoadHistory:
		var history []domain.Message
		if json.Unmarshal(data, &history) == nil {
			color.Gray.Printf("--- %d earlier messages ---\n", len(history))
			for _, message := range history {
				printMessage(message)
			}
		}
	case event.NewMessage:
		var message domain.Message
		if json.Unmarshal(data, &message) == nil {
			printMessage(message)
		}
	case event.ErrorMessage:
		var text string
		if json.Unmarshal(data, &text) == nil {
			color.Red.Println(text)
		}
	}
}

func printMessage(message domain.Message) {
	user := color.Bold.Sprint(message.User)
	if message.Style == domain.StyleAdminGradient {
		user = color.New(color.FgMagenta, color.OpBold).Sprint(message.User)
	}
	fmt.Printf("%s %s: %s\n", color.Gray.Sprint(message.Timestamp), user, message.Text)
}
