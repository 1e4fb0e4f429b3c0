package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"CanvasBoard/internal/board"
	"CanvasBoard/internal/config"
	"CanvasBoard/internal/logcfg"
	"CanvasBoard/internal/net"
	"CanvasBoard/internal/raster"
	"CanvasBoard/internal/ui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("canvasboard", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a toml config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logcfg.New(cfg.LogLevel, cfg.PrettyLogs, os.Stderr)
	if err != nil {
		return err
	}

	endpoint, room := cfg.Endpoint, cfg.Room
	if link := flags.Arg(0); link != "" {
		if endpoint, room, err = net.ParseJoinLink(link); err != nil {
			return err
		}
	}
	if endpoint == "" {
		if endpoint, err = net.Discover(cfg.DiscoveryTimeout); err != nil {
			return fmt.Errorf("no endpoint configured: %w", err)
		}
		log.Info().Str("endpoint", endpoint).Msg("discovered relay")
	}

	surface, err := raster.NewSurface(cfg.Width, cfg.Height, cfg.Background)
	if err != nil {
		return fmt.Errorf("cannot open drawing window: %w", err)
	}
	channel := net.NewChannel(log, net.NewDialer(cfg.DialTimeout), cfg.ChannelOptions(endpoint))
	b, err := board.New(log, surface, channel, cfg.BoardOptions())
	if err != nil {
		return fmt.Errorf("cannot open drawing window: %w", err)
	}

	app := ui.NewApp(log, b, room, shareLink(log, endpoint, room))
	channel.OnStateChange(app.SetConnectionState)

	log.Info().Str("endpoint", endpoint).Str("room", room).Str("participant", b.Participant()).Msg("joining board")
	b.Connect(room)
	app.Run()
	return nil
}

func shareLink(log zerolog.Logger, endpoint, room string) string {
	link, err := net.JoinLink(endpoint, room)
	if err != nil {
		log.Warn().Err(err).Msg("no join link for this endpoint")
		return ""
	}
	return link
}
