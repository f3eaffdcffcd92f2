// Command council is a terminal client for the council service: pick a
// conversation, ask in text or voice, watch the three stages stream in.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	council "github.com/kuware/council-core/core"
	"github.com/kuware/council-core/core/api"
	"github.com/kuware/council-core/core/audio/miniaudio"
	"github.com/kuware/council-core/core/audio/portaudio"
	"github.com/kuware/council-core/internal/config"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := api.NewClient(cfg.Server.BaseURL)
	if cfg.Auth.Token != "" {
		client.SetToken(cfg.Auth.Token)
	} else if cfg.Auth.Email != "" {
		if _, err := client.Login(context.Background(), cfg.Auth.Email, cfg.Auth.Password); err != nil {
			log.Fatalf("Failed to log in: %v", err)
		}
	}

	capture, player, cleanup, err := audioBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize audio backend: %v", err)
	}
	defer cleanup()

	store := council.NewConversationStore()
	model := newModel(client, store, cfg, capture, player)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "council: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "council", "config.yaml")
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func audioBackend(cfg *config.Config) (council.CaptureClient, council.Player, func(), error) {
	switch cfg.Audio.Backend {
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, nil, err
		}
		return client, client, client.Close, nil

	case "portaudio":
		client, err := portaudio.NewClient(cfg.Audio.BufferSize)
		if err != nil {
			return nil, nil, nil, err
		}
		return client, client, client.Close, nil

	default:
		return nil, nil, func() {}, nil
	}
}
