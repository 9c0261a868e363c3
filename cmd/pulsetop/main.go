package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"streampulse/internal/tui"
	"streampulse/pkg/validation"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "streampulse server base URL")
	token := flag.String("token", os.Getenv("STREAMPULSE_TOKEN"), "operator bearer token for control actions")
	flag.Parse()

	if err := validation.ValidateServerURL(*addr); err != nil {
		fmt.Printf("Invalid -addr: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := tui.NewFeedClient(*addr, *token)
	msgs, errs, err := client.Connect(ctx)
	if err != nil {
		fmt.Printf("Failed to connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}

	m := tui.NewModel(client, msgs, errs, cancel)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
