// Package main is a live surveillance console for the cascade engine.
// It loads the metro seed network, starts continuous monitoring, and
// renders facility vitals, predictions, and stabilization strategies as
// they stream over the engine bus. Disasters can be triggered from the
// Disaster tab.
package main

import (
	"context"
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-cascade/pkg/engine"
	"github.com/dd0wney/cluso-cascade/pkg/pubsub"
)

func main() {
	configPath := flag.String("config", "", "engine config file (YAML)")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// The watch console always runs live surveillance. Logging stays off
	// so nothing writes over the alternate screen.
	cfg.Monitor.Enabled = true

	eng, err := engine.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	defer eng.Close()

	ctx := context.Background()
	topics := []string{pubsub.TopicPredictions, pubsub.TopicStrategies, pubsub.TopicFlaggedNodes}
	subs := make(map[string]*pubsub.Subscription, len(topics))
	for _, topic := range topics {
		sub, err := eng.Bus().Subscribe(ctx, topic)
		if err != nil {
			log.Fatalf("Failed to subscribe to %s: %v", topic, err)
		}
		subs[topic] = sub
	}

	p := tea.NewProgram(initialModel(eng, subs), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
