package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNilPublishersAreNoops(t *testing.T) {
	var p *RabbitPublisher
	if err := p.Publish(context.Background(), RoutingPlanCompleted, map[string]any{}); err != nil {
		t.Fatalf("nil publisher must not fail: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nil close must not fail: %v", err)
	}
	var r *Recorder
	if err := r.Publish(context.Background(), RoutingPlanCompleted, nil); err != nil {
		t.Fatalf("nil recorder must not fail: %v", err)
	}
}

func TestRabbitPublisher(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set")
	}
	p, err := NewRabbitPublisher(url, "gmalla.events.test", zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, RoutingAssignmentApplied, map[string]string{"incidencia_id": "g-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
