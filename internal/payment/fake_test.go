package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type fakeGateway struct {
	mu      sync.Mutex
	created []IntentRequest
	intents map[string]*Intent
	err     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*Intent{}}
}

func (g *fakeGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	id := fmt.Sprintf("pi_%d", len(g.created))
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       "requires_payment_method",
	}
	g.intents[id] = intent
	return intent, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, id string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	intent, ok := g.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return intent, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

func (g *fakeGateway) settle(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = StatusSucceeded
}
