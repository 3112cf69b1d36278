// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package monetize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrPaymentDeclined is returned when the gateway declines a charge.
var ErrPaymentDeclined = errors.New("payment declined")

// ErrGatewayUnavailable is returned when the circuit breaker is open or
// the gateway cannot be reached.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Charge is a payment request sent to the gateway.
type Charge struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

// Receipt is the gateway's record of a settled charge.
type Receipt struct {
	ChargeID  string    `json:"charge_id"`
	Reference string    `json:"reference"`
	SettledAt time.Time `json:"settled_at"`
}

// Gateway charges users. Implementations must be safe for concurrent
// use.
type Gateway interface {
	Charge(ctx context.Context, charge Charge) (*Receipt, error)
}

// HTTPGateway talks to an external payment provider. Calls run through
// a circuit breaker so a degraded provider fails fast instead of tying
// up request handlers, and through a rate limiter honoring the
// provider's request budget.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// HTTPGatewayConfig configures the gateway client.
type HTTPGatewayConfig struct {
	BaseURL string
	APIKey  string

	// RequestsPerSecond is the provider's request budget. Default 10.
	RequestsPerSecond float64

	// Timeout bounds one charge call. Default 10s.
	Timeout time.Duration
}

// NewHTTPGateway builds the production gateway client.
func NewHTTPGateway(cfg HTTPGatewayConfig) *HTTPGateway {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
	}
}

// Charge submits a charge to the provider.
func (g *HTTPGateway) Charge(ctx context.Context, charge Charge) (*Receipt, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	v, err := g.breaker.Execute(func() (any, error) {
		return g.doCharge(ctx, charge)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrGatewayUnavailable
	}
	if err != nil {
		return nil, err
	}
	return v.(*Receipt), nil
}

func (g *HTTPGateway) doCharge(ctx context.Context, charge Charge) (*Receipt, error) {
	body, err := json.Marshal(charge)
	if err != nil {
		return nil, fmt.Errorf("encode charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	// Idempotency key lets the provider dedupe retried charges.
	req.Header.Set("Idempotency-Key", charge.ID)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("charge request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var receipt Receipt
		if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
		return &receipt, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		// Declines are business outcomes, not provider failures; they
		// must not trip the breaker open.
		return nil, fmt.Errorf("%w: gateway status %d", ErrPaymentDeclined, resp.StatusCode)
	default:
		return nil, fmt.Errorf("gateway status %d", resp.StatusCode)
	}
}

// FakeGateway approves every charge. Used in development mode and
// tests; Decline switches it to rejecting.
type FakeGateway struct {
	mu       sync.Mutex
	decline  bool
	receipts []Receipt
}

// NewFakeGateway returns an approving fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

// Decline makes subsequent charges fail with ErrPaymentDeclined.
func (g *FakeGateway) Decline(decline bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decline = decline
}

// Receipts returns a copy of all settled charges.
func (g *FakeGateway) Receipts() []Receipt {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Receipt, len(g.receipts))
	copy(out, g.receipts)
	return out
}

func (g *FakeGateway) Charge(_ context.Context, charge Charge) (*Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decline {
		return nil, ErrPaymentDeclined
	}
	receipt := Receipt{
		ChargeID:  charge.ID,
		Reference: "fake-" + uuid.NewString(),
		SettledAt: time.Now().UTC(),
	}
	g.receipts = append(g.receipts, receipt)
	return &receipt, nil
}
