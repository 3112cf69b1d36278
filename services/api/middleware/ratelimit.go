// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond refills each client's bucket. Default: 10.
	RequestsPerSecond float64
	// Burst is the bucket capacity. Default: 20.
	Burst int
	// IdleTimeout evicts buckets not seen for this long. Default: 3m.
	IdleTimeout time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per client. Authenticated
// requests are keyed by user ID, anonymous ones by remote IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	config  RateLimitConfig
}

// NewRateLimiter builds a limiter with defaults filled in.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10
	}
	if config.Burst <= 0 {
		config.Burst = 20
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 3 * time.Minute
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		config:  config,
	}
}

// Middleware aborts with 429 when the client's bucket is empty. Place
// it after Authenticate so logged-in users are keyed by identity.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if info := GetAuthInfo(c); info != nil {
			key = "user:" + info.UserID
		}
		if !rl.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		}
		rl.clients[key] = cl
		// Piggyback eviction on bucket creation to bound the map
		// without a background goroutine.
		rl.evictIdle(now)
	}
	cl.lastSeen = now
	limiter := cl.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// evictIdle removes buckets idle past the timeout. Caller holds mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.config.IdleTimeout {
			delete(rl.clients, key)
		}
	}
}
