// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"net"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const rateLimiterCacheSize = 4096

// rateLimiter keeps a token bucket per client address. The least
// recently seen clients are evicted once the cache is full.
type rateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
}

func newRateLimiter(perSecond float64, burst int) (*rateLimiter, error) {
	clients, err := lru.New[string, *rate.Limiter](rateLimiterCacheSize)
	if err != nil {
		return nil, err
	}
	if burst < 1 {
		burst = max(1, int(perSecond))
	}
	return &rateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: clients,
	}, nil
}

func (r *rateLimiter) allow(client string) bool {
	limiter, ok := r.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		// Another request may have added the client concurrently
		if prev, found, _ := r.clients.PeekOrAdd(client, limiter); found {
			limiter = prev
		}
	}
	return limiter.Allow()
}

func clientKey(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func (r *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.allow(clientKey(req)) {
			writeError(
				w,
				http.StatusTooManyRequests,
				"Too Many Requests",
				ErrTooManyRequests.Error(),
			)
			return
		}
		next.ServeHTTP(w, req)
	})
}
