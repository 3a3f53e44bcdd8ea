package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/cinemacal/cinemacal-back/internal/fetch"
)

// stubClient serves canned pages by URL and records every request, so tests
// can assert both parser output and fetch behavior (pagination, detail-page
// memoization).
type stubClient struct {
	pages map[string]string

	mu       sync.Mutex
	requests []string
}

func (c *stubClient) Fetch(_ context.Context, rawURL string, _ fetch.Options) ([]byte, error) {
	c.mu.Lock()
	c.requests = append(c.requests, rawURL)
	c.mu.Unlock()

	page, ok := c.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("no stub page for %s", rawURL)
	}
	return []byte(page), nil
}

func (c *stubClient) requestCount(rawURL string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, r := range c.requests {
		if r == rawURL {
			count++
		}
	}
	return count
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
