package useragent

import (
	"math/rand/v2"
)

var desktopAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// Rotator hands out a random desktop User-Agent per page.
type Rotator struct {
	agents []string
}

// NewRotator returns a rotator over agents, or over the built-in desktop set if none are given.
func NewRotator(agents ...string) *Rotator {
	if len(agents) == 0 {
		agents = desktopAgents
	}
	return &Rotator{agents: agents}
}

// Next returns a random user agent string.
func (r *Rotator) Next() string {
	if r == nil || len(r.agents) == 0 {
		return ""
	}
	return r.agents[rand.IntN(len(r.agents))]
}
