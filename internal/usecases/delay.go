package usecases

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Message complexity buckets for the thinking-time component.
const (
	complexitySimple = iota
	complexityNormal
	complexityComplex
)

// readingWordsPerSecond models a 250 words-per-minute reader.
const readingWordsPerSecond = 250.0 / 60.0

// DelayCalculator produces the human-feel pause before an automated reply.
// An instant answer reads as a bot; the delay models reading the client's
// message, thinking, and typing the reply.
type DelayCalculator struct {
	enabled bool
	floor   time.Duration
	ceiling time.Duration
	mu      sync.Mutex
	rng     *rand.Rand
}

func NewDelayCalculator(enabled bool, floor, ceiling time.Duration) *DelayCalculator {
	return &DelayCalculator{
		enabled: enabled,
		floor:   floor,
		ceiling: ceiling,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Compute returns the delay to apply before sending response to inbound.
func (d *DelayCalculator) Compute(inbound, response string) time.Duration {
	if !d.enabled {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	words := len(strings.Fields(inbound))
	reading := float64(words) / readingWordsPerSecond

	var thinking float64
	switch classifyComplexity(inbound) {
	case complexitySimple:
		thinking = d.between(2, 5)
	case complexityComplex:
		thinking = d.between(8, 15)
	default:
		thinking = d.between(4, 10)
	}

	extra := 0.0
	if len(response) > 100 {
		extra = d.between(2, 6)
	}

	typing := float64(len(response)) / 40.0
	if typing < 3 {
		typing = 3
	}
	if typing > 8 {
		typing = 8
	}

	total := reading + thinking + extra + typing
	total *= 1 + (d.rng.Float64()*0.5 - 0.25) // ±25% jitter

	lo, hi := d.floor.Seconds(), d.ceiling.Seconds()
	if total < lo {
		total = lo
	}
	if total > hi {
		total = hi
	}
	return time.Duration(total * float64(time.Second))
}

func (d *DelayCalculator) between(lo, hi float64) float64 {
	return lo + d.rng.Float64()*(hi-lo)
}

func classifyComplexity(s string) int {
	lower := strings.ToLower(s)
	questions := strings.Count(lower, "?")

	topics := 0
	for _, words := range topicKeywords {
		for _, kw := range words {
			if strings.Contains(lower, kw) {
				topics++
				break
			}
		}
	}

	switch {
	case len(s) > 200 || questions >= 2 || topics >= 2:
		return complexityComplex
	case len(s) < 50 && questions == 0:
		return complexitySimple
	default:
		return complexityNormal
	}
}
