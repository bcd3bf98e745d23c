package executor

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

const emailAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// valueGenerator synthesizes throwaway form values
type valueGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newValueGenerator(seed int64) *valueGenerator {
	return &valueGenerator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate - returns a plausible value for the field name
func (g *valueGenerator) Generate(field string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := strings.ToLower(field)
	switch {
	case strings.Contains(name, "email"):
		b := make([]byte, 8)
		for i := range b {
			b[i] = emailAlphabet[g.rnd.Intn(len(emailAlphabet))]
		}
		return fmt.Sprintf("temp_%s@example.com", b)
	case strings.Contains(name, "phone"):
		return fmt.Sprintf("+91%d", 7000000000+g.rnd.Int63n(3000000000))
	default:
		return fmt.Sprintf("test_%d", 1000+g.rnd.Intn(9000))
	}
}
