package shortcode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

var (
	// ErrTaken is returned by an insert callback when the code already exists.
	ErrTaken = errors.New("short code already taken")
	// ErrGenerationExhausted means no free code was found within the attempt budget.
	ErrGenerationExhausted = errors.New("short code generation exhausted")
)

// InsertFunc persists a record under code and reports ErrTaken on a uniqueness violation.
type InsertFunc func(ctx context.Context, code string) error

// Minter draws codes from a Generator until an insert succeeds or attempts run out.
type Minter struct {
	gen         Generator
	length      int
	maxAttempts int

	mu     sync.Mutex
	filter *bloom.BloomFilter
}

type Option func(*Minter)

// WithLength sets the generated code length.
func WithLength(n int) Option {
	return func(m *Minter) {
		if n > 0 {
			m.length = n
		}
	}
}

// WithMaxAttempts caps how many candidates are tried per Mint call.
func WithMaxAttempts(n int) Option {
	return func(m *Minter) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithBloomFilter enables a local hint of known codes sized for capacity entries.
// A positive test only causes a redraw; the store's unique index stays authoritative.
func WithBloomFilter(capacity uint) Option {
	return func(m *Minter) {
		if capacity > 0 {
			m.filter = bloom.NewWithEstimates(capacity, 0.001)
		}
	}
}

// NewMinter returns a Minter using gen.
func NewMinter(gen Generator, opts ...Option) *Minter {
	if gen == nil {
		gen = NewRandom()
	}
	m := &Minter{
		gen:         gen,
		length:      DefaultLength,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed marks existing codes as known.
func (m *Minter) Seed(codes ...string) {
	if m.filter == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range codes {
		m.filter.AddString(c)
	}
}

func (m *Minter) known(code string) bool {
	if m.filter == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter.TestString(code)
}

// Mint generates candidates and calls insert until it succeeds.
// Errors other than ErrTaken from insert are returned immediately.
func (m *Minter) Mint(ctx context.Context, insert InsertFunc) (string, error) {
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := m.gen.Generate(m.length)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		if m.known(code) {
			continue
		}

		err = insert(ctx, code)
		if err == nil {
			m.Seed(code)
			return code, nil
		}
		if !errors.Is(err, ErrTaken) {
			return "", err
		}
		m.Seed(code)
	}

	return "", fmt.Errorf("%w after %d attempts", ErrGenerationExhausted, m.maxAttempts)
}
