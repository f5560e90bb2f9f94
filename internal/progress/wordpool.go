package progress

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// WordPool splits a sentence builder's options between the assembled
// sequence and the tokens still available. Every option is in exactly one of
// the two at all times.
type WordPool struct {
	options   []string
	available []string
	assembled []string
}

// NewWordPool starts with every option available.
func NewWordPool(options []string) *WordPool {
	return &WordPool{
		options:   slices.Clone(options),
		available: slices.Clone(options),
	}
}

// RestoreWordPool rebuilds a pool with assembled already placed. It fails if
// assembled cannot be drawn from options.
func RestoreWordPool(options, assembled []string) (*WordPool, error) {
	p := NewWordPool(options)
	for _, t := range assembled {
		if !p.Place(t) {
			return nil, fmt.Errorf("token %q is not available", t)
		}
	}
	return p, nil
}

// Place moves the first available occurrence of token to the end of the
// assembled sequence.
func (p *WordPool) Place(token string) bool {
	i := slices.Index(p.available, token)
	if i < 0 {
		return false
	}
	p.available = slices.Delete(p.available, i, i+1)
	p.assembled = append(p.assembled, token)
	return true
}

// Return moves the first assembled occurrence of token back to the pool.
func (p *WordPool) Return(token string) bool {
	i := slices.Index(p.assembled, token)
	if i < 0 {
		return false
	}
	p.assembled = slices.Delete(p.assembled, i, i+1)
	p.available = append(p.available, token)
	return true
}

// Undo returns the most recently placed token to the pool.
func (p *WordPool) Undo() (string, bool) {
	if len(p.assembled) == 0 {
		return "", false
	}
	last := p.assembled[len(p.assembled)-1]
	p.assembled = p.assembled[:len(p.assembled)-1]
	p.available = append(p.available, last)
	return last, true
}

// Clear returns every assembled token to the pool.
func (p *WordPool) Clear() {
	p.available = append(p.available, p.assembled...)
	p.assembled = nil
}

// Assembled returns the learner's word order.
func (p *WordPool) Assembled() []string { return slices.Clone(p.assembled) }

// Available returns the remaining tokens in option order.
func (p *WordPool) Available() []string {
	remaining := slices.Clone(p.options)
	for _, t := range p.assembled {
		if i := slices.Index(remaining, t); i >= 0 {
			remaining = slices.Delete(remaining, i, i+1)
		}
	}
	return remaining
}

// Shuffled returns the remaining tokens in random order so the display does
// not leak the sentence order.
func (p *WordPool) Shuffled(r *rand.Rand) []string {
	out := p.Available()
	shuffle := rand.Shuffle
	if r != nil {
		shuffle = r.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Submission returns the assembled sequence as a submission.
func (p *WordPool) Submission() Tokens { return Tokens(p.Assembled()) }

// Empty reports whether nothing has been assembled yet.
func (p *WordPool) Empty() bool { return len(p.assembled) == 0 }

// CheckPartition verifies that assembled and available together are exactly
// the options, counted with multiplicity.
func (p *WordPool) CheckPartition() error {
	counts := make(map[string]int, len(p.options))
	for _, t := range p.options {
		counts[t]++
	}
	for _, t := range p.assembled {
		counts[t]--
	}
	for _, t := range p.available {
		counts[t]--
	}
	for t, n := range counts {
		if n != 0 {
			return fmt.Errorf("token %q off by %d", t, n)
		}
	}
	return nil
}
