// Package allocation suggests how much of each held token to sell to raise
// a USD amount while keeping the portfolio diversified.
package allocation

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"divvy/pkg/logger"
)

const (
	DefaultMaxAttempts     = 1000
	DefaultDiversityFactor = 0.33
	// Relative distance to the target a suggestion must be within
	Tolerance = 0.0001
	// Targets are expressed in millionths of a USD
	MicroUSD = 1_000_000
)

// Options tune the random search
type Options struct {
	MaxAttempts     int
	DiversityFactor float64
	Rand            *rand.Rand
}

// DefaultOptions uses a time-seeded generator
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     DefaultMaxAttempts,
		DiversityFactor: DefaultDiversityFactor,
		Rand:            rand.New(rand.NewSource(rand.Int63())),
	}
}

// Suggest returns token quantities whose USD value is within Tolerance of
// targetMicroUSD. With several tokens no more than DiversityFactor of any
// single balance is used. An empty map means no acceptable suggestion was
// found, including when a token has no price.
func Suggest(balances map[string]float64, targetMicroUSD int64, prices map[string]float64, opts Options) map[string]float64 {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.DiversityFactor <= 0 {
		opts.DiversityFactor = DefaultDiversityFactor
	}
	if opts.Rand == nil {
		opts.Rand = DefaultOptions().Rand
	}

	target := float64(targetMicroUSD) / MicroUSD
	if target <= 0 {
		return map[string]float64{}
	}

	tokens := make([]string, 0, len(balances))
	for token := range balances {
		if _, ok := prices[token]; ok {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) != len(balances) {
		logger.Error("missing price for some tokens",
			zap.Int("tokens", len(balances)),
			zap.Int("priced", len(tokens)))
		return map[string]float64{}
	}
	// Map order is random; sort so a seeded generator reproduces results
	sort.Strings(tokens)

	multiple := len(tokens) > 1
	best := map[string]float64{}
	minDifference := math.Inf(1)

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		solution := make(map[string]float64)
		current := 0.0

		opts.Rand.Shuffle(len(tokens), func(i, j int) { tokens[i], tokens[j] = tokens[j], tokens[i] })

		for _, token := range tokens {
			if current >= target {
				break
			}

			price := prices[token]
			if price <= 0 {
				continue
			}

			maxQuantity := balances[token]
			if multiple {
				maxQuantity *= opts.DiversityFactor
			}

			quantity := math.Min(maxQuantity, math.Min((target-current)/price, balances[token]))
			if multiple {
				quantity = opts.Rand.Float64() * quantity
			}

			if quantity > 0 {
				solution[token] = quantity
				current += quantity * price
			}
		}

		difference := math.Abs(current - target)
		if difference/target < Tolerance && difference < minDifference {
			minDifference = difference
			best = solution
		}
	}

	return best
}

// USDValue prices a set of quantities
func USDValue(quantities, prices map[string]float64) float64 {
	total := 0.0
	for token, quantity := range quantities {
		total += quantity * prices[token]
	}
	return total
}
