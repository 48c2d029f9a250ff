package decim

import "fmt"

// MaxDecimation is the largest power-of-two decimation factor the chain
// will build (spec.md §4.3).
const MaxDecimation = 512

// tier picks the tap-count schedule for a requested stop-band attenuation,
// one decision per remaining-decimation step, shortest kernel first (spec.md
// §4.3: "longer kernels for the last stages... fast 11-tap... for early
// stages").
type tier struct {
	attenDB float64
	// pick returns the tap count to use for a stage given how much
	// decimation remains to be done from this stage onward (inclusive).
	pick func(remaining int) int
}

var tiers = []tier{
	{
		attenDB: 70,
		pick: func(remaining int) int {
			if remaining >= 4 {
				return 11
			}
			return 39
		},
	},
	{
		attenDB: 100,
		pick: func(remaining int) int {
			switch {
			case remaining >= 8:
				return 11
			case remaining == 4:
				return 19
			default:
				return 59
			}
		},
	},
	{
		attenDB: 140,
		pick: func(remaining int) int {
			switch {
			case remaining >= 16:
				return 11
			case remaining == 8:
				return 15
			case remaining == 4:
				return 27
			default:
				return 87
			}
		},
	},
}

func pickTier(attenDB float64) tier {
	for _, t := range tiers {
		if attenDB <= t.attenDB {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// Chain is a cascade of HalfBand stages implementing an overall power-of-two
// decimation.
type Chain struct {
	stages []*HalfBand
	factor int
}

// NewChain builds a cascade decimating by factor (a power of two in
// [2, MaxDecimation]) targeting attenDB of stop-band attenuation.
func NewChain(factor int, attenDB float64) (*Chain, error) {
	if factor < 2 || factor > MaxDecimation || factor&(factor-1) != 0 {
		return nil, fmt.Errorf("decim: factor %d must be a power of two in [2, %d]", factor, MaxDecimation)
	}

	t := pickTier(attenDB)
	var stages []*HalfBand
	for remaining := factor; remaining >= 2; remaining /= 2 {
		stages = append(stages, NewHalfBand(t.pick(remaining), t.attenDB))
	}

	return &Chain{stages: stages, factor: factor}, nil
}

// Factor returns the chain's overall decimation factor.
func (c *Chain) Factor() int {
	return c.factor
}

// MaxFIRLen returns the longest single-stage tap count in the cascade; a
// caller must supply at least this many samples per Process call for the
// first stage to produce any output (spec.md §4.3).
func (c *Chain) MaxFIRLen() int {
	max := 0
	for _, s := range c.stages {
		if s.Len() > max {
			max = s.Len()
		}
	}
	return max
}

// Process runs in through every stage in the cascade in place (reusing in as
// scratch between stages) and returns the number of samples emitted, which
// is N/factor in the steady state, within +/-1 as stages fill their internal
// history on the first few calls (spec.md §8).
func (c *Chain) Process(in []complex64) int {
	n := len(in)
	for _, s := range c.stages {
		n = s.Process(in[:n], in)
	}
	return n
}
