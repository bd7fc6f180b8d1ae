package heat

import (
	"math/rand/v2"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
)

// Option configures a Model at construction.
type Option func(*Model)

// WithRand sets the random source used to seed the initial field.
func WithRand(r *rand.Rand) Option {
	return func(m *Model) { m.rng = r }
}

// WithSeed seeds the initial field deterministically.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewPCG(uint64(seed), 0)))
}

// WithLogger routes lifecycle logging to l.
func WithLogger(l hclog.Logger) Option {
	return func(m *Model) { m.log = l.Named("heat") }
}

// WithFS sets the filesystem configuration files are read from.
func WithFS(fs afero.Fs) Option {
	return func(m *Model) { m.fs = fs }
}
