// Population spawning: splits the configured head count across demographics,
// draws incomes and balances, and assigns starting employers.
package agents

import (
	"cmp"
	"maps"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

// Spawner creates persons for a model.
type Spawner struct {
	rng    *rand.Rand
	nextID PersonID
}

// NewSpawner creates a spawner drawing from rng. The model shares its own
// generator so a seed reproduces the whole run.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{rng: rng, nextID: 1}
}

// AllocateCounts splits total across proportions with the largest-remainder
// method. The counts always sum to total.
func AllocateCounts(total int, proportions []float64) []int {
	counts := make([]int, len(proportions))
	sum := 0.0
	for _, p := range proportions {
		sum += math.Max(0, p)
	}
	if total <= 0 || sum <= 0 {
		return counts
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, len(proportions))
	assigned := 0
	for i, p := range proportions {
		quota := float64(total) * math.Max(0, p) / sum
		counts[i] = int(math.Floor(quota))
		assigned += counts[i]
		rems[i] = remainder{i, quota - math.Floor(quota)}
	}
	slices.SortStableFunc(rems, func(a, b remainder) int { return cmp.Compare(b.frac, a.frac) })
	for i := 0; assigned < total; i++ {
		counts[rems[i%len(rems)].idx]++
		assigned++
	}
	return counts
}

// LognormalParams returns the log-space mu and sigma whose lognormal has the
// given arithmetic mean and standard deviation.
func LognormalParams(mean, sd float64) (mu, sigma float64) {
	if mean <= 0 {
		return math.Inf(-1), 0
	}
	s2 := math.Log(1 + (sd*sd)/(mean*mean))
	return math.Log(mean) - s2/2, math.Sqrt(s2)
}

// Lognormal draws a positive value with the given mean and standard
// deviation. Non-positive means yield 0.
func (s *Spawner) Lognormal(d config.Distribution) float64 {
	if d.Mean <= 0 {
		return 0
	}
	if d.SD <= 0 {
		return d.Mean
	}
	mu, sigma := LognormalParams(d.Mean, d.SD)
	return distuv.LogNormal{Mu: mu, Sigma: sigma, Src: s.rng}.Rand()
}

// SpawnPopulation creates cfg.NumPeople persons. Within each demographic
// round(count × unemployment rate) persons start unemployed; everyone else is
// assigned round-robin to industries in declaration order.
func (s *Spawner) SpawnPopulation(cfg *config.ModelConfig) []*Person {
	demographics := economy.AllDemographics()
	proportions := make([]float64, len(demographics))
	for i, d := range demographics {
		proportions[i] = cfg.Demographics[d].Proportion
	}
	counts := AllocateCounts(cfg.NumPeople, proportions)

	industries := economy.AllIndustries()
	next := 0
	people := make([]*Person, 0, cfg.NumPeople)
	for i, d := range demographics {
		dc := cfg.Demographics[d]
		n := counts[i]
		unemployed := int(math.Round(float64(n) * dc.UnemploymentRate))

		// The first `unemployed` entries of a random permutation stay jobless.
		order := s.rng.Perm(n)
		batch := make([]*Person, n)
		for j := range batch {
			batch[j] = s.spawnOne(d, dc)
		}
		for rank, j := range order {
			if rank < unemployed {
				continue
			}
			t := industries[next%len(industries)]
			next++
			batch[j].Employer = &t
		}
		people = append(people, batch...)
	}
	return people
}

func (s *Spawner) spawnOne(d economy.Demographic, dc config.DemographicConfig) *Person {
	id := s.nextID
	s.nextID++

	sigma := dc.Sigma
	if sigma <= 0 {
		sigma = config.DefaultSigma(d)
	}
	return &Person{
		ID:              id,
		Demographic:     d,
		Income:          s.Lognormal(dc.Income),
		Balance:         s.Lognormal(dc.Balance),
		Preferences:     maps.Clone(dc.SpendingBehavior),
		Sigma:           sigma,
		IndustrySavings: make(map[economy.IndustryType]float64, economy.NumIndustries),
	}
}
