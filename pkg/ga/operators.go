package ga

import (
	"math/rand"
	"sort"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
)

// initialPopulation builds generation zero: the baseline vector first, then
// random vectors until the population is full.
func (g *GA) initialPopulation() []core.Vector {
	population := make([]core.Vector, 0, g.config.PopulationSize)
	population = append(population, g.config.baseline())
	for len(population) < g.config.PopulationSize {
		population = append(population, core.RandomVector(g.rng))
	}
	return population
}

// nextGeneration breeds a full successor population: elites carried over
// unchanged, the remainder filled by tournament pairs run through crossover
// and mutation. Both children of a pairing are always mutated; the second is
// discarded when the population is already full.
func (g *GA) nextGeneration(population []core.Vector, fitnesses []float64) []core.Vector {
	next := make([]core.Vector, 0, g.config.PopulationSize)
	next = append(next, g.elites(population, fitnesses)...)

	for len(next) < g.config.PopulationSize {
		parent1 := g.tournamentSelection(population, fitnesses)
		parent2 := g.tournamentSelection(population, fitnesses)

		child1, child2 := g.crossover(parent1, parent2)

		child1 = g.mutate(child1)
		child2 = g.mutate(child2)

		next = append(next, child1)
		if len(next) < g.config.PopulationSize {
			next = append(next, child2)
		}
	}
	return next
}

// elites returns the top candidates by fitness. The sort is stable, so equal
// fitness keeps population order.
func (g *GA) elites(population []core.Vector, fitnesses []float64) []core.Vector {
	order := make([]int, len(population))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fitnesses[order[a]] > fitnesses[order[b]]
	})

	out := make([]core.Vector, 0, g.config.ElitismCount)
	for _, idx := range order[:g.config.ElitismCount] {
		out = append(out, population[idx])
	}
	return out
}

// tournamentSelection draws TournamentSize distinct candidates and returns
// the fittest. A tie goes to the earliest-drawn contender.
func (g *GA) tournamentSelection(population []core.Vector, fitnesses []float64) core.Vector {
	picks := sampleIndices(g.rng, len(population), g.config.TournamentSize)
	best := picks[0]
	for _, idx := range picks[1:] {
		if fitnesses[idx] > fitnesses[best] {
			best = idx
		}
	}
	return population[best]
}

// crossover rolls once against CrossoverRate; on a hit each gene position is
// swapped between the children with probability 1/2. The rate roll is always
// consumed so the random stream does not depend on its outcome.
func (g *GA) crossover(parent1, parent2 core.Vector) (core.Vector, core.Vector) {
	child1, child2 := parent1, parent2
	if g.rng.Float64() < g.config.CrossoverRate {
		for i := 0; i < core.GeneCount; i++ {
			if g.rng.Intn(2) == 1 {
				child1[i], child2[i] = child2[i], child1[i]
			}
		}
	}
	return child1, child2
}

// mutate rolls each gene position against MutationRate and redraws triggered
// positions uniformly from the gene range. A redraw may reproduce the old
// value.
func (g *GA) mutate(candidate core.Vector) core.Vector {
	for i := 0; i < core.GeneCount; i++ {
		if g.rng.Float64() < g.config.MutationRate {
			candidate[i] = core.MinGene + g.rng.Intn(core.MaxGene-core.MinGene+1)
		}
	}
	return candidate
}

// sampleIndices draws k distinct indices from [0, n) by a partial
// Fisher-Yates shuffle.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
