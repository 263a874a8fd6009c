package core

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
)

// GeneCount is the number of tunable predictor weights in a candidate.
const GeneCount = 8

// Gene bounds. Predictor weights are small non-negative integers baked into
// the compressor's context model.
const (
	MinGene = 0
	MaxGene = 15
)

// Vector is a candidate assignment of the eight predictor weights. It is a
// plain value type: copies are independent, and two vectors with identical
// genes compare equal, so a Vector can be used directly as a map key.
type Vector [GeneCount]int

// NewVector builds a Vector from genes, validating count and bounds.
func NewVector(genes []int) (Vector, error) {
	var v Vector
	if len(genes) != GeneCount {
		return v, errors.WithFields(
			errors.New(errors.InvalidInput, "weight vector requires exactly 8 genes"),
			errors.Fields{"genes": len(genes)},
		)
	}
	for i, g := range genes {
		if g < MinGene || g > MaxGene {
			return v, errors.WithFields(
				errors.New(errors.InvalidInput, "gene out of range"),
				errors.Fields{"position": i, "value": g},
			)
		}
		v[i] = g
	}
	return v, nil
}

// Neutral returns the baseline vector: every predictor at full weight. This
// mirrors the equal weighting the compressor ships with and seeds every
// initial population so the search never regresses below the status quo.
func Neutral() Vector {
	var v Vector
	for i := range v {
		v[i] = MaxGene
	}
	return v
}

// RandomVector draws a uniformly random vector from rng. Each gene is drawn
// independently over the full [MinGene, MaxGene] range.
func RandomVector(rng *rand.Rand) Vector {
	var v Vector
	for i := range v {
		v[i] = MinGene + rng.Intn(MaxGene-MinGene+1)
	}
	return v
}

// Key renders the canonical identity of the vector, "w" followed by the
// underscore-joined genes (e.g. "w15_15_15_15_15_15_15_15"). Cache entries,
// archive rows and per-candidate work directories all use this form.
func (v Vector) Key() string {
	var b strings.Builder
	b.WriteByte('w')
	for i, g := range v {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(strconv.Itoa(g))
	}
	return b.String()
}

// String renders the vector for humans, e.g. "[15 15 15 15 15 15 15 15]".
func (v Vector) String() string {
	genes := make([]string, GeneCount)
	for i, g := range v {
		genes[i] = strconv.Itoa(g)
	}
	return "[" + strings.Join(genes, " ") + "]"
}

// Genes returns the genes as a fresh slice, convenient for callers that need
// to feed the weights to templated command lines or serialization.
func (v Vector) Genes() []int {
	genes := make([]int, GeneCount)
	copy(genes, v[:])
	return genes
}

// ParseVector is the inverse of Key. It accepts the canonical "w..." form as
// well as the bare underscore-joined genes.
func ParseVector(s string) (Vector, error) {
	var v Vector
	trimmed := strings.TrimPrefix(s, "w")
	parts := strings.Split(trimmed, "_")
	if len(parts) != GeneCount {
		return v, errors.WithFields(
			errors.New(errors.InvalidInput, "malformed weight key"),
			errors.Fields{"key": s},
		)
	}
	genes := make([]int, GeneCount)
	for i, p := range parts {
		g, err := strconv.Atoi(p)
		if err != nil {
			return v, errors.WithFields(
				errors.Wrap(err, errors.InvalidInput, "malformed weight key"),
				errors.Fields{"key": s},
			)
		}
		genes[i] = g
	}
	return NewVector(genes)
}
