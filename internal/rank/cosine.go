package rank

// Cosine returns the cosine similarity of two sparse vectors in [0,1].
// A zero-magnitude vector (no terms, or no weighted terms) yields 0 by
// definition rather than an error. The result is symmetric.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}

	dot := 0.0
	for t, wa := range a {
		if wb, ok := b[t]; ok {
			dot += wa * wb
		}
	}
	if dot == 0 {
		return 0
	}

	na := a.Magnitude()
	nb := b.Magnitude()
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (na * nb)
	// Guard against float drift above 1 on identical vectors.
	if sim > 1 {
		sim = 1
	}
	if sim < 0 {
		sim = 0
	}
	return sim
}
