// Package bisect locates the segment energies at which the oracle changes its
// predicted structure.
//
// A search starts from [-k*L, +k*L] for a sequence of length L, probes both
// bounds and compares them under the configured metric. Equal bounds end the
// branch. Diverging bounds are halved until the interval is narrower than the
// precision, and each such leaf yields one Transition at its midpoint.
// Results are ordered from low to high energy.
package bisect
