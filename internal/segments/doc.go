// Package segments models the segment and RNA definitions consumed by
// segmentation-fold.
//
// Load reads the shared XML document (segments plus RNA targets with their
// associated segment links). WriteProbeDocument renders the single-segment
// document handed to one oracle invocation.
package segments
