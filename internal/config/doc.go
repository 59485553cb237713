// Package config loads, normalizes, and validates energysplit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SEGMENTATION_FOLD environment
// fallback for the oracle binary. The Config type centralizes every knob the
// CLI and the estimate run need so the temp namespace, segment document and
// search parameters are resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
