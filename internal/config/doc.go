// Package config loads the bridge's server catalog from a single JSON file
// and validates it strictly: any schema violation yields an empty catalog
// rather than a partial one, so "malformed config" and "no server
// configured" are indistinguishable to callers.
package config
