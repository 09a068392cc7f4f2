// Package trace handles recorded signal payloads: compact bundle files
// for storing them, fetchers for loading non-resident channels on
// demand, and strict epochs-by-samples matrix extraction.
package trace
