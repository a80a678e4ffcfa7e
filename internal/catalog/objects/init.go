// Package objects registers the built-in CRM objects with the catalog.
// Import it for its side effects.
package objects
