// Package catalog holds the immutable table of building definitions.
//
// The built-in table is embedded from buildings.yaml and exposed through
// Default. Each Definition carries a Profile whose concrete type depends on
// the building category; income is computed through the profile.
package catalog
