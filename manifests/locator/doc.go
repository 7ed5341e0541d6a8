// Package locator resolves human-typed package identifiers to the
// exactly-cased directories of a manifest repository.
//
// Manifests live under <root>/<first letter>/<Segment>/<Segment>/.../
// <version>/. Locate descends one identifier segment at a time, matching
// directory names case-insensitively and returning the stored casing.
// ResolveVersion then picks a version directory, either the one named
// or the numerically greatest.
package locator
