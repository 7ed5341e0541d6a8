// Package config loads the manifest-pr settings file and
// applies environment overrides.
//
// Settings are read-only: the file is authored by hand and
// never written back.
package config
