// Package version orders package version strings the way a manifest
// repository expects: dot-separated parts compared numerically one by
// one, missing parts counting as zero. "1.10.0" sorts after "1.9.0",
// and "1.0" equals "1.0.0".
package version
