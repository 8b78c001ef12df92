// Package matcher turns raw peer file listings into scored, metadata-enriched
// candidates and groups them into album bundles.
//
// Everything here is a pure function of its input: scoring the same listing twice
// yields the same result, and nothing touches the network or the filesystem.
package matcher
