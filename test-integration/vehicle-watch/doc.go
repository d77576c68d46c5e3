// Package integration provides integration tests for the vehicle watcher.
// These tests run the complete application against fake registry and
// stolen-register servers and exercise the HTTP API end to end.
package integration
