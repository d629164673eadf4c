// Package daemon keeps a popup manager alive for inspection. It replays
// traces into the manager and reclaims dead popups and grabs on a
// configurable interval.
package daemon
