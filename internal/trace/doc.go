// Package trace replays recorded protocol traffic against a popup manager.
//
// A trace is a YAML document listing surface, popup, commit and grab events
// in the order a compositor would see them. The Runner applies each event,
// records what the popup core did in response (grab outcomes, popup_done
// notifications, protocol errors) and snapshots the resulting popup trees.
package trace
