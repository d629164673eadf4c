// Package surface models the protocol-side surface object the popup core
// works against: identity, role, liveness, per-surface side data and the
// protocol error channel a client sees.
package surface
