// Package dbus exposes a running popup tracker on the session bus. The
// inspect interface reports manager statistics, dumps the current popup
// trees and can force a cleanup pass. A CleanupRan signal is emitted after
// every pass.
package dbus
