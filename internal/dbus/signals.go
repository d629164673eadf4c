package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/popuptrack/internal/popup"
)

// EmitCleanupRan emits the CleanupRan signal with the stats left after a
// cleanup pass.
func (s *InspectServer) EmitCleanupRan(st popup.Stats) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+".CleanupRan", uint32(st.Trees), uint32(st.Popups))
	if err != nil {
		return fmt.Errorf("failed to emit CleanupRan signal: %w", err)
	}

	s.logger.Debug("emitted CleanupRan signal", "trees", st.Trees, "popups", st.Popups)
	return nil
}

// Connection returns the underlying D-Bus connection.
func (s *InspectServer) Connection() *dbus.Conn {
	return s.conn
}
