package dbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// DBusInterface is the inspect interface name.
	DBusInterface = "io.github.jmylchreest.PopupTrack"
	// DBusPath is the inspect object path.
	DBusPath = "/io/github/jmylchreest/PopupTrack"
	// DBusBusName is the default bus name to claim.
	DBusBusName = "io.github.jmylchreest.PopupTrack"
)

// InspectServer implements the io.github.jmylchreest.PopupTrack interface.
type InspectServer struct {
	conn      *dbus.Conn
	logger    *slog.Logger
	inspector Inspector
	busName   string

	mu      sync.Mutex
	running bool
}

// NewInspectServer creates a server reporting on inspector. An empty busName
// uses DBusBusName.
func NewInspectServer(inspector Inspector, busName string, logger *slog.Logger) *InspectServer {
	if logger == nil {
		logger = slog.Default()
	}
	if busName == "" {
		busName = DBusBusName
	}
	return &InspectServer{
		logger:    logger,
		inspector: inspector,
		busName:   busName,
	}
}

// BusName returns the bus name the server claims.
func (s *InspectServer) BusName() string {
	return s.busName
}

// Start connects to the session bus and exports the inspect service.
func (s *InspectServer) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the inspect service on an existing connection.
func (s *InspectServer) StartOn(conn *dbus.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: inspectMethods(),
				Signals: inspectSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", s.busName)
	}

	s.running = true
	s.logger.Info("D-Bus inspect server started", "name", s.busName, "path", DBusPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *InspectServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(s.busName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, DBusPath, DBusInterface)
		// The session bus connection is shared, it is not closed here.
	}

	s.logger.Info("D-Bus inspect server stopped")
	return nil
}

// Stats returns the manager statistics.
// D-Bus method: Stats() -> a{su}
func (s *InspectServer) Stats() (map[string]uint32, *dbus.Error) {
	s.logger.Debug("Stats called")
	return StatsMap(s.inspector.Stats()), nil
}

// Trees returns one entry per registered popup tree.
// D-Bus method: Trees() -> a(ssu)
func (s *InspectServer) Trees() ([]TreeEntry, *dbus.Error) {
	s.logger.Debug("Trees called")
	return TreeEntries(s.inspector.Snapshot()), nil
}

// Dump returns the popup trees as JSON.
// D-Bus method: Dump() -> s
func (s *InspectServer) Dump() (string, *dbus.Error) {
	s.logger.Debug("Dump called")
	data, err := json.Marshal(s.inspector.Snapshot())
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// Status returns a one-line status.
// D-Bus method: Status() -> s
func (s *InspectServer) Status() (string, *dbus.Error) {
	return s.inspector.Status(), nil
}

// Cleanup forces a cleanup pass.
// D-Bus method: Cleanup() -> a{su}
func (s *InspectServer) Cleanup() (map[string]uint32, *dbus.Error) {
	s.logger.Debug("Cleanup called")
	return StatsMap(s.inspector.RunCleanup()), nil
}

// inspectMethods returns the D-Bus method introspection data.
func inspectMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Stats",
			Args: []introspect.Arg{
				{Name: "stats", Type: "a{su}", Direction: "out"},
			},
		},
		{
			Name: "Trees",
			Args: []introspect.Arg{
				{Name: "trees", Type: "a(ssu)", Direction: "out"},
			},
		},
		{
			Name: "Dump",
			Args: []introspect.Arg{
				{Name: "json", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "status", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Cleanup",
			Args: []introspect.Arg{
				{Name: "stats", Type: "a{su}", Direction: "out"},
			},
		},
	}
}

// inspectSignals returns the D-Bus signal introspection data.
func inspectSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "CleanupRan",
			Args: []introspect.Arg{
				{Name: "trees", Type: "u"},
				{Name: "popups", Type: "u"},
			},
		},
	}
}
