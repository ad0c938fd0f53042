package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// EmitStateChanged emits StateChanged when st differs from the last state
// emitted. It reports whether a signal went out.
func (s *ControlServer) EmitStateChanged(st State) (bool, error) {
	s.mu.Lock()
	if !s.running || s.conn == nil || (s.emitted && s.last == st) {
		s.mu.Unlock()
		return false, nil
	}
	s.last, s.emitted = st, true
	s.mu.Unlock()

	err := s.conn.Emit(Path, Interface+".StateChanged", int32(st.Current), st.Active, st.Mode)
	if err != nil {
		return false, fmt.Errorf("failed to emit StateChanged signal: %w", err)
	}

	s.logger.Debug("emitted StateChanged signal", "workspace", st.Current, "active", fmt.Sprintf("0x%x", st.Active), "mode", st.Mode)
	return true, nil
}

// Connection returns the underlying D-Bus connection.
func (s *ControlServer) Connection() *dbus.Conn {
	return s.conn
}

// parseStateChanged decodes the body of a StateChanged signal.
func parseStateChanged(sig *dbus.Signal) (State, bool) {
	if sig == nil || sig.Name != Interface+".StateChanged" || len(sig.Body) < 3 {
		return State{}, false
	}
	ws, ok1 := sig.Body[0].(int32)
	active, ok2 := sig.Body[1].(uint32)
	mode, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return State{}, false
	}
	return State{Current: int(ws), Active: active, Mode: mode}, true
}
