package sim

// VehicleState is the observable view of one vehicle, used by renderers.
type VehicleState struct {
	ID        int     `json:"id"`
	Kind      Kind    `json:"kind"`
	Road      Road    `json:"road"`
	Lane      int     `json:"lane"`
	Position  float64 `json:"position"`
	Velocity  float64 `json:"velocity"`
	HasExited bool    `json:"has_exited"`
}

// State is the observable view of the whole simulation after a tick.
type State struct {
	Tick           int64          `json:"tick"`
	Clock          float64        `json:"clock"`
	ActiveVehicles int            `json:"active_vehicles"`
	Congestion     float64        `json:"congestion"`
	Signals        Signals        `json:"signals"`
	Complete       bool           `json:"complete"`
	Vehicles       []VehicleState `json:"vehicles"`
}

// State captures the current observable state. Exited vehicles are included
// with HasExited set so consumers can drop them.
func (s *Simulator) State() State {
	out := State{
		Tick:           s.TickCount,
		Clock:          s.Clock,
		ActiveVehicles: s.ActiveCount(),
		Congestion:     s.Congestion,
		Signals:        s.Signals,
		Complete:       s.Done(),
		Vehicles:       make([]VehicleState, 0, len(s.Vehicles)),
	}
	for _, v := range s.Vehicles {
		out.Vehicles = append(out.Vehicles, VehicleState{
			ID:        v.ID,
			Kind:      v.Kind,
			Road:      v.Road,
			Lane:      v.Lane,
			Position:  v.Position,
			Velocity:  v.Velocity,
			HasExited: v.HasExited,
		})
	}
	return out
}
