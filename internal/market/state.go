package market

type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Valid reports membership only. Any valid state may be set from any other by
// the owning vendor; there is no adjacency table. If stricter transition rules
// are ever wanted they belong in Service.UpdateOrderState, the single
// mutation point.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateCompleted, StateCancelled:
		return true
	}
	return false
}
