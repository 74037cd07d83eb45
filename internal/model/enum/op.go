package enum

// Op identifies a book mutation applied by the simulator.
type Op uint8

const (
	_op_beg Op = iota
	OpMarket
	OpLimit
	OpCancel
	_op_end
)

func (o Op) IsAvailable() bool {
	return o > _op_beg && o < _op_end
}

func (o Op) String() string {
	switch o {
	case OpMarket:
		return "market"
	case OpLimit:
		return "limit"
	case OpCancel:
		return "cancel"
	default:
		return "unknown"
	}
}
