package hlm

// PageId identifies the finest-grained lockable resource.
type PageId uint64

// MidId identifies a mid-level resource group, e.g. a database.
type MidId uint32

// Mode is the hold mode at the top and mid levels.
type Mode int8

const (
	None      Mode = 0
	Shared    Mode = 1
	Exclusive Mode = -1
)

// Tag values with conventional meaning. Any other int is allowed.
const (
	TagNone = 0
	TagKeep = 1
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "invalid"
	}
}

func modeOf(exclusive bool) Mode {
	if exclusive {
		return Exclusive
	}
	return Shared
}
