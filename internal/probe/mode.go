package probe

// Mode is the kind of probe selected for an invocation.
type Mode string

const (
	ModeNone  Mode = ""
	ModeCold  Mode = "cold"
	ModeRed   Mode = "red"
	ModeGreen Mode = "green"
)

func (m Mode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}
