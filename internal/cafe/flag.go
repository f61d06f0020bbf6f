package cafe

// Flag is a tri-state boolean used by proposals, where the zero value means
// the field was not part of the proposal.
type Flag uint8

const (
	FlagUnset Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts a nullable boolean into a Flag.
func FlagOf(b *bool) Flag {
	switch {
	case b == nil:
		return FlagUnset
	case *b:
		return FlagTrue
	default:
		return FlagFalse
	}
}

// IsSet reports whether the flag carries a value.
func (f Flag) IsSet() bool {
	return f == FlagFalse || f == FlagTrue
}

// Ptr returns the flag as a nullable boolean. Unset yields nil.
func (f Flag) Ptr() *bool {
	if !f.IsSet() {
		return nil
	}
	v := f == FlagTrue
	return &v
}

// Or returns the flag's value, or fallback when unset.
func (f Flag) Or(fallback bool) bool {
	if !f.IsSet() {
		return fallback
	}
	return f == FlagTrue
}

func (f Flag) String() string {
	switch f {
	case FlagFalse:
		return "false"
	case FlagTrue:
		return "true"
	default:
		return "unset"
	}
}
