package valueobjects

// AccessLevel describes the level of product access derived from billing state.
type AccessLevel string

const (
	AccessLevelFull  AccessLevel = "full"
	AccessLevelTrial AccessLevel = "trial"
	AccessLevelNone  AccessLevel = "none"
)

// String returns the string representation of the access level
func (a AccessLevel) String() string {
	return string(a)
}
