package domain

const (
	channelPrefix = "dm"
	channelSep    = "#"
)

// ChannelID is the canonical conversation key for an unordered pair of users.
// It is always computed, never persisted on its own and never client-supplied.
type ChannelID string

// NewChannelID derives the same id for (a,b) and (b,a).
// The separator is rejected inside user ids, so distinct pairs cannot collide.
func NewChannelID(a, b UserID) (ChannelID, error) {
	if err := ValidateUserID(a); err != nil {
		return "", err
	}
	if err := ValidateUserID(b); err != nil {
		return "", err
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	return ChannelID(channelPrefix + channelSep + string(lo) + channelSep + string(hi)), nil
}
