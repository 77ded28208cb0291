package domain

// ActionType discriminates units of work submitted to the action queue.
type ActionType string

const (
	ActionAdd     ActionType = "Add"
	ActionRemove  ActionType = "Remove"
	ActionAddMany ActionType = "AddMany"
	ActionOpen    ActionType = "Open"
)

// Action is a unit of work for the action queue. Exactly one payload field is
// set, matching Type. Done, when non-nil, is invoked once with the terminal
// error (nil on success); for AddMany it fires only after the last element
// settles. OnClosed applies to Open only and fires when the underlying stream
// connection closes for any reason.
type Action struct {
	Type     ActionType
	Tweet    *RawTweet
	Tweets   []*RawTweet
	Removal  *StatusRemoval
	Open     *OpenRequest
	Done     func(error)
	OnClosed func()
}

// OpenRequest asks for a live stream for the given platform user.
type OpenRequest struct {
	TwitterID string
}
