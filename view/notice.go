package view

import "github.com/s0up4200/cinerec/catalog"

// Level is the severity of a Notice
type Level int

const (
	LevelSuccess Level = iota
	LevelInfo
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelInfo:
		return "info"
	default:
		return "error"
	}
}

// Notice is a user-facing message produced by an action. Transient notices
// report success and need no follow-up; the rest stay relevant until acted on.
type Notice struct {
	Level     Level
	Text      string
	Transient bool
}

func (n Notice) String() string {
	return n.Text
}

// RatingNotice maps the outcome of submitting a rating to a notice.
// A duplicate rating is informational, not a failure.
func RatingNotice(err error) Notice {
	switch {
	case err == nil:
		return Notice{Level: LevelSuccess, Text: "Rating submitted!", Transient: true}
	case catalog.IsDuplicateRating(err):
		return Notice{Level: LevelInfo, Text: "You already rated this. Use 'cinerec ratings update' to change it."}
	default:
		return Notice{Level: LevelError, Text: "Failed to submit rating."}
	}
}
