package domain

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTweetNotFound   = errors.New("tweet not found")
	ErrMentionNotFound = errors.New("mention not found")
)
