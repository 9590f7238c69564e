package service

import "errors"

// 业务错误定义
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrPollNotFound      = errors.New("poll not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrPollClosed        = errors.New("poll is closed")
	ErrAlreadyVoted      = errors.New("user already voted")
)
