package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected        = errors.New("wallet not connected")
	ErrVotingClosed        = errors.New("voting closed")
	ErrAlreadyVoted        = errors.New("already voted this round")
	ErrProviderUnavailable = errors.New("wallet provider unavailable")
	ErrUserRejected        = errors.New("wallet connection rejected")
	ErrInvalidOption       = errors.New("invalid vote option")
	ErrEngineStopped       = errors.New("round engine stopped")

	ErrProviderMissing  = fmt.Errorf("%w: provider not detected", ErrProviderUnavailable)
	ErrProviderNotKnown = fmt.Errorf("%w: provider is not phantom", ErrProviderUnavailable)
)

// NoticeFor maps a rejection to the notice shown for it. ok is false for
// errors that are not surfaced to the user.
func NoticeFor(err error) (kind NoticeKind, message string, ok bool) {
	switch {
	case errors.Is(err, ErrNotConnected):
		return NoticeNotConnected, MsgNotConnected, true
	case errors.Is(err, ErrVotingClosed):
		return NoticeVotingClosed, MsgVotingClosed, true
	case errors.Is(err, ErrAlreadyVoted):
		return NoticeAlreadyVoted, MsgAlreadyVoted, true
	case errors.Is(err, ErrProviderMissing):
		return NoticeProviderUnavailable, MsgProviderMissing, true
	case errors.Is(err, ErrProviderUnavailable):
		return NoticeProviderUnavailable, MsgProviderNotKnown, true
	}
	return "", "", false
}
