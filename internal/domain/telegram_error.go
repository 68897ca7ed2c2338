package domain

import (
	"errors"
	"fmt"
	"time"
)

// TelegramErrorKind is the uniform error taxonomy every Telegram call site
// reports in. The session manager translates vendor errors into these kinds;
// workers branch on the kind, never on provider-specific strings.
type TelegramErrorKind string

const (
	TGErrFloodWait         TelegramErrorKind = "flood_wait"
	TGErrPrivacyRestricted TelegramErrorKind = "privacy_restricted"
	TGErrUserBlocked       TelegramErrorKind = "user_blocked"
	TGErrPeerFlood         TelegramErrorKind = "peer_flood"
	TGErrWriteForbidden    TelegramErrorKind = "write_forbidden"
	TGErrInvalidPeer       TelegramErrorKind = "invalid_peer"
	TGErrUserNotFound      TelegramErrorKind = "user_not_found"
	TGErrInvalidCode       TelegramErrorKind = "invalid_code"
	TGErrCodeExpired       TelegramErrorKind = "code_expired"
	TGErrPasswordNeeded    TelegramErrorKind = "password_needed"
	TGErrInvalidPassword   TelegramErrorKind = "invalid_password"
	TGErrInvalidReaction   TelegramErrorKind = "invalid_reaction"
	TGErrNetwork           TelegramErrorKind = "network"
	TGErrOther             TelegramErrorKind = "other"
)

// TelegramError carries a taxonomy kind plus the vendor message. FloodWait
// additionally carries the server-mandated pause.
type TelegramError struct {
	Kind    TelegramErrorKind
	Wait    time.Duration // only for flood_wait
	Message string
}

func (e *TelegramError) Error() string {
	if e.Kind == TGErrFloodWait {
		return fmt.Sprintf("telegram: flood_wait %s", e.Wait)
	}
	if e.Message == "" {
		return "telegram: " + string(e.Kind)
	}
	return fmt.Sprintf("telegram: %s: %s", e.Kind, e.Message)
}

func NewTelegramError(kind TelegramErrorKind, msg string) *TelegramError {
	return &TelegramError{Kind: kind, Message: msg}
}

func NewFloodWait(wait time.Duration) *TelegramError {
	return &TelegramError{Kind: TGErrFloodWait, Wait: wait}
}

// AsTelegramError unwraps err to a *TelegramError if there is one.
func AsTelegramError(err error) (*TelegramError, bool) {
	var te *TelegramError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// TelegramErrorKindOf classifies err, mapping non-taxonomy errors to other.
func TelegramErrorKindOf(err error) TelegramErrorKind {
	if te, ok := AsTelegramError(err); ok {
		return te.Kind
	}
	return TGErrOther
}

func IsFloodWait(err error) (time.Duration, bool) {
	if te, ok := AsTelegramError(err); ok && te.Kind == TGErrFloodWait {
		return te.Wait, true
	}
	return 0, false
}

// RecipientTerminal reports whether the failure is terminal for the recipient:
// the recipient is marked done and the campaign moves on.
func RecipientTerminal(kind TelegramErrorKind) bool {
	switch kind {
	case TGErrPrivacyRestricted, TGErrUserBlocked, TGErrInvalidPeer, TGErrUserNotFound, TGErrWriteForbidden:
		return true
	}
	return false
}
