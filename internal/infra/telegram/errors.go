package telegram

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/gotd/td/tgerr"

	"telegram-fleet/internal/domain"
)

// rpcKinds maps MTProto error types onto the taxonomy workers branch on.
// FLOOD_WAIT is handled separately because it carries a duration.
var rpcKinds = map[string]domain.TelegramErrorKind{
	"PEER_FLOOD":              domain.TGErrPeerFlood,
	"USER_PRIVACY_RESTRICTED": domain.TGErrPrivacyRestricted,
	"USER_IS_BLOCKED":         domain.TGErrUserBlocked,
	"YOU_BLOCKED_USER":        domain.TGErrUserBlocked,
	"CHAT_WRITE_FORBIDDEN":    domain.TGErrWriteForbidden,
	"CHAT_ADMIN_REQUIRED":     domain.TGErrWriteForbidden,
	"PEER_ID_INVALID":         domain.TGErrInvalidPeer,
	"INPUT_USER_DEACTIVATED":  domain.TGErrUserNotFound,
	"USERNAME_NOT_OCCUPIED":   domain.TGErrUserNotFound,
	"USERNAME_INVALID":        domain.TGErrUserNotFound,
	"PHONE_CODE_INVALID":      domain.TGErrInvalidCode,
	"PHONE_CODE_EXPIRED":      domain.TGErrCodeExpired,
	"SESSION_PASSWORD_NEEDED": domain.TGErrPasswordNeeded,
	"PASSWORD_HASH_INVALID":   domain.TGErrInvalidPassword,
	"REACTION_INVALID":        domain.TGErrInvalidReaction,
}

// mapError translates a gotd error into the domain taxonomy. nil stays nil;
// anything unrecognized comes back as kind other so callers always get a
// *domain.TelegramError.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return domain.NewFloodWait(wait)
	}
	for typ, kind := range rpcKinds {
		if tgerr.Is(err, typ) {
			return domain.NewTelegramError(kind, err.Error())
		}
	}
	if isNetworkError(err) {
		return domain.NewTelegramError(domain.TGErrNetwork, err.Error())
	}
	return domain.NewTelegramError(domain.TGErrOther, err.Error())
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
