package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"telegram-fleet/internal/domain"
	"telegram-fleet/internal/domain/model"
	"telegram-fleet/internal/domain/ports/adapter"
)

var _ adapter.Session = (*session)(nil)

// session is one held lease. All entry points translate errors through
// mapError so callers only ever see the domain taxonomy.
type session struct {
	mc *managedClient
}

func (s *session) AccountID() string { return s.mc.accountID }

func (s *session) SendMessage(ctx context.Context, to adapter.SendTarget, text string, typingDelay time.Duration) error {
	peer, err := s.resolvePeer(ctx, to)
	if err != nil {
		return err
	}
	if typingDelay > 0 {
		if err := s.mc.sender.To(peer).TypingAction().Typing(ctx); err == nil {
			select {
			case <-time.After(typingDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if _, err := s.mc.sender.To(peer).Text(ctx, text); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *session) JoinChannel(ctx context.Context, channel string) error {
	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return err
	}
	if _, err := s.mc.api.ChannelsJoinChannel(ctx, ch); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *session) GetChannelPosts(ctx context.Context, channel string, limit int) ([]model.ChannelPost, error) {
	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	res, err := s.mc.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  &tg.InputPeerChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
		Limit: limit,
	})
	if err != nil {
		return nil, mapError(err)
	}
	msgs, ok := res.(*tg.MessagesChannelMessages)
	if !ok {
		return nil, domain.NewTelegramError(domain.TGErrOther, "unexpected history response")
	}
	var posts []model.ChannelPost
	for _, mc := range msgs.Messages {
		m, ok := mc.(*tg.Message)
		if !ok {
			continue
		}
		p := model.ChannelPost{
			MsgID: m.ID,
			Text:  m.Message,
			Views: m.Views,
			Date:  time.Unix(int64(m.Date), 0).UTC(),
		}
		if replies, ok := m.GetReplies(); ok {
			p.Replies = replies.Replies
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (s *session) GetChannelParticipants(ctx context.Context, channel string, limit, offset int) ([]adapter.SendTarget, error) {
	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	res, err := s.mc.api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
		Channel: ch,
		Filter:  &tg.ChannelParticipantsRecent{},
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		return nil, mapError(err)
	}
	participants, ok := res.(*tg.ChannelsChannelParticipants)
	if !ok {
		return nil, domain.NewTelegramError(domain.TGErrOther, "unexpected participants response")
	}
	var out []adapter.SendTarget
	for _, uc := range participants.Users {
		u, ok := uc.(*tg.User)
		if !ok || u.Bot {
			continue
		}
		out = append(out, adapter.SendTarget{TelegramID: u.ID, Username: u.Username})
	}
	return out, nil
}

func (s *session) SendReaction(ctx context.Context, channel string, msgID int, emoji string) error {
	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return err
	}
	_, err = s.mc.api.MessagesSendReaction(ctx, &tg.MessagesSendReactionRequest{
		Peer:     &tg.InputPeerChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
		MsgID:    msgID,
		Reaction: []tg.ReactionClass{&tg.ReactionEmoji{Emoticon: emoji}},
	})
	return mapError(err)
}

// SendComment posts into the discussion group linked to the channel post.
func (s *session) SendComment(ctx context.Context, channel string, msgID int, text string) error {
	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return err
	}
	disc, err := s.mc.api.MessagesGetDiscussionMessage(ctx, &tg.MessagesGetDiscussionMessageRequest{
		Peer:  &tg.InputPeerChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
		MsgID: msgID,
	})
	if err != nil {
		return mapError(err)
	}
	root, peer, err := discussionRoot(disc)
	if err != nil {
		return err
	}
	if _, err := s.mc.sender.To(peer).Reply(root).Text(ctx, text); err != nil {
		return mapError(err)
	}
	return nil
}

// discussionRoot locates the root message inside the linked discussion group
// and the input peer of that group.
func discussionRoot(disc *tg.MessagesDiscussionMessage) (int, tg.InputPeerClass, error) {
	for _, mc := range disc.Messages {
		m, ok := mc.(*tg.Message)
		if !ok {
			continue
		}
		pc, ok := m.PeerID.(*tg.PeerChannel)
		if !ok {
			continue
		}
		for _, cc := range disc.Chats {
			group, ok := cc.(*tg.Channel)
			if !ok || group.ID != pc.ChannelID {
				continue
			}
			return m.ID, &tg.InputPeerChannel{ChannelID: group.ID, AccessHash: group.AccessHash}, nil
		}
	}
	return 0, nil, domain.NewTelegramError(domain.TGErrWriteForbidden, "channel has no linked discussion")
}

// PublishToChannel posts text into the channel itself; the account must be an
// admin with post rights there.
func (s *session) PublishToChannel(ctx context.Context, channel, text string) error {
	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return err
	}
	peer := &tg.InputPeerChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash}
	if _, err := s.mc.sender.To(peer).Text(ctx, text); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *session) MarkRead(ctx context.Context, channel string, maxID int) error {
	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return err
	}
	_, err = s.mc.api.ChannelsReadHistory(ctx, &tg.ChannelsReadHistoryRequest{Channel: ch, MaxID: maxID})
	return mapError(err)
}

func (s *session) Me(ctx context.Context) (*adapter.AuthorizedUser, error) {
	self, err := s.mc.client.Self(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return &adapter.AuthorizedUser{
		TelegramID: self.ID,
		Username:   self.Username,
		FirstName:  self.FirstName,
		LastName:   self.LastName,
	}, nil
}

// resolvePeer prefers the username; an id-only target falls back to a bare
// InputPeerUser, which works once the account has seen the user.
func (s *session) resolvePeer(ctx context.Context, to adapter.SendTarget) (tg.InputPeerClass, error) {
	if to.Username != "" {
		resolved, err := s.mc.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: normalizeUsername(to.Username),
		})
		if err != nil {
			return nil, mapError(err)
		}
		for _, uc := range resolved.Users {
			if u, ok := uc.(*tg.User); ok {
				return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}, nil
			}
		}
		return nil, domain.NewTelegramError(domain.TGErrUserNotFound, to.Username)
	}
	if to.TelegramID == 0 {
		return nil, domain.NewTelegramError(domain.TGErrInvalidPeer, "empty target")
	}
	return &tg.InputPeerUser{UserID: to.TelegramID}, nil
}

func (s *session) resolveChannel(ctx context.Context, channel string) (*tg.InputChannel, error) {
	resolved, err := s.mc.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: normalizeUsername(channel),
	})
	if err != nil {
		return nil, mapError(err)
	}
	for _, cc := range resolved.Chats {
		if ch, ok := cc.(*tg.Channel); ok {
			return &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
		}
	}
	return nil, domain.NewTelegramError(domain.TGErrInvalidPeer, channel)
}

func normalizeUsername(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "https://t.me/")
	s = strings.TrimPrefix(s, "t.me/")
	return strings.TrimPrefix(s, "@")
}
