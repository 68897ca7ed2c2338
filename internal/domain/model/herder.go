package model

import (
	"time"

	"github.com/google/uuid"

	"telegram-fleet/internal/domain"
)

type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "active"
	AssignmentPaused  AssignmentStatus = "paused"
	AssignmentStopped AssignmentStatus = "stopped"
)

// HerderStrategy is a closed set; each strategy fixes a post selector and
// whether comments are allowed (see StrategyProfile).
type HerderStrategy string

const (
	StrategyObserver    HerderStrategy = "observer"
	StrategyExpert      HerderStrategy = "expert"
	StrategySupport     HerderStrategy = "support"
	StrategyTrendsetter HerderStrategy = "trendsetter"
	StrategyCommunity   HerderStrategy = "community"
)

// PostSelector decides which fetched post a strategy engages with.
type PostSelector string

const (
	SelectNewest        PostSelector = "newest"
	SelectFewestReplies PostSelector = "fewest_replies"
	SelectMostViews     PostSelector = "most_views"
	SelectRandomRecent  PostSelector = "random_recent"
)

// StrategyProfile is the tagged-variant table replacing strategy subclassing.
type StrategyProfile struct {
	MaxDailyActions int
	CanComment      bool
	Selector        PostSelector
	Phrases         []string // static fallback comment bank
}

var strategyProfiles = map[HerderStrategy]StrategyProfile{
	StrategyObserver:    {MaxDailyActions: 20, CanComment: false, Selector: SelectRandomRecent},
	StrategyExpert:      {MaxDailyActions: 35, CanComment: true, Selector: SelectFewestReplies, Phrases: []string{"Полезно, спасибо за разбор.", "Интересная точка зрения.", "Подтверждаю, на практике так и есть."}},
	StrategySupport:     {MaxDailyActions: 40, CanComment: true, Selector: SelectMostViews, Phrases: []string{"Отличный пост!", "Согласен полностью.", "Спасибо, очень вовремя."}},
	StrategyTrendsetter: {MaxDailyActions: 50, CanComment: true, Selector: SelectNewest, Phrases: []string{"Это надо видеть всем.", "Вот это новость!", "Сохранил себе."}},
	StrategyCommunity:   {MaxDailyActions: 30, CanComment: true, Selector: SelectRandomRecent, Phrases: []string{"Кто ещё так думает?", "Обсудим в комментариях?", "Хороший повод для дискуссии."}},
}

// SelectPost applies the profile's selector to posts ordered newest first:
// experts join the thread with the least discussion, support boosts the
// most-viewed post, observers and community accounts wander the latest few.
func (p StrategyProfile) SelectPost(posts []ChannelPost, randIntn func(int) int) ChannelPost {
	switch p.Selector {
	case SelectFewestReplies:
		best := posts[0]
		for _, c := range posts[1:] {
			if c.Replies < best.Replies {
				best = c
			}
		}
		return best
	case SelectMostViews:
		best := posts[0]
		for _, c := range posts[1:] {
			if c.Views > best.Views {
				best = c
			}
		}
		return best
	case SelectRandomRecent:
		return posts[randIntn(len(posts))]
	default:
		return posts[0]
	}
}

func (s HerderStrategy) Profile() StrategyProfile {
	if p, ok := strategyProfiles[s]; ok {
		return p
	}
	return strategyProfiles[StrategyObserver]
}

type ActionKind string

const (
	ActionRead    ActionKind = "read"
	ActionReact   ActionKind = "react"
	ActionComment ActionKind = "comment"
	ActionSave    ActionKind = "save"
)

// ActionStep is one element of an assignment's action chain.
type ActionStep struct {
	Kind          ActionKind
	Probability   float64 // Bernoulli activation, [0,1]
	DelayAfterMin time.Duration
	DelayAfterMax time.Duration
	Emoji         []string // for react
	MinEngagement int      // skip posts below this view count
}

// HerderSettings tune one assignment.
type HerderSettings struct {
	MaxCommentsPerDay     int
	DelayAfterPostMin     time.Duration
	DelayAfterPostMax     time.Duration
	CoordinateDiscussions bool
	SeasonalBehavior      bool
}

// HerderAssignment ties one monitored channel to a set of accounts and an
// engagement strategy.
type HerderAssignment struct {
	ID              string
	TenantID        string
	Channel         string
	AccountIDs      []string
	Strategy        HerderStrategy
	ActionChain     []ActionStep
	Settings        HerderSettings
	Status          AssignmentStatus
	AutoResumeAt    *time.Time
	TotalActions    int
	TotalComments   int
	DeletedComments int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewHerderAssignment(tenantID, channel string, strategy HerderStrategy, accountIDs []string) (*HerderAssignment, error) {
	if tenantID == "" || channel == "" || len(accountIDs) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &HerderAssignment{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Channel:    channel,
		AccountIDs: accountIDs,
		Strategy:   strategy,
		ActionChain: []ActionStep{
			{Kind: ActionRead, Probability: 1.0, DelayAfterMin: 5 * time.Second, DelayAfterMax: 20 * time.Second},
			{Kind: ActionReact, Probability: 0.4, DelayAfterMin: 10 * time.Second, DelayAfterMax: 40 * time.Second, Emoji: []string{"👍", "🔥", "❤️"}},
			{Kind: ActionComment, Probability: 0.15, DelayAfterMin: 20 * time.Second, DelayAfterMax: 60 * time.Second},
		},
		Settings: HerderSettings{
			MaxCommentsPerDay: 10,
			DelayAfterPostMin: 2 * time.Minute,
			DelayAfterPostMax: 15 * time.Minute,
		},
		Status:    AssignmentActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HerderDailyCounter tracks per-account per-assignment actions for one
// tenant-local day.
type HerderDailyCounter struct {
	AssignmentID string
	AccountID    string
	Day          string // tenant-local date, YYYY-MM-DD
	Actions      int
	Comments     int
}

// ChannelPost is a post fetched from the monitored channel, as much of it as
// post selection needs.
type ChannelPost struct {
	MsgID   int
	Text    string
	Views   int
	Replies int
	Date    time.Time
}
