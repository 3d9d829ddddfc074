package models

// RepoEntry is a watched repository and the last activity seen for it.
// A nil cursor means nothing has been observed yet.
type RepoEntry struct {
	Repo        string  `json:"repo"`
	LastCommit  *string `json:"lastCommit"`
	LastTag     *string `json:"lastTag"`
	LastRelease *int64  `json:"lastRelease"`
}

// Clone returns a deep copy so callers never share cursor pointers.
func (r RepoEntry) Clone() RepoEntry {
	out := RepoEntry{Repo: r.Repo}
	if r.LastCommit != nil {
		v := *r.LastCommit
		out.LastCommit = &v
	}
	if r.LastTag != nil {
		v := *r.LastTag
		out.LastTag = &v
	}
	if r.LastRelease != nil {
		v := *r.LastRelease
		out.LastRelease = &v
	}
	return out
}

// SameCursors reports whether r and other have observed the same activity.
func (r RepoEntry) SameCursors(other RepoEntry) bool {
	return equalPtr(r.LastCommit, other.LastCommit) &&
		equalPtr(r.LastTag, other.LastTag) &&
		equalPtr(r.LastRelease, other.LastRelease)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ChannelEntry maps one server to its notification channel.
type ChannelEntry struct {
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	Platform  string `json:"platform,omitempty"`
}

// PlatformName returns the entry's platform, treating empty as Discord.
func (c ChannelEntry) PlatformName() string {
	if c.Platform == "" {
		return PlatformDiscord
	}
	return c.Platform
}

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// State is the persisted aggregate.
type State struct {
	Repos    []RepoEntry    `json:"repos"`
	Channels []ChannelEntry `json:"channels"`
}

// NewState returns an empty state with non-nil slices so it encodes as [] not null.
func NewState() *State {
	return &State{
		Repos:    []RepoEntry{},
		Channels: []ChannelEntry{},
	}
}

func (s *State) Clone() *State {
	out := &State{
		Repos:    make([]RepoEntry, 0, len(s.Repos)),
		Channels: make([]ChannelEntry, len(s.Channels)),
	}
	for _, r := range s.Repos {
		out.Repos = append(out.Repos, r.Clone())
	}
	copy(out.Channels, s.Channels)
	return out
}

func StringPtr(s string) *string { return &s }

func Int64Ptr(i int64) *int64 { return &i }
