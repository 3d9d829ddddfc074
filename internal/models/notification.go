package models

type EventType string

const (
	EventCommit  EventType = "commit"
	EventTag     EventType = "tag"
	EventRelease EventType = "release"
)

// Notification is one detected piece of activity, ready to be broadcast.
type Notification struct {
	Type    EventType
	Repo    string
	Message string
	URL     string
}

// Commit is the newest commit of a repository.
type Commit struct {
	SHA     string
	HTMLURL string
}

// Tag is the newest tag of a repository.
type Tag struct {
	Name string
}

// Release is the newest release of a repository.
type Release struct {
	ID      int64
	Name    string
	TagName string
	HTMLURL string
}

// DisplayName falls back to the tag name when the release has no title.
func (r Release) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.TagName
}
