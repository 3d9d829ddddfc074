package poller

import (
	"fmt"

	"github.com/erkineren/repository-relay/internal/models"
)

func commitNotification(repo string, c *models.Commit) models.Notification {
	url := fmt.Sprintf("https://github.com/%s/commit/%s", repo, c.SHA)
	return models.Notification{
		Type:    models.EventCommit,
		Repo:    repo,
		Message: fmt.Sprintf("🔄 New commit in **%s**: %s", repo, url),
		URL:     url,
	}
}

func tagNotification(repo string, t *models.Tag) models.Notification {
	url := fmt.Sprintf("https://github.com/%s/releases/tag/%s", repo, t.Name)
	return models.Notification{
		Type:    models.EventTag,
		Repo:    repo,
		Message: fmt.Sprintf("🏷️ New tag in **%s**: `%s` — %s", repo, t.Name, url),
		URL:     url,
	}
}

func releaseNotification(repo string, r *models.Release) models.Notification {
	return models.Notification{
		Type:    models.EventRelease,
		Repo:    repo,
		Message: fmt.Sprintf("🚀 New release in **%s**: **%s** — %s", repo, r.DisplayName(), r.HTMLURL),
		URL:     r.HTMLURL,
	}
}
