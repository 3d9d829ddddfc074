package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/erkineren/repository-relay/internal/logger"
	"github.com/erkineren/repository-relay/internal/models"
)

// LatestCommit returns the newest commit on the default branch, or nil when
// the repository has none.
func (c *Client) LatestCommit(ctx context.Context, repo string) (*models.Commit, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, resp, err := c.client.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, fmt.Errorf("listing commits for %s: %w", repo, err)
	}
	logRateLimit(resp, repo, "commits")

	if len(commits) == 0 {
		return nil, nil
	}
	return &models.Commit{
		SHA:     commits[0].GetSHA(),
		HTMLURL: commits[0].GetHTMLURL(),
	}, nil
}

// LatestTag returns the first tag in the API's ordering, or nil.
func (c *Client) LatestTag(ctx context.Context, repo string) (*models.Tag, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tags, resp, err := c.client.Repositories.ListTags(ctx, owner, name, &github.ListOptions{PerPage: 1})
	if err != nil {
		return nil, fmt.Errorf("listing tags for %s: %w", repo, err)
	}
	logRateLimit(resp, repo, "tags")

	if len(tags) == 0 {
		return nil, nil
	}
	return &models.Tag{Name: tags[0].GetName()}, nil
}

// LatestRelease returns the newest release, or nil.
func (c *Client) LatestRelease(ctx context.Context, repo string) (*models.Release, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	releases, resp, err := c.client.Repositories.ListReleases(ctx, owner, name, &github.ListOptions{PerPage: 1})
	if err != nil {
		return nil, fmt.Errorf("listing releases for %s: %w", repo, err)
	}
	logRateLimit(resp, repo, "releases")

	if len(releases) == 0 {
		return nil, nil
	}
	r := releases[0]
	return &models.Release{
		ID:      r.GetID(),
		Name:    r.GetName(),
		TagName: r.GetTagName(),
		HTMLURL: r.GetHTMLURL(),
	}, nil
}

func logRateLimit(resp *github.Response, repo, endpoint string) {
	if resp == nil {
		return
	}

	logger.Debug().
		Str("repo", repo).
		Str("endpoint", endpoint).
		Int("rate_remaining", resp.Rate.Remaining).
		Int("rate_limit", resp.Rate.Limit).
		Msg("github api call")

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 50 {
		logger.Warn().
			Int("remaining", resp.Rate.Remaining).
			Dur("reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second)).
			Msg("github rate limit low")
	}
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
