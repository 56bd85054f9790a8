package fetch

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const githubAPIBase = "https://api.github.com"

// Repo is the subset of the GitHub repository payload the ingestion
// pipeline cares about.
type Repo struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	Stars       int      `json:"stargazers_count"`
	Fork        bool     `json:"fork"`
	HTMLURL     string   `json:"html_url"`
}

// GitHubClient fetches a user's public repositories and readme files.
type GitHubClient struct {
	http    *HTTPClient
	baseURL string
	token   string
	logger  *log.Logger
}

func NewGitHubClient(http *HTTPClient, token string) *GitHubClient {
	return &GitHubClient{
		http:    http,
		baseURL: githubAPIBase,
		token:   token,
		logger:  log.New(log.Writer(), "[FETCH:GITHUB] ", log.LstdFlags),
	}
}

func (c *GitHubClient) headers() map[string]string {
	h := map[string]string{
		"Accept":     "application/vnd.github+json",
		"User-Agent": "profile-assistant",
	}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

// ListRepos returns the user's public, non-fork repositories sorted by
// most recently updated.
func (c *GitHubClient) ListRepos(ctx context.Context, user string) ([]Repo, error) {
	if user == "" {
		return nil, fmt.Errorf("github user not set")
	}
	var repos []Repo
	url := fmt.Sprintf("%s/users/%s/repos?sort=updated&per_page=100", c.baseURL, user)
	if err := c.http.DoJSON(ctx, "GET", url, c.headers(), nil, &repos); err != nil {
		return nil, fmt.Errorf("list repos for %s: %w", user, err)
	}
	out := repos[:0]
	for _, r := range repos {
		if r.Fork {
			continue
		}
		out = append(out, r)
	}
	c.logger.Printf("fetched %d repos for %s", len(out), user)
	return out, nil
}

// GetReadme returns the plain text readme of a repository, or an empty
// string when the repository has none.
func (c *GitHubClient) GetReadme(ctx context.Context, fullName string) (string, error) {
	headers := c.headers()
	headers["Accept"] = "application/vnd.github.raw+json"
	body, err := c.http.Get(ctx, fmt.Sprintf("%s/repos/%s/readme", c.baseURL, fullName), headers, 64<<10)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return "", nil
		}
		return "", fmt.Errorf("readme for %s: %w", fullName, err)
	}
	return string(body), nil
}

// RepoText returns the repository's readme text. Repositories without a raw
// readme fall back to the readable text of their rendered page.
func (c *GitHubClient) RepoText(ctx context.Context, repo Repo) (string, error) {
	readme, err := c.GetReadme(ctx, repo.FullName)
	if err != nil {
		return "", err
	}
	if readme != "" || repo.HTMLURL == "" {
		return readme, nil
	}
	return c.ExtractReadable(ctx, repo.HTMLURL)
}

// RepoDocument renders one repository as a text document for chunking.
func RepoDocument(repo Repo, readme string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s.", repo.Name)
	if repo.Description != "" {
		fmt.Fprintf(&b, " %s.", strings.TrimSuffix(repo.Description, "."))
	}
	if repo.Language != "" {
		fmt.Fprintf(&b, " Primary language: %s.", repo.Language)
	}
	if len(repo.Topics) > 0 {
		fmt.Fprintf(&b, " Topics: %s.", strings.Join(repo.Topics, ", "))
	}
	if repo.Stars > 0 {
		fmt.Fprintf(&b, " Stars: %d.", repo.Stars)
	}
	if readme != "" {
		fmt.Fprintf(&b, "\n%s", readme)
	}
	return b.String()
}

// ExtractReadable fetches a web page and returns its main text content,
// stripped of navigation and boilerplate.
func (c *GitHubClient) ExtractReadable(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	body, err := c.http.Get(ctx, pageURL, map[string]string{"User-Agent": "profile-assistant"}, 1<<20)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", pageURL, err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
