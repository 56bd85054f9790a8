package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL string) *GitHubClient {
	c := NewGitHubClient(NewHTTPClient(5*time.Second, 0, 10*time.Millisecond), "")
	c.baseURL = baseURL
	return c
}

func TestListReposFiltersForks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/doganyilmaz/repos" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"name":"assistant","full_name":"doganyilmaz/assistant","description":"Q&A backend","language":"Go","stargazers_count":12,"fork":false},
			{"id":2,"name":"forked-lib","full_name":"doganyilmaz/forked-lib","fork":true}
		]`))
	}))
	defer srv.Close()

	repos, err := testClient(srv.URL).ListRepos(context.Background(), "doganyilmaz")
	if err != nil {
		t.Fatalf("ListRepos: %v", err)
	}
	if len(repos) != 1 {
		t.Fatalf("expected forks filtered out, got %d repos", len(repos))
	}
	if repos[0].Name != "assistant" {
		t.Fatalf("unexpected repo: %s", repos[0].Name)
	}
}

func TestGetReadmeMissingIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	readme, err := testClient(srv.URL).GetReadme(context.Background(), "doganyilmaz/empty")
	if err != nil {
		t.Fatalf("GetReadme: %v", err)
	}
	if readme != "" {
		t.Fatalf("expected empty readme, got %q", readme)
	}
}

func TestRepoTextPrefersRawReadme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/doganyilmaz/assistant/readme" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("# assistant\nCandidate Q&A backend."))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).RepoText(context.Background(), Repo{
		FullName: "doganyilmaz/assistant",
		HTMLURL:  srv.URL + "/doganyilmaz/assistant",
	})
	if err != nil {
		t.Fatalf("RepoText: %v", err)
	}
	if !strings.Contains(text, "Candidate Q&A backend.") {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestRepoTextFallsBackToReadablePage(t *testing.T) {
	page := `<html><head><title>assistant</title></head><body>
<nav><a href="/">Home</a> <a href="/login">Sign in</a> <a href="/signup">Sign up</a></nav>
<article>
<p>The assistant service answers natural language questions about a single
candidate, combining structured profile data with repository activity. Every
answer is grounded in stored source text, so the service refuses to speculate
about anything that is not written down.</p>
<p>Ingestion walks the candidate's public repositories, renders each one as a
plain text document, and splits the result into overlapping windows before
embedding. Retrieval is scoped to one profile at a time, which keeps answers
from leaking between candidates even when their histories look similar.</p>
<p>The service exposes a small HTTP API for chat and re-ingestion, plus the
usual health and metrics endpoints. Configuration follows the twelve factor
convention, with environment variables overriding the bundled defaults.</p>
</article>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/doganyilmaz/assistant/readme":
			http.Error(w, "not found", http.StatusNotFound)
		case "/doganyilmaz/assistant":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(page))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).RepoText(context.Background(), Repo{
		FullName: "doganyilmaz/assistant",
		HTMLURL:  srv.URL + "/doganyilmaz/assistant",
	})
	if err != nil {
		t.Fatalf("RepoText: %v", err)
	}
	if !strings.Contains(text, "answers natural language questions") {
		t.Fatalf("page content missing: %q", text)
	}
	if strings.Contains(text, "Sign in") {
		t.Fatalf("navigation boilerplate not stripped: %q", text)
	}
}

func TestRepoDocument(t *testing.T) {
	doc := RepoDocument(Repo{
		Name:        "assistant",
		Description: "Candidate Q&A backend",
		Language:    "Go",
		Topics:      []string{"rag", "pgvector"},
		Stars:       12,
	}, "## Setup\nRun the server.")

	for _, want := range []string{"Repository: assistant.", "Candidate Q&A backend", "Primary language: Go", "rag, pgvector", "Run the server."} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestDoJSONRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	client := NewHTTPClient(5*time.Second, 2, time.Millisecond)
	if err := client.DoJSON(context.Background(), "GET", srv.URL, nil, nil, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if !out.OK || attempts != 3 {
		t.Fatalf("expected success after 3 attempts, got ok=%v attempts=%d", out.OK, attempts)
	}
}
