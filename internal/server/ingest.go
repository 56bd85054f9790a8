package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/doganyilmaz/profile-assistant/internal/fetch"
	"github.com/doganyilmaz/profile-assistant/internal/rag"
	"github.com/doganyilmaz/profile-assistant/internal/store"
	"github.com/doganyilmaz/profile-assistant/models"
)

// maxRepoDocuments caps how many repositories are ingested per profile.
const maxRepoDocuments = 20

// Ingestor rebuilds a profile's knowledge base from the relational store
// plus the candidate's public GitHub activity.
type Ingestor struct {
	Store      *store.Store
	Pipeline   *rag.IngestionPipeline
	GitHub     *fetch.GitHubClient
	GitHubUser string
	Logger     *log.Logger
}

// ReingestProfile replaces every chunk for the profile. GitHub fetching is
// best effort: when the API is unreachable the structured profile data is
// still reingested.
func (ing *Ingestor) ReingestProfile(ctx context.Context, profileID int64) (int, error) {
	profile, err := ing.Store.GetProfile(ctx, profileID)
	if err != nil {
		return 0, err
	}
	experiences, err := ing.Store.ListExperiences(ctx, profileID)
	if err != nil {
		return 0, err
	}
	projects, err := ing.Store.ListProjects(ctx, profileID)
	if err != nil {
		return 0, err
	}

	extras := ing.githubDocuments(ctx)
	return ing.Pipeline.ReingestProfile(ctx, profileID, profile.Summary, experiences, projects, extras...)
}

func (ing *Ingestor) githubDocuments(ctx context.Context) []rag.Document {
	if ing.GitHub == nil || ing.GitHubUser == "" {
		return nil
	}
	repos, err := ing.GitHub.ListRepos(ctx, ing.GitHubUser)
	if err != nil {
		ing.Logger.Printf("github fetch skipped: %v", err)
		return nil
	}
	if len(repos) > maxRepoDocuments {
		repos = repos[:maxRepoDocuments]
	}

	docs := make([]rag.Document, 0, len(repos))
	for _, repo := range repos {
		readme, err := ing.GitHub.RepoText(ctx, repo)
		if err != nil {
			ing.Logger.Printf("repo text for %s skipped: %v", repo.FullName, err)
		}
		docs = append(docs, rag.Document{
			Text:       fetch.RepoDocument(repo, readme),
			SourceType: rag.SourceGitHub,
			SourceID:   repo.ID,
		})
	}
	return docs
}

// IngestHandler exposes the ingestion endpoints.
type IngestHandler struct {
	Ingestor *Ingestor
}

func (h *IngestHandler) Register(g *echo.Group) {
	g.POST("/:id/reingest", h.handleReingest)
	g.GET("/:id/chunks", h.handleChunkCount)
}

func (h *IngestHandler) handleReingest(c echo.Context) error {
	profileID, err := profileIDParam(c)
	if err != nil {
		return err
	}

	count, err := h.Ingestor.ReingestProfile(c.Request().Context(), profileID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		var ve *rag.ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
		}
		var ce *rag.ConsistencyError
		if errors.As(err, &ce) {
			// the profile is left with zero chunks; the client should retry
			return echo.NewHTTPError(http.StatusConflict, ce.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"profile_id": profileID, "chunks": count})
}

func (h *IngestHandler) handleChunkCount(c echo.Context) error {
	profileID, err := profileIDParam(c)
	if err != nil {
		return err
	}
	count, err := h.Ingestor.Store.CountProfileChunks(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"profile_id": profileID, "chunks": count})
}

func profileIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid profile id")
	}
	return id, nil
}
