// Package gateway fetches and creates story resources against the backend,
// with a deterministic degrade-to-local policy: list fetches fall back to the
// local store when the network fails, detail reads are local-first, and
// search/delete are local-only. All outcomes are reported as Result values;
// no error ever propagates past this boundary.
package gateway

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satriojati/storymap/internal/client/api"
	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/client/repositories/stories"
	"github.com/satriojati/storymap/internal/common"
	"github.com/satriojati/storymap/internal/events"
	"github.com/satriojati/storymap/internal/logging"
)

// Photo is the image payload of a new story.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

// AddStoryInput carries the user-provided fields of a new story. Lat and Lon
// must be both set or both nil.
type AddStoryInput struct {
	Description string
	Photo       *Photo
	Lat         *float64
	Lon         *float64
}

// Gateway is the single remote-access point for story data. Construct one
// per process and pass it where needed; it holds no per-request state beyond
// the injected collaborators.
type Gateway struct {
	api   *api.Client
	store *stories.Store
	bus   *events.Bus
	log   logging.Logger

	// test seams
	nowFn   func() time.Time
	newIDFn func() string
}

func New(apiClient *api.Client, store *stories.Store, bus *events.Bus, log logging.Logger) *Gateway {
	if log == nil {
		log = logging.Nop()
	}
	return &Gateway{
		api:     apiClient,
		store:   store,
		bus:     bus,
		log:     log,
		nowFn:   time.Now,
		newIDFn: func() string { return uuid.NewString() },
	}
}

type listResponse struct {
	ListStory []models.Story `json:"listStory"`
}

type detailResponse struct {
	Story models.Story `json:"story"`
}

type addResponse struct {
	Story *models.Story `json:"story"`
}

// GetAllStories fetches the full story list. It requires a session token.
// On network failure it serves the local store instead, tagging the result
// Source=SourceLocal; only when the local store is also empty does the
// caller see an error.
func (g *Gateway) GetAllStories(ctx context.Context) StoriesResult {
	var resp listResponse
	err := g.api.Get(ctx, "/stories", &resp)
	if err == nil {
		return StoriesResult{Stories: resp.ListStory, Source: SourceRemote}
	}

	if errors.Is(err, common.ErrUnauthorized) {
		return failStories("Not authenticated")
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		// The backend answered and refused; local fallback would mask that.
		return failStories(apiErr.Message)
	}

	g.log.Warn(ctx, "story list fetch failed, falling back to local store", "err", err)
	if local := g.store.GetAll(ctx); len(local) > 0 {
		for i := range local {
			local[i].IsSaved = true
		}
		return StoriesResult{
			Message: "Stories retrieved from local database",
			Stories: local,
			Source:  SourceLocal,
		}
	}
	return failStories("Failed to fetch stories")
}

// GetStoryDetail returns a single story. The local store is consulted first
// (offline-first read policy); the network is only reached when the story is
// not bookmarked locally.
func (g *Gateway) GetStoryDetail(ctx context.Context, id string) StoryResult {
	if local := g.store.Get(ctx, id); local != nil {
		local.IsSaved = true
		return StoryResult{
			Message: "Story retrieved from local database",
			Story:   local,
			Source:  SourceLocal,
		}
	}

	var resp detailResponse
	err := g.api.Get(ctx, "/stories/"+id, &resp)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return failStory("Not authenticated")
		}
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return failStory(apiErr.Message)
		}
		return failStory("Failed to fetch story detail")
	}
	return StoryResult{Story: &resp.Story, Source: SourceRemote}
}

// AddNewStory validates the input, submits it as multipart form data, and on
// success publishes a story-added event so other components can react
// without polling. Validation failures are reported before any I/O happens.
func (g *Gateway) AddNewStory(ctx context.Context, in AddStoryInput) AddResult {
	var problems []string
	if strings.TrimSpace(in.Description) == "" {
		problems = append(problems, "Description must not be empty")
	}
	if in.Photo == nil || len(in.Photo.Data) == 0 {
		problems = append(problems, "A photo must be selected")
	}
	if len(problems) > 0 {
		return failAdd(strings.Join(problems, "\n"))
	}

	fields := map[string]string{"description": in.Description}
	if in.Lat != nil && in.Lon != nil {
		fields["lat"] = strconv.FormatFloat(*in.Lat, 'f', -1, 64)
		fields["lon"] = strconv.FormatFloat(*in.Lon, 'f', -1, 64)
	}
	file := &api.FormFile{
		Field:       "photo",
		Name:        in.Photo.Name,
		ContentType: in.Photo.ContentType,
		Data:        in.Photo.Data,
	}

	var resp addResponse
	if err := g.api.PostMultipart(ctx, "/stories", fields, file, &resp); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return failAdd("Please log in first")
		}
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return failAdd(apiErr.Message)
		}
		return failAdd("Failed to add story")
	}

	// The backend may omit parts of the created story; normalize so callers
	// always get a complete record.
	story := models.Story{
		Name:        "Anonymous",
		Description: in.Description,
		Lat:         in.Lat,
		Lon:         in.Lon,
		CreatedAt:   g.nowFn(),
	}
	if resp.Story != nil {
		if resp.Story.ID != "" {
			story.ID = resp.Story.ID
		}
		if resp.Story.Name != "" {
			story.Name = resp.Story.Name
		}
		story.PhotoURL = resp.Story.PhotoURL
		if !resp.Story.CreatedAt.IsZero() {
			story.CreatedAt = resp.Story.CreatedAt
		}
		story.UserID = resp.Story.UserID
	}
	if story.ID == "" {
		story.ID = g.newIDFn()
	}

	if g.bus != nil {
		g.bus.PublishStoryAdded(story)
	}
	return AddResult{Story: &story}
}

// DeleteStory removes the local bookmark copy only. The backend has no
// delete endpoint, so the remote story is untouched; callers must not
// present this as a server-side delete.
func (g *Gateway) DeleteStory(ctx context.Context, id string) OpResult {
	if !g.store.Delete(ctx, id) {
		return OpResult{Error: true, Message: "Failed to delete story from local storage"}
	}
	return OpResult{Message: "Story deleted from local storage"}
}

// SearchStories matches against locally bookmarked stories only.
func (g *Gateway) SearchStories(ctx context.Context, query string) []models.Story {
	return g.store.Search(ctx, query)
}
