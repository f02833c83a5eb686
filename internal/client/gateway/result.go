package gateway

import "github.com/satriojati/storymap/internal/client/models"

// Source tells callers where a successful result came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// StoriesResult is the uniform outcome of a list fetch. Exactly one of
// (Error=true, Message) or Stories is meaningful; errors never escape the
// gateway as panics or raw error values.
type StoriesResult struct {
	Error   bool
	Message string
	Stories []models.Story
	Source  Source
}

// StoryResult is the outcome of a detail fetch.
type StoryResult struct {
	Error   bool
	Message string
	Story   *models.Story
	Source  Source
}

// AddResult is the outcome of a story creation.
type AddResult struct {
	Error   bool
	Message string
	Story   *models.Story
}

// OpResult is the outcome of an operation with no payload.
type OpResult struct {
	Error   bool
	Message string
}

func failStories(msg string) StoriesResult { return StoriesResult{Error: true, Message: msg} }
func failStory(msg string) StoryResult     { return StoryResult{Error: true, Message: msg} }
func failAdd(msg string) AddResult         { return AddResult{Error: true, Message: msg} }
