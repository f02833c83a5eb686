package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/satriojati/storymap/internal/client/gateway"
	"github.com/satriojati/storymap/internal/client/models"
)

func formatStory(s *models.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", s.ID, s.Name)
	fmt.Fprintf(&b, "  %s\n", s.Description)
	fmt.Fprintf(&b, "  photo: %s\n", s.PhotoURL)
	if s.HasLocation() {
		fmt.Fprintf(&b, "  location: %f, %f\n", *s.Lat, *s.Lon)
	}
	fmt.Fprintf(&b, "  created: %s", s.CreatedAt.Format("2006-01-02 15:04"))
	if s.IsSaved {
		b.WriteString("  (saved)")
	}
	return b.String()
}

func formatStoryLine(s *models.Story) string {
	marker := " "
	if s.IsSaved {
		marker = "*"
	}
	return fmt.Sprintf("%s [%s] %s: %s", marker, s.ID, s.Name, s.Description)
}

// List prints the current snapshot. The snapshot is maintained by the sync
// coordinator in the background, so this never blocks on the network.
func (a *App) List(ctx context.Context) error {
	snap := a.syncer.Current()
	if snap.Message != "" {
		printlnFn(snap.Message)
	}
	if len(snap.Stories) == 0 {
		if snap.Online {
			printlnFn("No stories yet")
		} else {
			printlnFn("You are offline and have no saved stories")
		}
		return nil
	}
	if snap.Source == gateway.SourceLocal {
		printlnFn("(showing saved stories from local storage)")
	}
	for i := range snap.Stories {
		printlnFn(formatStoryLine(&snap.Stories[i]))
	}
	return nil
}

// Refresh forces a fetch outside the periodic schedule.
func (a *App) Refresh(ctx context.Context) error {
	a.syncer.Refresh(ctx)
	return a.List(ctx)
}

func (a *App) Show(ctx context.Context, id string) error {
	res := a.gw.GetStoryDetail(ctx, id)
	if res.Error {
		printlnFn(res.Message)
		return nil
	}
	if res.Message != "" {
		printlnFn(res.Message)
	}
	printlnFn(formatStory(res.Story))
	return nil
}

// Add prompts for a new story and submits it. The photo is read from a local
// file path.
func (a *App) Add(ctx context.Context) error {
	// The list is not being looked at while the user composes a story, so
	// pause the periodic refresh for the duration of the prompts.
	a.syncer.SetVisible(ctx, false)
	defer a.syncer.SetVisible(ctx, true)

	description, err := GetMultiline(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}
	photoPath, err := GetSimpleText(a.reader, "Photo file path", os.Stdout)
	if err != nil {
		return err
	}
	lat, err := GetCoordinate(a.reader, "Latitude", os.Stdout)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	var lon *float64
	if lat != nil {
		lon, err = GetCoordinate(a.reader, "Longitude", os.Stdout)
		if err != nil {
			printlnFn(err.Error())
			return err
		}
	}

	input := gateway.AddStoryInput{Description: description, Lat: lat, Lon: lon}
	if photoPath != "" {
		data, err := os.ReadFile(photoPath)
		if err != nil {
			printlnFn("Cannot read photo:", err.Error())
			return err
		}
		input.Photo = &gateway.Photo{
			Name:        filepath.Base(photoPath),
			ContentType: contentTypeForFile(photoPath),
			Data:        data,
		}
	}

	res := a.gw.AddNewStory(ctx, input)
	if res.Error {
		printlnFn(res.Message)
		return nil
	}
	printlnFn("Story published")
	return nil
}

func contentTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Save bookmarks a story from the current snapshot for offline reading.
func (a *App) Save(ctx context.Context, id string) error {
	snap := a.syncer.Current()
	for i := range snap.Stories {
		if snap.Stories[i].ID == id {
			msg, _ := a.syncer.SaveStory(ctx, snap.Stories[i])
			printlnFn(msg)
			return nil
		}
	}

	// Not on screen; try a detail fetch before giving up.
	res := a.gw.GetStoryDetail(ctx, id)
	if res.Error {
		printlnFn("Story not found:", id)
		return nil
	}
	msg, _ := a.syncer.SaveStory(ctx, *res.Story)
	printlnFn(msg)
	return nil
}

func (a *App) Unsave(ctx context.Context, id string) error {
	msg, _ := a.syncer.RemoveSavedStory(ctx, id)
	printlnFn(msg)
	return nil
}

// Search matches saved stories by name or description.
func (a *App) Search(ctx context.Context, query string) error {
	found := a.gw.SearchStories(ctx, query)
	if len(found) == 0 {
		printlnFn("No saved stories match", query)
		return nil
	}
	for i := range found {
		printlnFn(formatStoryLine(&found[i]))
	}
	return nil
}
