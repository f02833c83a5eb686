package push

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source labels where a notification came from, carried for diagnostics.
const (
	SourceClientPush    = "client-push"
	SourceServerPush    = "server-push"
	SourceErrorFallback = "error-fallback"
)

// Notification is a displayable, normalized push message. Every incoming
// payload becomes one of these; malformed payloads degrade to a generic
// fallback instead of being dropped.
type Notification struct {
	Title     string
	Body      string
	Tag       string
	Icon      string
	URL       string
	StoryID   string
	Timestamp time.Time
	Source    string
}

type clientEnvelope struct {
	Type string `json:"type"`
	Data *struct {
		Title   string `json:"title"`
		Options struct {
			Body      string          `json:"body"`
			Tag       string          `json:"tag"`
			Icon      string          `json:"icon"`
			Timestamp int64           `json:"timestamp"`
			Data      json.RawMessage `json:"data"`
		} `json:"options"`
	} `json:"data"`
}

type serverEnvelope struct {
	Message string `json:"message"`
	Data    struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		PhotoURL string `json:"photoUrl"`
	} `json:"data"`
}

// MsgTypePushNotification marks a client-originated display request relayed
// through the push channel.
const MsgTypePushNotification = "PUSH_NOTIFICATION"

// Normalize turns a raw push payload into a Notification. origin is the app
// origin used to build click-through URLs.
//
// Three shapes are recognized: the client display-request envelope
// (type=PUSH_NOTIFICATION), the backend new-story payload, and anything else,
// which yields a generic fallback.
func Normalize(raw []byte, origin string, now time.Time) Notification {
	tag := fmt.Sprintf("story-notification-%d", now.UnixMilli())

	var client clientEnvelope
	if err := json.Unmarshal(raw, &client); err == nil &&
		client.Type == MsgTypePushNotification && client.Data != nil {
		n := Notification{
			Title:     client.Data.Title,
			Body:      client.Data.Options.Body,
			Tag:       client.Data.Options.Tag,
			Icon:      client.Data.Options.Icon,
			URL:       origin + "/#/home",
			Timestamp: now,
			Source:    SourceClientPush,
		}
		if n.Tag == "" {
			n.Tag = tag
		}
		if n.Body == "" {
			n.Body = "Ada pembaruan di Story App"
		}
		if n.Icon == "" {
			n.Icon = "/favicon.png"
		}
		if client.Data.Options.Timestamp > 0 {
			n.Timestamp = time.UnixMilli(client.Data.Options.Timestamp)
		}
		return n
	}

	var server serverEnvelope
	if err := json.Unmarshal(raw, &server); err == nil && len(raw) > 0 && raw[0] == '{' {
		n := Notification{
			Title:     "Story Baru",
			Body:      server.Message,
			Tag:       tag,
			Icon:      server.Data.PhotoURL,
			URL:       origin + "/#/home",
			StoryID:   server.Data.ID,
			Timestamp: now,
			Source:    SourceServerPush,
		}
		if server.Data.Name != "" {
			n.Title = "Story Baru dari " + server.Data.Name
		}
		if n.Body == "" {
			n.Body = "Ada story baru ditambahkan"
		}
		if n.Icon == "" {
			n.Icon = "/favicon.png"
		}
		if server.Data.ID != "" {
			n.URL = origin + "/#/detail/" + server.Data.ID
		}
		return n
	}

	return Notification{
		Title:     "Story App Notification",
		Body:      "Ada pembaruan di Story App",
		Tag:       tag,
		Icon:      "/favicon.png",
		URL:       origin + "/#/home",
		Timestamp: now,
		Source:    SourceErrorFallback,
	}
}
