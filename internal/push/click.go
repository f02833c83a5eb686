package push

import (
	"strings"
)

// Click actions.
const (
	ActionView  = "view"
	ActionClose = "close"
)

// Tabs abstracts the open application windows a click can land in.
type Tabs interface {
	// URLs lists the currently open tab URLs.
	URLs() []string
	// Focus brings the tab at url to the front.
	Focus(url string) error
	// Navigate points the focused tab at a new URL.
	Navigate(url string) error
	// Open creates a new tab at url.
	Open(url string) error
}

// HandleClick implements the notification click policy: the clicked
// notification is dismissed, the close action stops there, and any other
// click focuses an existing tab showing the target (navigating it if only
// the fragment differs) or opens a new one.
func HandleClick(n Notification, action string, notifier Notifier, tabs Tabs) error {
	notifier.Close(n.Tag)

	if action == ActionClose {
		return nil
	}

	target := n.URL
	for _, open := range tabs.URLs() {
		if open == target {
			return tabs.Focus(open)
		}
		if stripFragment(open) == stripFragment(target) {
			if err := tabs.Focus(open); err != nil {
				return err
			}
			return tabs.Navigate(target)
		}
	}
	return tabs.Open(target)
}

func stripFragment(url string) string {
	if i := strings.Index(url, "#"); i >= 0 {
		return url[:i]
	}
	return url
}
