package cache

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiOrigin = "https://story-api.dicoding.dev"

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRoutes_Matching(t *testing.T) {
	rules := Routes(apiOrigin)

	tests := []struct {
		name   string
		url    string
		kind   Kind
		bucket string
	}{
		{"fonts stylesheet", "https://fonts.googleapis.com/css2?family=Inter", KindStyle, "google-fonts-stylesheets"},
		{"font file", "https://fonts.gstatic.com/s/inter/v12/x.woff2", KindFont, "google-fonts-webfonts"},
		{"script", "https://app.example.com/bundle.js", KindScript, "static-resources"},
		{"stylesheet", "https://app.example.com/app.css", KindStyle, "static-resources"},
		{"image", "https://cdn.example.com/photo.jpg", KindImage, "images"},
		{"leaflet asset", "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js", KindScript, "leaflet-resources"},
		{"api call", apiOrigin + "/v1/stories", KindAPI, "api-responses"},
		{"navigation", "https://app.example.com/", KindDocument, "pages"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule := Match(rules, mustParse(t, tc.url), tc.kind)
			require.NotNil(t, rule)
			assert.Equal(t, tc.bucket, rule.Bucket)
		})
	}
}

func TestRoutes_NoMatch(t *testing.T) {
	rules := Routes(apiOrigin)
	rule := Match(rules, mustParse(t, "https://other.example.com/data.bin"), KindAPI)
	assert.Nil(t, rule)
}

func TestRoutes_FontsStylesheetsWinOverStatic(t *testing.T) {
	// A stylesheet from the fonts origin must land in the fonts bucket, not
	// the generic static bucket.
	rules := Routes(apiOrigin)
	rule := Match(rules, mustParse(t, "https://fonts.googleapis.com/css2"), KindStyle)
	require.NotNil(t, rule)
	assert.Equal(t, "google-fonts-stylesheets", rule.Bucket)
}

func TestRule_CacheableStatus(t *testing.T) {
	anyOK := Rule{}
	assert.True(t, anyOK.CacheableStatus(200))
	assert.True(t, anyOK.CacheableStatus(204))
	assert.False(t, anyOK.CacheableStatus(404))
	assert.False(t, anyOK.CacheableStatus(301))

	pagesOnly := Rule{Statuses: []int{200}}
	assert.True(t, pagesOnly.CacheableStatus(200))
	assert.False(t, pagesOnly.CacheableStatus(204))
}

func TestRoutes_LeafletOmitsCredentials(t *testing.T) {
	rules := Routes(apiOrigin)
	rule := Match(rules, mustParse(t, "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"), KindStyle)
	require.NotNil(t, rule)
	assert.True(t, rule.OmitCredentials)
}
