package pagectx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRouteRoundTrip(t *testing.T) {
	for _, p := range All {
		require.Equal(t, p, Resolve(Route(p)), "round-trip for %q", p)
	}
}

func TestRouteResolveRoundTrip(t *testing.T) {
	for path, p := range pageByPath {
		require.Equal(t, path, Route(p))
	}
}

func TestResolveUnmappedPath(t *testing.T) {
	require.Equal(t, PageHome, Resolve("/nonexistent"))
	require.Equal(t, PageHome, Resolve(""))
	require.Equal(t, PageHome, Resolve("/marketplace/sell/extra"))
}

func TestRouteUnknownPage(t *testing.T) {
	require.Equal(t, "/", Route(Page("settings")))
}

func TestTablesCoverAllPages(t *testing.T) {
	require.Len(t, All, len(pathByPage))
	require.Len(t, pageByPath, len(pathByPage))
}

func TestGreetingKey(t *testing.T) {
	require.Equal(t, "assistant.greeting.dashboard", GreetingKey(PageDashboard))
	require.Equal(t, "assistant.greeting.home", GreetingKey(Page("bogus")))
}
