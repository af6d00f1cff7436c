package pagectx

// Page identifies one screen of the host application. The assistant sends it
// to the agent backend as conversation context and uses it to pick greetings.
type Page string

const (
	PageHome            Page = "home"
	PageDashboard       Page = "dashboard"
	PageResults         Page = "results"
	PageMarketplace     Page = "marketplace"
	PageMarketplaceSell Page = "marketplace_sell"
	PageMarketplaceBuy  Page = "marketplace_buy"
	PageAbout           Page = "about"
)

// pathByPage and pageByPath must stay exact inverses of each other. Adding a
// page means adding it to pathByPage and to All; pageByPath is derived at init.
var pathByPage = map[Page]string{
	PageHome:            "/",
	PageDashboard:       "/dashboard",
	PageResults:         "/results",
	PageMarketplace:     "/marketplace",
	PageMarketplaceSell: "/marketplace/sell",
	PageMarketplaceBuy:  "/marketplace/buy",
	PageAbout:           "/about",
}

var pageByPath = func() map[string]Page {
	m := make(map[string]Page, len(pathByPage))
	for p, path := range pathByPage {
		m[path] = p
	}
	return m
}()

// All lists every defined page in a stable order.
var All = []Page{
	PageHome,
	PageDashboard,
	PageResults,
	PageMarketplace,
	PageMarketplaceSell,
	PageMarketplaceBuy,
	PageAbout,
}

// Resolve maps a navigational path to its page. Unrecognized paths resolve to
// the home page; Resolve is total by construction.
func Resolve(path string) Page {
	if p, ok := pageByPath[path]; ok {
		return p
	}
	return PageHome
}

// Route maps a page back to its path. Unknown values (possible since Page is
// a string type) route to the home path, keeping Route total as well.
func Route(p Page) string {
	if path, ok := pathByPage[p]; ok {
		return path
	}
	return pathByPage[PageHome]
}

// Known reports whether p is one of the defined pages.
func Known(p Page) bool {
	_, ok := pathByPage[p]
	return ok
}

// GreetingKey returns the localization key for the page's opening assistant
// message.
func GreetingKey(p Page) string {
	if !Known(p) {
		p = PageHome
	}
	return "assistant.greeting." + string(p)
}
