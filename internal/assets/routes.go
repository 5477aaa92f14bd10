package assets

// Kind distinguishes single-file routes from directory mounts.
type Kind int

const (
	KindFile Kind = iota
	KindMount
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindMount:
		return "mount"
	default:
		return "unknown"
	}
}

// Route maps a URL path to a location under the site root.
// For mounts Path ends with "/" and Target is a directory ("." for the root).
type Route struct {
	Path   string
	Target string
	Kind   Kind
}

// DefaultRoutes is the route table of the celestial tracker page.
var DefaultRoutes = []Route{
	{Path: "/", Target: "index.html", Kind: KindFile},
	{Path: "/script.js", Target: "script.js", Kind: KindFile},
	{Path: "/style.css", Target: "style.css", Kind: KindFile},
	{Path: "/asma.mp3", Target: "assets/asma.mp3", Kind: KindFile},
	{Path: "/assets/", Target: "assets", Kind: KindMount},
	{Path: "/static/", Target: ".", Kind: KindMount},
}
