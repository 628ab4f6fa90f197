package platform

import "regexp"

// Platform names
const (
	YouTube   = "youtube"
	TikTok    = "tiktok"
	Instagram = "instagram"
	Facebook  = "facebook"
	Twitter   = "twitter"
	Reddit    = "reddit"
	Vimeo     = "vimeo"
	Direct    = "direct"
)

// Role names what a capture group holds
type Role string

const (
	RoleContentID Role = "content_id"
	RoleUsername  Role = "username"
	RoleSubreddit Role = "subreddit"
)

// Rule is a single URL shape of a platform. Roles[i] names capture group i+1.
type Rule struct {
	Pattern *regexp.Regexp
	Roles   []Role
}

// Definition describes one supported platform
type Definition struct {
	Name    string
	Rules   []Rule
	Aliases []string
	// Template builds the canonical URL from the content id. Empty keeps
	// platform URLs as they are.
	Template string
}

func rule(pattern string, roles ...Role) Rule {
	if len(roles) == 0 {
		roles = []Role{RoleContentID}
	}
	return Rule{
		Pattern: regexp.MustCompile(`(?i)` + pattern),
		Roles:   roles,
	}
}

// VideoExtensions lists the file extensions recognised as direct links
var VideoExtensions = []string{
	".mp4", ".avi", ".mov", ".mkv", ".webm", ".flv", ".m4v",
	".3gp", ".wmv", ".ogv", ".mpg", ".mpeg", ".m2v", ".divx",
	".ts", ".mts", ".m2ts", ".vob", ".asf", ".rm", ".rmvb", ".f4v",
}

// definitions is tried in order and the first match wins. Direct must stay
// last: platform URLs may end in a video-like extension.
var definitions = []Definition{
	{
		Name: YouTube,
		Rules: []Rule{
			rule(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?music\.youtube\.com/watch\?v=([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?youtube\.com/playlist\?list=([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?youtube\.com/live/([a-zA-Z0-9_-]+)`),
		},
		Aliases:  []string{"youtube.com", "youtu.be", "music.youtube.com", "m.youtube.com"},
		Template: "https://www.youtube.com/watch?v={id}",
	},
	{
		Name: TikTok,
		Rules: []Rule{
			rule(`(?:https?://)?(?:www\.)?tiktok\.com/@([\w.-]+)/video/(\d+)`, RoleUsername, RoleContentID),
			rule(`(?:https?://)?(?:vm\.tiktok\.com|vt\.tiktok\.com)/([a-zA-Z0-9]+)`),
			rule(`(?:https?://)?(?:www\.)?tiktok\.com/t/([a-zA-Z0-9]+)`),
			rule(`(?:https?://)?m\.tiktok\.com/v/(\d+)`),
		},
		Aliases: []string{"tiktok.com", "vm.tiktok.com", "vt.tiktok.com", "m.tiktok.com"},
	},
	{
		Name: Instagram,
		Rules: []Rule{
			rule(`(?:https?://)?(?:www\.)?instagram\.com/p/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?instagram\.com/reel/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?instagram\.com/tv/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?(?:www\.)?instagram\.com/stories/[\w.-]+/(\d+)`),
		},
		Aliases:  []string{"instagram.com", "www.instagram.com"},
		Template: "https://www.instagram.com/p/{id}/",
	},
	{
		Name: Facebook,
		Rules: []Rule{
			rule(`(?:https?://)?(?:www\.)?facebook\.com/watch/?\?v=(\d+)`),
			rule(`(?:https?://)?(?:www\.)?facebook\.com/[\w.-]+/videos/(\d+)`),
			rule(`(?:https?://)?(?:www\.)?facebook\.com/video\.php\?v=(\d+)`),
			rule(`(?:https?://)?(?:fb\.watch)/([a-zA-Z0-9_-]+)`),
			rule(`(?:https?://)?m\.facebook\.com/watch/?\?v=(\d+)`),
		},
		Aliases:  []string{"facebook.com", "fb.watch", "m.facebook.com"},
		Template: "https://www.facebook.com/watch/?v={id}",
	},
	{
		Name: Twitter,
		Rules: []Rule{
			rule(`(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/(\w+)/status/(\d+)`, RoleUsername, RoleContentID),
			rule(`(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/i/web/status/(\d+)`),
			rule(`(?:https?://)?mobile\.(?:twitter\.com|x\.com)/(\w+)/status/(\d+)`, RoleUsername, RoleContentID),
		},
		Aliases:  []string{"twitter.com", "x.com", "mobile.twitter.com", "mobile.x.com"},
		Template: "https://twitter.com/i/web/status/{id}",
	},
	{
		Name: Reddit,
		Rules: []Rule{
			rule(`(?:https?://)?(?:www\.)?reddit\.com/r/(\w+)/comments/([a-zA-Z0-9]+)`, RoleSubreddit, RoleContentID),
			rule(`(?:https?://)?(?:v\.redd\.it)/([a-zA-Z0-9]+)`),
			rule(`(?:https?://)?old\.reddit\.com/r/(\w+)/comments/([a-zA-Z0-9]+)`, RoleSubreddit, RoleContentID),
			rule(`(?:https?://)?m\.reddit\.com/r/(\w+)/comments/([a-zA-Z0-9]+)`, RoleSubreddit, RoleContentID),
		},
		Aliases: []string{"reddit.com", "v.redd.it", "old.reddit.com", "m.reddit.com"},
	},
	{
		Name: Vimeo,
		Rules: []Rule{
			rule(`(?:https?://)?(?:www\.)?vimeo\.com/(\d+)`),
			rule(`(?:https?://)?(?:player\.)?vimeo\.com/video/(\d+)`),
			rule(`(?:https?://)?vimeo\.com/ondemand/[\w-]+/(\d+)`),
			rule(`(?:https?://)?vimeo\.com/channels/[\w-]+/(\d+)`),
		},
		Aliases:  []string{"vimeo.com", "player.vimeo.com"},
		Template: "https://vimeo.com/{id}",
	},
	{
		Name: Direct,
		Rules: []Rule{
			{Pattern: regexp.MustCompile(`(?i).*\.(?:mp4|avi|mov|mkv|webm|flv|m4v|3gp|wmv|ogv|mpg|mpeg|m2v|divx)(?:\?.*)?$`)},
			{Pattern: regexp.MustCompile(`(?i).*\.(?:ts|mts|m2ts|vob|asf|rm|rmvb|f4v)(?:\?.*)?$`)},
		},
	},
}

// Definitions returns the platform table in match order
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
