package classify

import "strings"

// Category buckets a process by what it most likely is, based on its name.
type Category string

const (
	CategoryWebServer   Category = "WebServer"
	CategoryDatabase    Category = "Database"
	CategoryDevelopment Category = "Development"
	CategorySystem      Category = "System"
	CategoryOther       Category = "Other"
)

// AllCategories lists every category in classification priority order.
// The order matters: the first table containing a match wins, so an
// ambiguous name resolves deterministically.
var AllCategories = []Category{
	CategoryWebServer,
	CategoryDatabase,
	CategoryDevelopment,
	CategorySystem,
	CategoryOther,
}

var baseKeywords = map[Category][]string{
	CategoryWebServer: {
		"nginx", "apache", "httpd", "caddy", "traefik", "haproxy",
		"lighttpd", "envoy", "tomcat",
	},
	CategoryDatabase: {
		"postgres", "mysql", "mariadb", "mongo", "redis", "memcached",
		"sqlite", "cassandra", "clickhouse", "elasticsearch", "etcd",
		"influxd", "couchdb",
	},
	CategoryDevelopment: {
		"node", "python", "ruby", "java", "deno", "bun", "php",
		"rails", "webpack", "vite", "npm", "yarn", "flask", "django",
		"gradle", "dotnet", "cargo", "gopls", "tsserver",
	},
	CategorySystem: {
		"svchost", "systemd", "launchd", "sshd", "cupsd", "mdnsresponder",
		"rapportd", "bluetoothd", "windowserver", "kernel", "dbus",
		"networkmanager",
	},
}

// Classify maps a process name to a Category using case-insensitive
// substring matching against the built-in keyword tables. It is stateless
// and cheap enough to call on every render.
func Classify(processName string) Category {
	return classifyWith(processName, nil)
}

// Classifier is a Classify variant carrying extra, user-configured keywords
// layered on top of the built-in tables. Base tables are always consulted
// first within each category tier.
type Classifier struct {
	extra map[Category][]string
}

// WithExtraKeywords builds a Classifier whose tables are extended with the
// given per-category keywords. A nil or empty map behaves like Classify.
func WithExtraKeywords(extra map[Category][]string) *Classifier {
	lowered := make(map[Category][]string, len(extra))
	for cat, words := range extra {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				lowered[cat] = append(lowered[cat], w)
			}
		}
	}
	return &Classifier{extra: lowered}
}

// Classify maps a process name to a Category, consulting base and extra
// keyword tables in priority order.
func (c *Classifier) Classify(processName string) Category {
	return classifyWith(processName, c.extra)
}

func classifyWith(processName string, extra map[Category][]string) Category {
	name := strings.ToLower(processName)
	if name == "" {
		return CategoryOther
	}

	for _, cat := range AllCategories {
		if cat == CategoryOther {
			break
		}
		for _, kw := range baseKeywords[cat] {
			if strings.Contains(name, kw) {
				return cat
			}
		}
		for _, kw := range extra[cat] {
			if strings.Contains(name, kw) {
				return cat
			}
		}
	}
	return CategoryOther
}
