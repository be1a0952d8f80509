package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		expected Category
	}{
		{"nginx", CategoryWebServer},
		{"nginx: worker process", CategoryWebServer},
		{"Apache HTTPD", CategoryWebServer},
		{"postgres", CategoryDatabase},
		{"mongod", CategoryDatabase},
		{"redis-server", CategoryDatabase},
		{"node", CategoryDevelopment},
		{"Python3.12", CategoryDevelopment},
		{"svchost", CategorySystem},
		{"systemd-resolved", CategorySystem},
		{"foobar123", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.name))
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// A name matching both the web server and development tables must
	// resolve to the higher-priority category.
	assert.Equal(t, CategoryWebServer, Classify("nginx-node-proxy"))
	// Database outranks development.
	assert.Equal(t, CategoryDatabase, Classify("node-redis"))
}

func TestClassifier_ExtraKeywords(t *testing.T) {
	c := WithExtraKeywords(map[Category][]string{
		CategoryWebServer: {"unicorn"},
		CategoryDatabase:  {" Tarantool "},
	})

	assert.Equal(t, CategoryWebServer, c.Classify("unicorn_rails master"))
	assert.Equal(t, CategoryDatabase, c.Classify("tarantool"))
	// Base tables still apply.
	assert.Equal(t, CategorySystem, c.Classify("sshd"))
	assert.Equal(t, CategoryOther, c.Classify("foobar123"))
}

func TestClassifier_BaseOutranksExtra(t *testing.T) {
	// An extra development keyword cannot demote a base database match.
	c := WithExtraKeywords(map[Category][]string{
		CategoryDevelopment: {"postgres"},
	})
	assert.Equal(t, CategoryDatabase, c.Classify("postgres"))
}
