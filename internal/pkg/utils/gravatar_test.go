package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetGravatarURL(t *testing.T) {
	url := GetGravatarURL("Laura@Example.com ", 80)

	// Hash of the trimmed, lowercased address.
	assert.Contains(t, url, "https://www.gravatar.com/avatar/")
	assert.Contains(t, url, "s=80")
	assert.Equal(t, GetGravatarURL("laura@example.com", 80), url)
}

func TestGetGravatarURLDefaultSize(t *testing.T) {
	assert.Contains(t, GetGravatarURL("laura@example.com", 0), "s=200")
}
