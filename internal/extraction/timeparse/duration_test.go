package timeparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDuration(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name    string
		text    string
		minutes int
	}{
		{"numeric minutes", "can we talk for 45 minutes tomorrow", 45},
		{"numeric minutes abbreviated", "a 30 min sync", 30},
		{"numeric hours", "let's book 1 hour", 60},
		{"fractional hours", "need 1.5 hours for this", 90},
		{"hours capped", "a 3 hour meeting to go over everything", 120},
		{"half an hour", "just half an hour should do", 30},
		{"quick chat", "quick chat about the launch?", 15},
		{"catch up", "would love to catch up next week", 30},
		{"one on one", "scheduling our one-on-one", 60},
		{"standup", "daily standup tomorrow", 60},
		{"no signal defaults", "we should discuss the proposal", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.minutes, r.ResolveDuration(tt.text))
		})
	}
}

func TestResolveDuration_CustomCap(t *testing.T) {
	r := NewResolver(WithDurationCap(240))

	assert.Equal(t, 180, r.ResolveDuration("a 3 hour workshop"))
	assert.Equal(t, 240, r.ResolveDuration("an 8 hour offsite"))
}

func TestResolveDuration_NumericBeatsLexical(t *testing.T) {
	r := NewResolver()

	// "catch up" alone means 30, but an explicit number wins.
	assert.Equal(t, 90, r.ResolveDuration("catch up for 90 minutes"))
}
