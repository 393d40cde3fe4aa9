package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Dev-solder124/genAI/memory"
)

func TestRecencyLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		age  time.Duration
		want string
	}{
		{0, "just now"},
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{59*time.Minute + 59*time.Second, "59 minutes ago"},
		{time.Hour, "1 hour ago"},
		{90 * time.Minute, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{47 * time.Hour, "1 day ago"},
		{48 * time.Hour, "2 days ago"},
		{10 * 24 * time.Hour, "10 days ago"},
	}
	for _, tc := range cases {
		got := memory.RecencyLabel(now.Add(-tc.age), now)
		assert.Equal(t, tc.want, got, "age %v", tc.age)
	}
}

func TestRecencyLabelFutureClampsToNow(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", memory.RecencyLabel(now.Add(time.Hour), now))
}
