package utils

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMd(t *testing.T) {
	assert.Equal(t, "a \\* b \\_ c \\` d \\~", EscapeMd("a * b _ c ` d ~"))
	assert.Equal(t, "plain title", EscapeMd("plain title"))
}

func TestPrettyDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{42 * time.Second, "0:42"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{61 * time.Minute, "1:01:00"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2:03:04"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PrettyDuration(tt.in))
	}
}

func TestShuffleSliceKeepsElements(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}
	got := make([]int, len(in))
	copy(got, in)

	ShuffleSlice(got)

	sort.Ints(got)
	assert.Equal(t, in, got)
}
