package refine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	for _, tt := range []struct{ input, want string }{
		{"  hello   world ", "Hello world."},
		{"is it ON?", "Is it on?"},
		{"wow!", "Wow!"},
		{"ünïcode start", "Ünïcode start."},
	} {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestProcess(t *testing.T) {
	r := New(0)

	got := r.Process([]string{"the weather is nice", "it may rain later", "but not today"})
	assert.Equal(t, []string{
		"The weather is nice.",
		"Additionally, It may rain later.",
		"But not today.",
	}, got)
}

func TestRefineSkipsRepeats(t *testing.T) {
	r := New(0)
	r.Process([]string{"the weather is nice"})

	assert.Equal(t, "The weather is nice.", r.Refine("The weather   is nice"))
}

func TestHistoryIsBounded(t *testing.T) {
	r := New(3)
	for i := 0; i < 5; i++ {
		r.Process([]string{fmt.Sprintf("and item %d", i)})
	}
	assert.Equal(t, "And item 2. And item 3. And item 4.", r.Context())
	assert.Len(t, r.history, 3)
}
