package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicRank_ClassifiesByFilename(t *testing.T) {
	ranked := heuristicRank([]string{
		"src/system_prompt.txt",
		"src/routes/handler.go",
		"src/utils/helpers.go",
		"README.md",
	})

	byPath := map[string]Priority{}
	for _, r := range ranked {
		byPath[r.Path] = r.Priority
	}

	assert.Equal(t, PriorityHigh, byPath["src/system_prompt.txt"])
	assert.Equal(t, PriorityMedium, byPath["src/routes/handler.go"])
	assert.Equal(t, PriorityHigh, byPath["README.md"])
	_, lowFileRanked := byPath["src/utils/helpers.go"]
	assert.False(t, lowFileRanked, "low-priority files are dropped from the heuristic ranking")
}

func TestHeuristicRank_OrdersHighBeforeMedium(t *testing.T) {
	ranked := heuristicRank([]string{"api/handler.go", "config/agent.yaml"})
	assert.Equal(t, PriorityHigh, ranked[0].Priority)
	assert.Equal(t, PriorityMedium, ranked[1].Priority)
}

func TestCapRanked_EnforcesMax(t *testing.T) {
	ranked := make([]RankedFile, maxRankedFiles+10)
	assert.Len(t, capRanked(ranked), maxRankedFiles)
}
