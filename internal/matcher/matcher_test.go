package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
)

func TestValidateQuery(t *testing.T) {
	for _, q := range []string{"Friends", "It's Always Sunny", "Spider-Man 2099", "the office"} {
		assert.NoError(t, ValidateQuery(q), q)
	}
	for _, q := range []string{"", "   ", "Friends!", "Star Wars: Andor", "a&b", "café", `"quoted"`} {
		err := ValidateQuery(q)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%q: %v", q, err)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Star Wars The Clone Wars", Normalize("Star Wars: The Clone Wars"))
	assert.Equal(t, "Its Always Sunny", Normalize("It's Always Sunny"))
	assert.Equal(t, "Mr Robot", Normalize("Mr. Robot"))
	assert.Equal(t, "Yes Minister", Normalize(`"Yes" Minister!`))
	assert.Equal(t, "Spider Man", Normalize("Spider-Man"))
}

func TestSame(t *testing.T) {
	assert.True(t, Same("Its Always Sunny", "It's Always Sunny"))
	assert.True(t, Same("its always sunny", "It's Always Sunny"))
	assert.True(t, Same("spider-man", "Spider Man"))
	assert.True(t, Same("Mr Robot", "Mr. Robot"))
	assert.False(t, Same("Sunny", "It's Always Sunny"))
	assert.False(t, Same("Friends", "Friends with Benefits"))
}

func TestPartition(t *testing.T) {
	type hit struct {
		id   int
		name string
	}
	hits := []hit{{1, "Friends"}, {2, "Friends with Benefits"}, {3, "FRIENDS"}, {4, "Best Friends"}}

	exact, similar := Partition("friends", hits, func(h hit) string { return h.name })
	assert.Equal(t, []hit{{1, "Friends"}, {3, "FRIENDS"}}, exact)
	assert.Equal(t, []hit{{2, "Friends with Benefits"}, {4, "Best Friends"}}, similar)

	exact, similar = Partition("nothing", []hit(nil), func(h hit) string { return h.name })
	assert.Empty(t, exact)
	assert.Empty(t, similar)
}
