package server

import (
	"hash/fnv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// markerPalette is the fixed set of player colors. Assignment is a pure
// function of the nickname so every client renders the same color without
// coordination.
var markerPalette = []string{
	"#EF4444", "#F59E0B", "#10B981", "#3B82F6", "#8B5CF6",
	"#EC4899", "#14B8A6", "#F97316", "#06B6D4", "#84CC16",
}

func nicknameColor(nickname string) string {
	h := fnv.New32a()
	h.Write([]byte(nickname))
	return markerPalette[h.Sum32()%uint32(len(markerPalette))]
}

// randomNickname composes a three-part nickname like "BrightCrimsonOtter".
func randomNickname(faker *gofakeit.Faker) string {
	return camel(faker.AdjectiveDescriptive()) + camel(faker.Color()) + camel(faker.Animal())
}

// camel upper-cases the first letter of each word and strips the spaces, so
// multi-word sources still yield a single token.
func camel(s string) string {
	var b strings.Builder
	for _, word := range strings.Fields(s) {
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}
