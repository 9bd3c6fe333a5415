package petname

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var lists = [][]string{animals, dishes, names, randomWords, adjectives, extras}

// Generate returns a random two-word, hyphen-joined name drawn from two
// distinct word lists, e.g. "brave-otter".
func Generate() string {
	first := randomIndex(len(lists))
	second := randomIndex(len(lists))
	for second == first {
		second = randomIndex(len(lists))
	}

	a := lists[first][randomIndex(len(lists[first]))]
	b := lists[second][randomIndex(len(lists[second]))]
	return fmt.Sprintf("%s-%s", a, b)
}

// randomIndex returns a cryptographically secure random index in [0, max).
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand failure means the platform's CSPRNG is unavailable,
		// which is unrecoverable for this process.
		panic(fmt.Sprintf("petname: random index: %v", err))
	}
	return int(n.Int64())
}
