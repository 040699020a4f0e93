// Package captcha generates the arithmetic anti-automation challenges
// shown on the authentication forms. The expected answer is kept in the
// session and never echoed to the client.
package captcha

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Challenge is a question/answer pair bound to one session. A challenge
// is single-use: after any verification attempt a fresh one must be
// issued in its place.
type Challenge struct {
	Question string
	Answer   int
}

// New produces a challenge with two random operands in 1..10 and their
// sum as the expected answer.
func New() Challenge {
	a := rand.IntN(10) + 1
	b := rand.IntN(10) + 1
	return Challenge{
		Question: fmt.Sprintf("What is %d + %d?", a, b),
		Answer:   a + b,
	}
}

// Verify checks a provided answer against the expected one using strict
// integer equality. A missing or non-numeric answer fails.
func Verify(expected int, provided string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(provided))
	if err != nil {
		return false
	}
	return n == expected
}
