package enums

import "fmt"

// Difficulty grades how demanding a tour is.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

var validDifficulties = []Difficulty{
	DifficultyEasy,
	DifficultyMedium,
	DifficultyDifficult,
}

// String implements fmt.Stringer.
func (d Difficulty) String() string {
	return string(d)
}

// IsValid reports whether the difficulty is recognized.
func (d Difficulty) IsValid() bool {
	for _, candidate := range validDifficulties {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDifficulty converts a raw string into a Difficulty.
func ParseDifficulty(value string) (Difficulty, error) {
	for _, candidate := range validDifficulties {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid difficulty %q", value)
}
