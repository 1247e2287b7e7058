package beatmap

import "strings"

// Difficulty tiers in ascending order.
var Difficulties = []string{"Easy", "Normal", "Hard", "Expert", "ExpertPlus"}

// CanonicalDifficulty returns the tier name with its usual capitalisation,
// e.g. "expertplus" -> "ExpertPlus". Unknown names are returned unchanged.
func CanonicalDifficulty(name string) string {
	for _, d := range Difficulties {
		if strings.EqualFold(d, name) {
			return d
		}
	}
	return name
}

// DifficultyNumber is the numeric id a leaderboard uses for a tier, or -1.
func DifficultyNumber(name string) int {
	switch CanonicalDifficulty(name) {
	case "Easy":
		return 1
	case "Normal":
		return 3
	case "Hard":
		return 5
	case "Expert":
		return 7
	case "ExpertPlus":
		return 9
	}
	return -1
}
