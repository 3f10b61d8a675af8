package domain

import "fmt"

// Difficulty grades how hard a level is expected to be.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Challenge represents one prompt-injection challenge with ordered levels.
type Challenge struct {
	Slug        string  `yaml:"slug" json:"slug"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description" json:"description"`
	Levels      []Level `yaml:"levels" json:"levels"`
}

// Level is the configuration for a single challenge level. The flag and
// instruction template are never exposed to clients.
type Level struct {
	ID           string     `yaml:"-" json:"-"`
	Index        int        `yaml:"index" json:"index"`
	Title        string     `yaml:"title" json:"title"`
	Difficulty   Difficulty `yaml:"difficulty" json:"difficulty"`
	Description  string     `yaml:"description" json:"description"`
	Flag         string     `yaml:"flag" json:"-"`
	Instruction  string     `yaml:"instruction" json:"-"`
	RewardPoints int        `yaml:"reward_points" json:"reward_points"`
}

// LevelID builds the canonical persistent identifier for a challenge level.
func LevelID(slug string, index int) string {
	return fmt.Sprintf("%s:%d", slug, index)
}

// Level returns the level with the given 1-based index, or nil.
func (c *Challenge) Level(index int) *Level {
	for i := range c.Levels {
		if c.Levels[i].Index == index {
			return &c.Levels[i]
		}
	}
	return nil
}
