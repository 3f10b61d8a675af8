// Package catalogue loads and resolves the static challenge catalogue.
//
// The catalogue is read once at startup and never mutated afterwards, so
// lookups need no locking.
package catalogue

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/promptlabs/internal/domain"
)

// ErrNotFound is returned when a challenge or level does not exist.
var ErrNotFound = errors.New("challenge or level not found")

// FlagPlaceholder is the only substitution token recognized in instruction
// templates.
const FlagPlaceholder = "${flag}"

var placeholderPattern = regexp.MustCompile(`\$\{[^}]*\}`)

// Catalogue resolves (challenge slug, level index) to level configuration.
type Catalogue struct {
	challenges map[string]*domain.Challenge
	order      []string
}

type catalogueFile struct {
	Challenges []domain.Challenge `yaml:"challenges"`
}

// Load parses a catalogue from YAML bytes and validates it.
func Load(data []byte) (*Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	if len(file.Challenges) == 0 {
		return nil, fmt.Errorf("catalogue contains no challenges")
	}

	c := &Catalogue{challenges: make(map[string]*domain.Challenge)}
	for i := range file.Challenges {
		ch := &file.Challenges[i]
		if err := validateChallenge(ch); err != nil {
			return nil, err
		}
		if _, exists := c.challenges[ch.Slug]; exists {
			return nil, fmt.Errorf("duplicate challenge slug %q", ch.Slug)
		}
		for j := range ch.Levels {
			ch.Levels[j].ID = domain.LevelID(ch.Slug, ch.Levels[j].Index)
		}
		c.challenges[ch.Slug] = ch
		c.order = append(c.order, ch.Slug)
	}
	return c, nil
}

// LoadFile reads and parses a catalogue from a YAML file on disk.
func LoadFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue file: %w", err)
	}
	return Load(data)
}

func validateChallenge(ch *domain.Challenge) error {
	if ch.Slug == "" {
		return fmt.Errorf("challenge with empty slug")
	}
	if ch.Title == "" {
		return fmt.Errorf("challenge %q: empty title", ch.Slug)
	}
	if len(ch.Levels) == 0 {
		return fmt.Errorf("challenge %q: no levels", ch.Slug)
	}
	for i := range ch.Levels {
		lvl := &ch.Levels[i]
		if lvl.Index != i+1 {
			return fmt.Errorf("challenge %q: level indexes must be contiguous from 1, got %d at position %d", ch.Slug, lvl.Index, i)
		}
		if lvl.Flag == "" {
			return fmt.Errorf("challenge %q level %d: empty flag", ch.Slug, lvl.Index)
		}
		if lvl.Instruction == "" {
			return fmt.Errorf("challenge %q level %d: empty instruction template", ch.Slug, lvl.Index)
		}
		if lvl.RewardPoints <= 0 {
			return fmt.Errorf("challenge %q level %d: reward_points must be > 0", ch.Slug, lvl.Index)
		}
		if err := validateTemplate(lvl.Instruction); err != nil {
			return fmt.Errorf("challenge %q level %d: %w", ch.Slug, lvl.Index, err)
		}
		switch lvl.Difficulty {
		case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
		default:
			return fmt.Errorf("challenge %q level %d: unknown difficulty %q", ch.Slug, lvl.Index, lvl.Difficulty)
		}
	}
	return nil
}

// validateTemplate rejects templates referencing any placeholder other than
// the flag token. A template without any placeholder is allowed and passes
// through substitution unchanged.
func validateTemplate(template string) error {
	for _, m := range placeholderPattern.FindAllString(template, -1) {
		if m != FlagPlaceholder {
			return fmt.Errorf("unknown placeholder %q in instruction template", m)
		}
	}
	return nil
}

// Resolve returns the challenge and level configuration for the given slug
// and 1-based level index, or ErrNotFound.
func (c *Catalogue) Resolve(slug string, levelIndex int) (*domain.Challenge, *domain.Level, error) {
	ch, ok := c.challenges[slug]
	if !ok {
		return nil, nil, fmt.Errorf("challenge %q: %w", slug, ErrNotFound)
	}
	lvl := ch.Level(levelIndex)
	if lvl == nil {
		return nil, nil, fmt.Errorf("challenge %q level %d: %w", slug, levelIndex, ErrNotFound)
	}
	return ch, lvl, nil
}

// Challenge returns a challenge by slug, or ErrNotFound.
func (c *Catalogue) Challenge(slug string) (*domain.Challenge, error) {
	ch, ok := c.challenges[slug]
	if !ok {
		return nil, fmt.Errorf("challenge %q: %w", slug, ErrNotFound)
	}
	return ch, nil
}

// Challenges returns the challenges in catalogue order.
func (c *Catalogue) Challenges() []*domain.Challenge {
	out := make([]*domain.Challenge, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.challenges[slug])
	}
	return out
}

// Slugs returns all challenge slugs in catalogue order.
func (c *Catalogue) Slugs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
