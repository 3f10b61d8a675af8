// Package prompt assembles model prompts from level configuration and
// session history. Assembly is a pure transformation with no side effects.
package prompt

import (
	"strings"

	"github.com/ashureev/promptlabs/internal/catalogue"
	"github.com/ashureev/promptlabs/internal/domain"
)

// Assembled is the ordered prompt handed to the model gateway.
type Assembled struct {
	// System carries the rendered hidden instruction for the gateway's
	// dedicated system field.
	System string
	// Turns is the ordered conversation: the instruction duplicated as a
	// synthetic leading user turn, the history in chronological order, and
	// the new message last.
	Turns []domain.Turn
}

// Render substitutes the flag placeholder in an instruction template. A
// template without the placeholder passes through unchanged.
func Render(template, flag string) string {
	return strings.ReplaceAll(template, catalogue.FlagPlaceholder, flag)
}

// Assemble builds the prompt for one model call. The rendered instruction is
// emitted both as the system text and as the first user turn; gateways that
// ignore the system field still see the instruction. newMessage is omitted
// when empty, which is used for metadata-only calls.
func Assemble(template, flag string, history []domain.Turn, newMessage string) Assembled {
	system := Render(template, flag)

	turns := make([]domain.Turn, 0, len(history)+2)
	turns = append(turns, domain.Turn{Role: domain.RoleUser, Content: system})
	turns = append(turns, history...)
	if newMessage != "" {
		turns = append(turns, domain.Turn{Role: domain.RoleUser, Content: newMessage})
	}

	return Assembled{System: system, Turns: turns}
}
