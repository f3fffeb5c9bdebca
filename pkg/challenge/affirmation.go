package challenge

import (
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/borgmon/wakeup/pkg/models"
)

// DefaultPhrases are the affirmations picked from when none are configured.
var DefaultPhrases = []string{
	"I am awake and ready for today",
	"Today is a good day to begin",
	"I choose to rise with energy",
	"I am grateful for this morning",
	"My day starts now",
}

// Mark is the per-character comparison of typed text against the target
type Mark int

const (
	MarkCorrect Mark = iota
	MarkIncorrect
)

// AffirmationState is the target phrase plus render marks for the typed
// text. Extra characters past the target are MarkIncorrect.
type AffirmationState struct {
	Target string
	Typed  string
	Marks  []Mark
}

func (AffirmationState) Type() models.DismissType { return models.DismissAffirmation }

// Affirmation completes once the typed text equals the target, ignoring case.
type Affirmation struct {
	rng     *rand.Rand
	phrases []string
	target  string
	typed   string
	done    bool
}

func (a *Affirmation) Type() models.DismissType { return models.DismissAffirmation }

func (a *Affirmation) Start(time.Time) []Effect {
	a.target = a.phrases[a.rng.Intn(len(a.phrases))]
	a.typed = ""
	a.done = false
	return nil
}

func (a *Affirmation) Update(in Input) []Effect {
	if a.done {
		return nil
	}
	switch v := in.(type) {
	case Typed:
		a.typed = v.Text
	case Answer:
		a.typed = v.Text
	default:
		return nil
	}
	if !strings.EqualFold(a.typed, a.target) {
		return nil
	}
	a.done = true
	return []Effect{Complete{}}
}

func (a *Affirmation) Completed() bool { return a.done }

func (a *Affirmation) State() State {
	return AffirmationState{Target: a.target, Typed: a.typed, Marks: marks(a.typed, a.target)}
}

func marks(typed, target string) []Mark {
	want := []rune(target)
	got := []rune(typed)
	out := make([]Mark, len(got))
	for i, r := range got {
		if i < len(want) && unicode.ToLower(r) == unicode.ToLower(want[i]) {
			out[i] = MarkCorrect
		} else {
			out[i] = MarkIncorrect
		}
	}
	return out
}
