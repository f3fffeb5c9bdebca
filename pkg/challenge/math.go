package challenge

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
)

var numericAnswer = regexp.MustCompile(`^-?[0-9]+$`)

// Problem is a two-operand arithmetic problem
type Problem struct {
	Left, Right int
	Op          byte // '+', '-' or '*'
}

// Result returns the correct answer
func (p Problem) Result() int {
	switch p.Op {
	case '+':
		return p.Left + p.Right
	case '-':
		return p.Left - p.Right
	default:
		return p.Left * p.Right
	}
}

func (p Problem) String() string {
	op := string(p.Op)
	if p.Op == '*' {
		op = "×"
	}
	return fmt.Sprintf("%d %s %d", p.Left, op, p.Right)
}

// MathState is the current problem and whether the last answer was wrong.
type MathState struct {
	Problem Problem
	Wrong   bool
}

func (MathState) Type() models.DismissType { return models.DismissMath }

// Math asks for the answer to one arithmetic problem. A wrong or malformed
// answer flags Wrong and swaps in a new problem.
type Math struct {
	rng     *rand.Rand
	problem Problem
	wrong   bool
	done    bool
}

func (m *Math) Type() models.DismissType { return models.DismissMath }

func (m *Math) Start(time.Time) []Effect {
	m.done = false
	m.wrong = false
	m.problem = generateProblem(m.rng)
	return nil
}

func (m *Math) Update(in Input) []Effect {
	if m.done {
		return nil
	}
	switch v := in.(type) {
	case Typed:
		// Typing after a wrong answer clears the flash
		m.wrong = false
		return nil
	case Answer:
		text := strings.TrimSpace(v.Text)
		if numericAnswer.MatchString(text) {
			if n, err := strconv.Atoi(text); err == nil && n == m.problem.Result() {
				m.done = true
				m.wrong = false
				return []Effect{Complete{}}
			}
		}
		m.wrong = true
		m.problem = generateProblem(m.rng)
	}
	return nil
}

func (m *Math) Completed() bool { return m.done }

func (m *Math) State() State {
	return MathState{Problem: m.problem, Wrong: m.wrong}
}

// generateProblem keeps results small enough to do half awake: sums up to
// 100, non-negative differences, single-digit by low two-digit products.
func generateProblem(rng *rand.Rand) Problem {
	switch rng.Intn(3) {
	case 0:
		return Problem{Left: 10 + rng.Intn(41), Right: 10 + rng.Intn(41), Op: '+'}
	case 1:
		left := 20 + rng.Intn(61)
		return Problem{Left: left, Right: 1 + rng.Intn(left-1), Op: '-'}
	default:
		return Problem{Left: 2 + rng.Intn(11), Right: 2 + rng.Intn(8), Op: '*'}
	}
}
