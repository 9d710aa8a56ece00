// Package session holds the transient per-session state: daily goals and
// nothing else. Goals are never persisted; every process start resets them
// to the defaults, which is the intended behavior, not an oversight.
package session

import (
	"errors"
	"fmt"
	"sync"
)

const (
	DefaultCalorieGoal = 2200
	MinCalorieGoal     = 1000
	MaxCalorieGoal     = 5000

	DefaultProteinGoal = 130
	MinProteinGoal     = 30
	MaxProteinGoal     = 300
)

var ErrGoalOutOfBounds = errors.New("goal out of bounds")

// Goals are the user-settable daily targets.
type Goals struct {
	Calories     int `json:"calories"`
	ProteinGrams int `json:"protein_grams"`
}

func DefaultGoals() Goals {
	return Goals{Calories: DefaultCalorieGoal, ProteinGrams: DefaultProteinGoal}
}

func (g Goals) Validate() error {
	if g.Calories < MinCalorieGoal || g.Calories > MaxCalorieGoal {
		return fmt.Errorf("calorie goal %d: %w (allowed %d-%d)",
			g.Calories, ErrGoalOutOfBounds, MinCalorieGoal, MaxCalorieGoal)
	}
	if g.ProteinGrams < MinProteinGoal || g.ProteinGrams > MaxProteinGoal {
		return fmt.Errorf("protein goal %d: %w (allowed %d-%d)",
			g.ProteinGrams, ErrGoalOutOfBounds, MinProteinGoal, MaxProteinGoal)
	}
	return nil
}

// State is the explicit session state object handlers share. No package
// globals; construct one at startup and pass it in.
type State struct {
	mu    sync.RWMutex
	goals Goals
}

func NewState() *State {
	return &State{goals: DefaultGoals()}
}

func (s *State) Goals() Goals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goals
}

// SetGoals replaces the session goals after bounds checking. The bounds are
// what guarantee ProgressPercent's positive-goal precondition.
func (s *State) SetGoals(g Goals) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.goals = g
	s.mu.Unlock()
	return nil
}
