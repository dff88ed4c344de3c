// Package session owns the single active exercise session, feeding
// captured frames through the classifier and committing the final
// state to the wallet when the user ends it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gymgate/engine/internal/domain"
	"github.com/gymgate/engine/internal/pose"
	"github.com/gymgate/engine/internal/reward"
	"github.com/gymgate/engine/internal/wallet"
)

// Info describes an active session to the host UI.
type Info struct {
	ID            string              `json:"id"`
	Type          domain.ExerciseType `json:"type"`
	StartedAtUnix int64               `json:"started_at_unix"`
}

// Result is the outcome of an ended session: the computed reward and,
// when minutes were earned, the committed ledger entry ID.
type Result struct {
	Reward  domain.RewardResult `json:"reward"`
	EntryID string              `json:"entry_id,omitempty"`
}

type active struct {
	info       Info
	spec       domain.ExerciseSpec
	classifier *pose.Classifier
	state      domain.ExerciseState
}

// Manager serializes session lifecycle and frame updates. At most one
// session is active at a time; its state is destroyed on End.
type Manager struct {
	catalog map[domain.ExerciseType]domain.ExerciseSpec
	wallet  *wallet.Wallet

	mu      sync.Mutex
	current *active
}

// NewManager creates a session manager over the exercise catalog.
func NewManager(catalog map[domain.ExerciseType]domain.ExerciseSpec, w *wallet.Wallet) *Manager {
	return &Manager{catalog: catalog, wallet: w}
}

// Start begins a session for the given exercise type.
func (m *Manager) Start(exerciseType domain.ExerciseType) (Info, error) {
	spec, ok := m.catalog[exerciseType]
	if !ok {
		return Info{}, domain.ErrUnknownExercise
	}

	classifier, err := pose.New(spec)
	if err != nil {
		return Info{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return Info{}, domain.ErrSessionActive
	}

	m.current = &active{
		info: Info{
			ID:            uuid.NewString(),
			Type:          exerciseType,
			StartedAtUnix: time.Now().Unix(),
		},
		spec:       spec,
		classifier: classifier,
		state:      classifier.NewState(),
	}

	log.Info().Str("session", m.current.info.ID).Str("exercise", string(exerciseType)).Msg("session started")
	return m.current.info, nil
}

// Frame advances the active session by one captured frame and returns
// the updated state for UI feedback.
func (m *Manager) Frame(frame domain.LandmarkFrame, deltaMs float64) (domain.ExerciseState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return domain.ExerciseState{}, domain.ErrNoActiveSession
	}

	m.current.state = m.current.classifier.Update(m.current.state, frame, deltaMs)
	return m.current.state, nil
}

// End finishes the active session: the final state runs through the
// reward calculator, earned minutes are committed to the wallet, and
// the session state is discarded.
func (m *Manager) End(ctx context.Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Result{}, domain.ErrNoActiveSession
	}

	sess := m.current
	result := Result{Reward: reward.Calculate(sess.state, sess.spec)}

	if result.Reward.EarnedMinutes > 0 {
		entry, err := m.wallet.CommitEarn(ctx, result.Reward.EarnedMinutes, "session:"+sess.info.ID)
		if err != nil {
			// Leave the session active so ending can be retried
			// without losing the rep count.
			return Result{}, err
		}
		result.EntryID = entry.ID
	}

	m.current = nil
	log.Info().
		Str("session", sess.info.ID).
		Int("reps", sess.state.RepCount).
		Float64("hold_seconds", sess.state.HoldSeconds).
		Float64("earned", result.Reward.EarnedMinutes).
		Msg("session ended")
	return result, nil
}

// Active returns the current session info, if any.
func (m *Manager) Active() (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Info{}, false
	}
	return m.current.info, true
}
