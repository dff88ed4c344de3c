// Package pose classifies streams of body-landmark frames into
// exercise positions, counted repetitions, and held-duration seconds.
package pose

import (
	"fmt"

	"github.com/gymgate/engine/internal/domain"
)

// VisibilityThreshold is the minimum per-point confidence for a
// landmark to participate in classification.
const VisibilityThreshold = 0.5

// Feedback strings. Invalid frames only ever change feedback, never
// counters.
const (
	FeedbackNotVisible = "Can't see you, move into view of the camera"
	FeedbackDown       = "Good depth, now push back up"
	FeedbackUp         = "Ready, lower yourself down"
	FeedbackNeutral    = "Keep moving through the full range"
	FeedbackHolding    = "Hold it right there"
	FeedbackLineUp     = "Straighten out, keep your body in one line"
)

// Classifier turns landmark frames into exercise state transitions for
// one configured exercise. Update is a pure function of the previous
// state, the frame, and the elapsed time.
type Classifier struct {
	spec domain.ExerciseSpec
}

// New creates a classifier for the given exercise spec.
func New(spec domain.ExerciseSpec) (*Classifier, error) {
	switch spec.Kind {
	case domain.KindRep:
		if spec.Rep == nil {
			return nil, domain.ErrSpecMismatch
		}
	case domain.KindHold:
		if spec.Hold == nil {
			return nil, domain.ErrSpecMismatch
		}
	default:
		return nil, domain.ErrUnknownExercise
	}
	return &Classifier{spec: spec}, nil
}

// NewState returns the initial state for a session of this exercise.
func (c *Classifier) NewState() domain.ExerciseState {
	return domain.ExerciseState{
		Type:     c.spec.Type,
		Position: domain.PositionNeutral,
		Feedback: FeedbackNeutral,
	}
}

// Update advances the state by one frame. deltaMs is the elapsed time
// since the previous frame in milliseconds.
func (c *Classifier) Update(state domain.ExerciseState, frame domain.LandmarkFrame, deltaMs float64) domain.ExerciseState {
	state.ClockMs += deltaMs

	if c.spec.Kind == domain.KindHold {
		return c.updateHold(state, frame, deltaMs)
	}
	return c.updateRep(state, frame)
}

func (c *Classifier) updateRep(state domain.ExerciseState, frame domain.LandmarkFrame) domain.ExerciseState {
	angle, ok := c.jointAngle(frame)
	if !ok {
		state.Feedback = FeedbackNotVisible
		return state
	}

	var pos domain.Position
	switch {
	case angle < c.spec.Rep.DownAngle:
		pos = domain.PositionDown
	case angle > c.spec.Rep.UpAngle:
		pos = domain.PositionUp
	default:
		pos = domain.PositionNeutral
	}

	if pos == state.Position {
		state.Feedback = repFeedback(pos)
		return state
	}

	// A rep counts exactly on the down -> up edge. Passing through
	// neutral in between neither counts nor resets.
	if state.Position == domain.PositionDown && pos == domain.PositionUp {
		state.RepCount++
		state.Feedback = fmt.Sprintf("That's %d!", state.RepCount)
	} else {
		state.Feedback = repFeedback(pos)
	}
	state.Position = pos
	state.LastTransitionMs = state.ClockMs
	return state
}

func (c *Classifier) updateHold(state domain.ExerciseState, frame domain.LandmarkFrame, deltaMs float64) domain.ExerciseState {
	tilt, ratio, ok := bodyLine(frame)
	if !ok {
		state.Feedback = FeedbackNotVisible
		return state
	}

	holding := tilt <= c.spec.Hold.MaxTiltDegrees && ratio < c.spec.Hold.MaxAlignmentRatio

	pos := domain.PositionNeutral
	if holding {
		pos = domain.PositionHolding
	}

	// Seconds accrue only while consecutive frames both hold. Dropping
	// out stops accrual without subtracting anything.
	if pos == domain.PositionHolding && state.Position == domain.PositionHolding {
		state.HoldSeconds += deltaMs / 1000
	}

	if pos != state.Position {
		state.Position = pos
		state.LastTransitionMs = state.ClockMs
	}
	if pos == domain.PositionHolding {
		state.Feedback = FeedbackHolding
	} else {
		state.Feedback = FeedbackLineUp
	}
	return state
}

// jointAngle computes the joint angle averaged over the sides whose
// landmark triples are all visible. Reports false when neither side
// qualifies.
func (c *Classifier) jointAngle(frame domain.LandmarkFrame) (float64, bool) {
	var sum float64
	var sides int

	for _, joint := range [][3]domain.Landmark{c.spec.Rep.LeftJoint, c.spec.Rep.RightJoint} {
		if !frame.Visible(joint[0], VisibilityThreshold) ||
			!frame.Visible(joint[1], VisibilityThreshold) ||
			!frame.Visible(joint[2], VisibilityThreshold) {
			continue
		}
		sum += angleAt(frame.Points[joint[0]], frame.Points[joint[1]], frame.Points[joint[2]])
		sides++
	}

	if sides == 0 {
		return 0, false
	}
	return sum / float64(sides), true
}

// bodyLine computes the shoulder-to-ankle line tilt from horizontal
// and the alignment ratio (shoulder->hip + hip->ankle over the direct
// shoulder->ankle distance). A ratio near 1 means the body forms a
// straight line; sagging or jack-knifing pushes it up.
func bodyLine(frame domain.LandmarkFrame) (tilt, ratio float64, ok bool) {
	required := []domain.Landmark{
		domain.LeftShoulder, domain.RightShoulder,
		domain.LeftHip, domain.RightHip,
		domain.LeftAnkle, domain.RightAnkle,
	}
	for _, lm := range required {
		if !frame.Visible(lm, VisibilityThreshold) {
			return 0, 0, false
		}
	}

	shoulder := midpoint(frame.Points[domain.LeftShoulder], frame.Points[domain.RightShoulder])
	hip := midpoint(frame.Points[domain.LeftHip], frame.Points[domain.RightHip])
	ankle := midpoint(frame.Points[domain.LeftAnkle], frame.Points[domain.RightAnkle])

	direct := distance(shoulder, ankle)
	if direct < 1e-9 {
		return 0, 0, false
	}

	tilt = tiltDegrees(shoulder, ankle)
	ratio = (distance(shoulder, hip) + distance(hip, ankle)) / direct
	return tilt, ratio, true
}

func repFeedback(pos domain.Position) string {
	switch pos {
	case domain.PositionDown:
		return FeedbackDown
	case domain.PositionUp:
		return FeedbackUp
	default:
		return FeedbackNeutral
	}
}
