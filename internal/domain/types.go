// Package domain defines the core types for the GymGate engine.
package domain

import "time"

// ExerciseType identifies an exercise in the catalog.
type ExerciseType string

const (
	ExercisePushup ExerciseType = "pushup"
	ExerciseSquat  ExerciseType = "squat"
	ExercisePlank  ExerciseType = "plank"
)

// ExerciseKind distinguishes rep-counted from duration-held exercises.
type ExerciseKind string

const (
	KindRep  ExerciseKind = "rep"
	KindHold ExerciseKind = "hold"
)

// Position is the classified body position within an exercise.
type Position string

const (
	PositionUp      Position = "up"
	PositionDown    Position = "down"
	PositionNeutral Position = "neutral"
	PositionHolding Position = "holding"
)

// Landmark names a tracked body point in a capture frame.
type Landmark string

const (
	LeftShoulder  Landmark = "left_shoulder"
	RightShoulder Landmark = "right_shoulder"
	LeftElbow     Landmark = "left_elbow"
	RightElbow    Landmark = "right_elbow"
	LeftWrist     Landmark = "left_wrist"
	RightWrist    Landmark = "right_wrist"
	LeftHip       Landmark = "left_hip"
	RightHip      Landmark = "right_hip"
	LeftKnee      Landmark = "left_knee"
	RightKnee     Landmark = "right_knee"
	LeftAnkle     Landmark = "left_ankle"
	RightAnkle    Landmark = "right_ankle"
)

// Point is a single landmark position with its detection confidence.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// LandmarkFrame is one captured frame of body landmarks. Frames are
// ephemeral: the host's capture collaborator produces them and nothing
// persists them.
type LandmarkFrame struct {
	Points map[Landmark]Point `json:"points"`
}

// Visible reports whether the named landmark is present with at least
// the given confidence.
func (f LandmarkFrame) Visible(name Landmark, threshold float64) bool {
	p, ok := f.Points[name]
	return ok && p.Visibility >= threshold
}

// RepSpec configures a joint-angle exercise variant. Each joint is a
// landmark triple whose middle point is the angle vertex.
type RepSpec struct {
	DownAngle  float64     `yaml:"down_angle"`
	UpAngle    float64     `yaml:"up_angle"`
	LeftJoint  [3]Landmark `yaml:"-"`
	RightJoint [3]Landmark `yaml:"-"`
}

// HoldSpec configures a static-hold exercise variant.
type HoldSpec struct {
	MaxTiltDegrees    float64 `yaml:"max_tilt_degrees"`
	MaxAlignmentRatio float64 `yaml:"max_alignment_ratio"`
}

// RewardSpec configures how a finished session converts into earned
// minutes. Units are reps for rep exercises and seconds for holds.
type RewardSpec struct {
	RatePerUnit     float64 `yaml:"rate_per_unit"`
	MinimumUnits    float64 `yaml:"minimum_units"`
	BonusThreshold  float64 `yaml:"bonus_threshold"`
	BonusMultiplier float64 `yaml:"bonus_multiplier"`
}

// ExerciseSpec is the tagged-variant configuration for one exercise
// type. Exactly one of Rep or Hold is set, matching Kind.
type ExerciseSpec struct {
	Type   ExerciseType `yaml:"type"`
	Kind   ExerciseKind `yaml:"kind"`
	Rep    *RepSpec     `yaml:"rep,omitempty"`
	Hold   *HoldSpec    `yaml:"hold,omitempty"`
	Reward RewardSpec   `yaml:"reward"`
}

// ExerciseState is the per-frame state of an active exercise session.
// It is owned exclusively by the session and destroyed when the
// session ends. ClockMs and LastTransitionMs are session-relative
// milliseconds so the classifier stays a pure function of its inputs.
type ExerciseState struct {
	Type             ExerciseType `json:"type"`
	Position         Position     `json:"position"`
	RepCount         int          `json:"rep_count"`
	HoldSeconds      float64      `json:"hold_seconds"`
	ClockMs          float64      `json:"clock_ms"`
	LastTransitionMs float64      `json:"last_transition_ms"`
	Feedback         string       `json:"feedback"`
}

// RewardResult is the immutable outcome of a finished session.
type RewardResult struct {
	Type          ExerciseType `json:"type"`
	EarnedMinutes float64      `json:"earned_minutes"`
	MeetsMinimum  bool         `json:"meets_minimum"`
}

// EntryKind distinguishes ledger credits from debits.
type EntryKind string

const (
	EntryEarn  EntryKind = "earn"
	EntrySpend EntryKind = "spend"
)

// LedgerEntry is one append-only wallet event. Entries are never
// mutated or deleted except by an explicit reset.
type LedgerEntry struct {
	ID        string    `json:"id"`
	Kind      EntryKind `json:"kind"`
	Minutes   float64   `json:"minutes"`
	Source    string    `json:"source"`
	CreatedAt int64     `json:"created_at"`
}

// WalletSnapshot is the derived balance: sum(earn) - sum(spend).
// AvailableMinutes is never negative.
type WalletSnapshot struct {
	AvailableMinutes float64 `json:"available_minutes"`
}

// Schedule is a recurring same-day blocking window on specific
// weekdays. Schedules are created by the settings collaborator and
// read-only to the engine.
type Schedule struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Active bool     `json:"active" yaml:"active"`
	Days   []int    `json:"days" yaml:"days"`
	Start  string   `json:"start" yaml:"start"`
	End    string   `json:"end" yaml:"end"`
	Apps   []string `json:"apps" yaml:"apps"`
}

// DailyLimit caps measured usage for one app within one calendar day.
// UsedMinutes applies to DayKey and resets when the day rolls over.
type DailyLimit struct {
	AppID        string  `json:"app_id"`
	LimitMinutes float64 `json:"limit_minutes"`
	UsedMinutes  float64 `json:"used_minutes"`
	DayKey       string  `json:"day_key"`
}

// Override is a temporary, wallet-funded suspension of blocking for
// one app.
type Override struct {
	AppID          string  `json:"app_id"`
	GrantedMinutes float64 `json:"granted_minutes"`
	ExpiresAtUnix  int64   `json:"expires_at_unix"`
}

// SyncWatermark records the last externally-reported usage batch that
// was applied, guaranteeing at-most-once application.
type SyncWatermark struct {
	LastBatchID    string `json:"last_batch_id"`
	LastReportUnix int64  `json:"last_report_unix"`
}

// UsageReport is one batch from the external usage source. Values are
// measured usage-so-far for DayKey, not deltas.
type UsageReport struct {
	BatchID        string             `json:"batch_id"`
	ReportedAtUnix int64              `json:"reported_at_unix"`
	DayKey         string             `json:"day_key"`
	UsedMinutes    map[string]float64 `json:"used_minutes"`
}

// BlockDecision is the result of evaluating access for one app at one
// instant, with the reasons that produced it.
type BlockDecision struct {
	Blocked bool     `json:"blocked"`
	Reasons []string `json:"reasons,omitempty"`
}

// DayKey formats a time as the calendar-date key used by daily limits
// and applied-usage tracking.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
