package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meltforce/curlcoach/internal/tracker"
)

// ErrNotFound is returned when a preset does not exist for the user.
var ErrNotFound = errors.New("not found")

// ErrEmptyLogin is returned when a user is resolved without a login name.
var ErrEmptyLogin = errors.New("empty login")

// Store persists users and their session presets.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	ListPresets(ctx context.Context, userID int) ([]Preset, error)
	GetPreset(ctx context.Context, userID int, name string) (Preset, error)
	UpsertPreset(ctx context.Context, userID int, p Preset) (Preset, error)
	DeletePreset(ctx context.Context, userID int, name string) error
	Close()
}

// Overrides are optional tracker settings. Nil fields keep the base value.
type Overrides struct {
	TargetReps         *int     `json:"target_reps,omitempty"`
	TargetSets         *int     `json:"target_sets,omitempty"`
	RestSeconds        *int     `json:"rest_seconds,omitempty"`
	DownThreshold      *float64 `json:"down_threshold,omitempty"`
	UpThreshold        *float64 `json:"up_threshold,omitempty"`
	PostureDeviation   *float64 `json:"posture_deviation,omitempty"`
	TorsoTolerance     *float64 `json:"torso_tolerance,omitempty"`
	PostureStreakLimit *int     `json:"posture_streak_limit,omitempty"`
}

// Apply returns base with the set fields replaced. The result is not validated.
func (o Overrides) Apply(base tracker.Config) tracker.Config {
	if o.TargetReps != nil {
		base.TargetReps = *o.TargetReps
	}
	if o.TargetSets != nil {
		base.TargetSets = *o.TargetSets
	}
	if o.RestSeconds != nil {
		base.RestDuration = time.Duration(*o.RestSeconds) * time.Second
	}
	if o.DownThreshold != nil {
		base.DownThreshold = *o.DownThreshold
	}
	if o.UpThreshold != nil {
		base.UpThreshold = *o.UpThreshold
	}
	if o.PostureDeviation != nil {
		base.PostureDeviation = *o.PostureDeviation
	}
	if o.TorsoTolerance != nil {
		base.TorsoTolerance = *o.TorsoTolerance
	}
	if o.PostureStreakLimit != nil {
		base.PostureStreakLimit = *o.PostureStreakLimit
	}
	return base
}

// Preset is a named tracker configuration owned by a user.
type Preset struct {
	Name      string    `json:"name"`
	Settings  Overrides `json:"settings"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrackerConfig overlays the preset onto base.
func (p Preset) TrackerConfig(base tracker.Config) tracker.Config {
	return p.Settings.Apply(base)
}

func encodeSettings(o Overrides) (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("encoding preset settings: %w", err)
	}
	return string(b), nil
}

func decodeSettings(raw []byte) (Overrides, error) {
	var o Overrides
	if len(raw) == 0 {
		return o, nil
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return o, fmt.Errorf("decoding preset settings: %w", err)
	}
	return o, nil
}
