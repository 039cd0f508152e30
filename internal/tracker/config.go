package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid tracker config")

// Config holds the per-session targets and thresholds. It is fixed once a
// session is created. In JSON the rest duration is rest_seconds.
type Config struct {
	TargetReps   int           `json:"target_reps"`
	TargetSets   int           `json:"target_sets"`
	RestDuration time.Duration `json:"-"`

	// DownThreshold and UpThreshold bound the elbow-angle hysteresis band, in degrees.
	DownThreshold float64 `json:"down_threshold"`
	UpThreshold   float64 `json:"up_threshold"`

	// PostureDeviation is the upper-arm vs torso orientation difference that
	// counts as a bad tick. TorsoTolerance is the allowed torso lean from vertical.
	PostureDeviation   float64 `json:"posture_deviation"`
	TorsoTolerance     float64 `json:"torso_tolerance"`
	PostureStreakLimit int     `json:"posture_streak_limit"`
}

// DefaultConfig returns the standard 3x10 curl workout with 30 s rests.
func DefaultConfig() Config {
	return Config{
		TargetReps:         10,
		TargetSets:         3,
		RestDuration:       30 * time.Second,
		DownThreshold:      90,
		UpThreshold:        160,
		PostureDeviation:   10,
		TorsoTolerance:     10,
		PostureStreakLimit: 5,
	}
}

// Validate reports the first inconsistent field. Values are never clamped.
func (c Config) Validate() error {
	switch {
	case c.TargetReps <= 0:
		return fmt.Errorf("%w: target_reps must be positive, got %d", ErrInvalidConfig, c.TargetReps)
	case c.TargetSets <= 0:
		return fmt.Errorf("%w: target_sets must be positive, got %d", ErrInvalidConfig, c.TargetSets)
	case c.RestDuration < time.Second:
		return fmt.Errorf("%w: rest duration must be at least 1s, got %s", ErrInvalidConfig, c.RestDuration)
	case c.RestDuration%time.Second != 0:
		return fmt.Errorf("%w: rest duration must be whole seconds, got %s", ErrInvalidConfig, c.RestDuration)
	case c.DownThreshold <= 0:
		return fmt.Errorf("%w: down_threshold must be positive, got %v", ErrInvalidConfig, c.DownThreshold)
	case c.UpThreshold > 180:
		return fmt.Errorf("%w: up_threshold must be at most 180, got %v", ErrInvalidConfig, c.UpThreshold)
	case c.DownThreshold >= c.UpThreshold:
		return fmt.Errorf("%w: down_threshold %v must be below up_threshold %v", ErrInvalidConfig, c.DownThreshold, c.UpThreshold)
	case c.PostureDeviation <= 0:
		return fmt.Errorf("%w: posture_deviation must be positive, got %v", ErrInvalidConfig, c.PostureDeviation)
	case c.TorsoTolerance <= 0:
		return fmt.Errorf("%w: torso_tolerance must be positive, got %v", ErrInvalidConfig, c.TorsoTolerance)
	case c.PostureStreakLimit < 0:
		return fmt.Errorf("%w: posture_streak_limit must not be negative, got %d", ErrInvalidConfig, c.PostureStreakLimit)
	}
	return nil
}

type configFields Config

type configJSON struct {
	configFields
	RestSeconds int `json:"rest_seconds"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{configFields(c), int(c.RestDuration / time.Second)})
}

func (c *Config) UnmarshalJSON(b []byte) error {
	var v configJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Config(v.configFields)
	c.RestDuration = time.Duration(v.RestSeconds) * time.Second
	return nil
}
