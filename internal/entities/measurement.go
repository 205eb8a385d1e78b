package entities

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	MeasurementSteps    = "steps"
	MeasurementExercise = "exercise"

	ExerciseHome = "home"
	ExerciseGym  = "gym"

	DefaultStepsGoal  = 7000
	DefaultGoalWeight = 70
)

// Measurement is a single dated fact about a user, at most one per type per day
type Measurement struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	UserID    string          `bson:"userId" json:"userId"`
	Timestamp int64           `bson:"timestamp" json:"timestamp"`
	Type      string          `bson:"type" json:"type"`
	Meta      MeasurementMeta `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt time.Time       `bson:"createdAt,omitempty" json:"createdAt"`
}

// MeasurementMeta is the union of fields used by the known measurement types
type MeasurementMeta struct {
	Value *Number `bson:"value,omitempty" json:"value,omitempty"`

	// exercise
	Type             string  `bson:"type,omitempty" json:"type,omitempty"`
	Rounds           *Number `bson:"rounds,omitempty" json:"rounds,omitempty"`
	Exercises        *Number `bson:"exercises,omitempty" json:"exercises,omitempty"`
	TrainingDay      *Number `bson:"trainingDay,omitempty" json:"trainingDay,omitempty"`
	StrengthProgress bool    `bson:"strengthProgress,omitempty" json:"strengthProgress,omitempty"`
	Feeling          string  `bson:"feeling,omitempty" json:"feeling,omitempty"`
}

func (m Measurement) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// BodyMetric enumerates the body measurements a user submits
type BodyMetric string

const (
	Weight   BodyMetric = "weight"
	Waist    BodyMetric = "waist"
	Shoulder BodyMetric = "shoulder"
	Hip      BodyMetric = "hip"
	Hips     BodyMetric = "hips"
	Chest    BodyMetric = "chest"
)

// BodyMetrics lists the metrics in submission order
var BodyMetrics = []BodyMetric{Weight, Waist, Shoulder, Hip, Hips, Chest}

func ParseBodyMetric(value string) (BodyMetric, error) {
	m := BodyMetric(value)
	if _, err := m.Title(); err != nil {
		return "", err
	}
	return m, nil
}

func (m BodyMetric) Title() (string, error) {
	switch m {
	case Weight:
		return "Вага", nil
	case Waist:
		return "Талія", nil
	case Shoulder:
		return "Плечі", nil
	case Hip:
		return "Стегно", nil
	case Hips:
		return "Стегна", nil
	case Chest:
		return "Груди", nil
	}
	return "", fmt.Errorf("unknown body metric %q", string(m))
}

func (m BodyMetric) Unit() (string, error) {
	switch m {
	case Weight:
		return "кг", nil
	case Waist, Shoulder, Hip, Hips, Chest:
		return "см", nil
	}
	return "", fmt.Errorf("unknown body metric %q", string(m))
}

// Format renders a value with the metric unit
func (m BodyMetric) Format(n Number) string {
	unit, err := m.Unit()
	if err != nil {
		return n.String()
	}
	return n.String() + " " + unit
}

// DayMeasurement is a body measurement of a given day joined with its history,
// as produced by the measurements inline query pipeline
type DayMeasurement struct {
	Type          BodyMetric `bson:"type"`
	Timestamp     int64      `bson:"timestamp"`
	Value         Number     `bson:"value"`
	PreviousValue *Number    `bson:"previousValue,omitempty"`
	StartValue    *Number    `bson:"startValue,omitempty"`
}

type MeasurementsUser struct {
	User         `bson:",inline"`
	Measurements []DayMeasurement `bson:"measurements"`
}
