package entities

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is one report or communication sent (or withheld) to a receiver
type Message struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID     string        `bson:"userId" json:"userId"`
	Content    string        `bson:"content" json:"content"`
	ReceiverID int64         `bson:"receiverId" json:"receiverId"`
	// DidntSend marks content withheld on a non-reporting day, carried into the next send
	DidntSend bool `bson:"didntSend,omitempty" json:"didntSend,omitempty"`
	// Day is the report day key, unique per user
	Day       string    `bson:"day,omitempty" json:"day,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type MeasurementValue struct {
	ID         string     `bson:"id,omitempty" json:"id,omitempty"`
	Kind       BodyMetric `bson:"type" json:"type"`
	Value      Number     `bson:"value" json:"value"`
	LastValue  *Number    `bson:"lastValue,omitempty" json:"lastValue,omitempty"`
	StartValue *Number    `bson:"startValue,omitempty" json:"startValue,omitempty"`
	Goal       *Number    `bson:"goal,omitempty" json:"goal,omitempty"`
}

// MeasurementMessage records one measurement submission notification; the set of
// measurement ids is the dedup key
type MeasurementMessage struct {
	ID           bson.ObjectID      `bson:"_id,omitempty" json:"_id"`
	UserID       string             `bson:"userId" json:"userId"`
	ReceiverID   int64              `bson:"receiverId" json:"receiverId"`
	Measurements []MeasurementValue `bson:"measurements" json:"measurements"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IDs returns the ids of the submitted measurements
func (m *MeasurementMessage) IDs() []string {
	ids := make([]string, 0, len(m.Measurements))
	for _, v := range m.Measurements {
		if v.ID != "" {
			ids = append(ids, v.ID)
		}
	}
	return ids
}
