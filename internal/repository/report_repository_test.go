package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"coach_report_bot/internal/entities"
)

type fakeCursor struct {
	rows []bson.D
	pos  int
	err  error
}

func (c *fakeCursor) Next(context.Context) bool {
	if c.err != nil || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Err() error { return c.err }

func (c *fakeCursor) Decode(val any) error {
	raw, err := bson.Marshal(c.rows[c.pos-1])
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, val)
}

// withSteps applies the type condition of RequireStepsStage to user rows
func withSteps(t *testing.T, rows []bson.D) []bson.D {
	t.Helper()
	stage := RequireStepsStage()
	require.Equal(t, "$match", stageKey(stage))
	elem := field(field(stage[0].Value.(bson.D), "measurements").(bson.D), "$elemMatch").(bson.D)
	want := field(elem, "type")

	var out []bson.D
	for _, row := range rows {
		measurements, _ := field(row, "measurements").(bson.A)
		for _, m := range measurements {
			if field(m.(bson.D), "type") == want {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func userRow(id bson.ObjectID, types ...string) bson.D {
	measurements := bson.A{}
	for _, kind := range types {
		measurements = append(measurements, bson.D{{Key: "type", Value: kind}, {Key: "userId", Value: id.Hex()}})
	}
	return bson.D{{Key: "_id", Value: id}, {Key: "measurements", Value: measurements}}
}

func TestFirstDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("Should report not found when the user has no steps", func(t *testing.T) {
		rows := withSteps(t, []bson.D{userRow(bson.NewObjectID(), entities.MeasurementExercise)})
		_, err := firstDocument[entities.ReportUser](ctx, &fakeCursor{rows: rows})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Should decode the user with steps", func(t *testing.T) {
		id := bson.NewObjectID()
		rows := withSteps(t, []bson.D{userRow(id, entities.MeasurementExercise, entities.MeasurementSteps)})
		user, err := firstDocument[entities.ReportUser](ctx, &fakeCursor{rows: rows})
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Len(t, user.Measurements, 2)
	})

	t.Run("Should surface cursor errors", func(t *testing.T) {
		failure := errors.New("connection reset")
		_, err := firstDocument[entities.ReportUser](ctx, &fakeCursor{err: failure})
		assert.ErrorIs(t, err, failure)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestReportStagesRequireSteps(t *testing.T) {
	day, week, err := ReportWindows(time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), "Europe/Kyiv")
	require.NoError(t, err)
	stages := ReportStages(day, week)
	assert.Equal(t, RequireStepsStage(), stages[len(stages)-1])
}
