package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"coach_report_bot/internal/dates"
)

func stageKey(stage bson.D) string {
	return stage[0].Key
}

func lookupOf(t *testing.T, stage bson.D) bson.D {
	t.Helper()
	require.Equal(t, "$lookup", stageKey(stage))
	return stage[0].Value.(bson.D)
}

func field(d bson.D, key string) any {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func TestReportStages(t *testing.T) {
	date := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	day, week, err := ReportWindows(date, "Europe/Kyiv")
	require.NoError(t, err)

	stages := ReportStages(day, week)

	t.Run("Should join every collection in order", func(t *testing.T) {
		var joined []string
		for _, s := range stages {
			if stageKey(s) == "$lookup" {
				joined = append(joined, field(s[0].Value.(bson.D), "as").(string))
			}
		}
		assert.Equal(t, []string{
			"measurements", "allIngredients", "allIngredientsV2", "sets", "setsV2",
			"messages", "notes", "notesV2", "weeklyWorkoutCount",
		}, joined)
		assert.Equal(t, "$match", stageKey(stages[len(stages)-1]))
	})

	t.Run("Should scope measurements by millisecond window", func(t *testing.T) {
		lookup := lookupOf(t, stages[0])
		assert.Equal(t, CollectionMeasurements, field(lookup, "from"))
		match := lookup[2].Value.(bson.A)[0].(bson.D)[0].Value.(bson.D)
		window := field(match, "timestamp").(bson.D)
		assert.Equal(t, day.Start.UnixMilli(), window[0].Value)
		assert.Equal(t, day.End.UnixMilli(), window[1].Value)
		assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), day.Start)
	})

	t.Run("Should read the v2 catalog from v2 collections", func(t *testing.T) {
		lookup := lookupOf(t, stages[2])
		assert.Equal(t, CollectionIngredientsV2, field(lookup, "from"))
		inner := field(lookup, "pipeline").(bson.A)
		categories := inner[1].(bson.D)[0].Value.(bson.D)
		assert.Equal(t, CollectionCategoriesV2, field(categories, "from"))
	})

	t.Run("Should limit first message lookup", func(t *testing.T) {
		inner := field(lookupOf(t, stages[5]), "pipeline").(bson.A)
		assert.Equal(t, bson.D{{Key: "$limit", Value: 1}}, inner[len(inner)-1])
	})

	t.Run("Should fail on invalid timezone", func(t *testing.T) {
		_, _, err := ReportWindows(date, "Nowhere/Land")
		assert.ErrorIs(t, err, dates.ErrInvalidTimezone)
	})
}

func TestCoveringFilter(t *testing.T) {
	filter := CoveringFilter("u1", []string{"a", "b"})
	assert.Equal(t, bson.D{
		{Key: "userId", Value: "u1"},
		{Key: "measurements", Value: bson.D{{Key: "$all", Value: bson.A{
			bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "id", Value: "a"}}}},
			bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "id", Value: "b"}}}},
		}}}},
	}, filter)
}

func TestBodyMeasurementsStages(t *testing.T) {
	day := dates.Range{Start: time.Unix(0, 0), End: time.Unix(86400, 0)}
	stages := BodyMeasurementsStages(day)
	require.Len(t, stages, 2)

	lookup := lookupOf(t, stages[0])
	match := field(lookup, "pipeline").(bson.A)[0].(bson.D)[0].Value.(bson.D)
	kinds := field(match, "type").(bson.D)[0].Value.(bson.A)
	assert.Equal(t, bson.A{"weight", "waist", "shoulder", "hip", "hips", "chest"}, kinds)
	assert.Equal(t, bson.D{{Key: "$match", Value: bson.D{{Key: "measurements", Value: bson.D{{Key: "$ne", Value: bson.A{}}}}}}}, stages[1])
}

func TestReminderPipelines(t *testing.T) {
	start := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)

	t.Run("Should select users without messages since instant", func(t *testing.T) {
		p := WithoutReportPipeline(start)
		require.Len(t, p, 4)
		assert.Equal(t, managedUsers, p[0])
		assert.Equal(t, "$project", stageKey(p[3]))
	})

	t.Run("Should keep latest message for stale users", func(t *testing.T) {
		p := StalePipeline(start, end)
		require.Len(t, p, 3)
		inner := field(lookupOf(t, p[1]), "pipeline").(bson.A)
		assert.Equal(t, bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}}, inner[1])
	})
}
