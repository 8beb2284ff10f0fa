package calendar

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWeek(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	week := schedule.GroupWeek([]model.ResolvedInstance{
		{Date: start.AddDate(0, 0, 3), Name: "Ballet", LocationName: "Studio A",
			StartTime: model.NewTimeOfDay(16, 0), EndTime: model.NewTimeOfDay(17, 30), IsRecurring: true},
		{Date: start.AddDate(0, 0, 5), Name: "Showcase rehearsal",
			StartTime: model.NewTimeOfDay(9, 0), EndTime: model.NewTimeOfDay(11, 0)},
	}, start)

	data, err := RenderWeek(week, start.AddDate(0, 0, 3).Add(16*time.Hour))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestHourRangeOf(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	empty := hourRangeOf(schedule.EmptyWeek(start))
	assert.Equal(t, defaultMinHour-hourPaddingTop, empty.start)

	week := schedule.GroupWeek([]model.ResolvedInstance{
		{Date: start, StartTime: model.NewTimeOfDay(9, 15), EndTime: model.NewTimeOfDay(10, 30)},
		{Date: start, StartTime: model.NewTimeOfDay(18, 0), EndTime: model.NewTimeOfDay(19, 0)},
	}, start)
	r := hourRangeOf(week)
	assert.Equal(t, 8, r.start)
	assert.Equal(t, 20, r.end)
	assert.Equal(t, 12, r.total)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Tap", truncate("Tap", 5))
	assert.Equal(t, "Cont…", truncate("Contemporary", 5))
}
