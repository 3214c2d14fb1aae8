package storage

import (
	"testing"

	"socialdash/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNullableConversions(t *testing.T) {
	assert.Nil(t, stringPtr(nullString(nil)))
	assert.Equal(t, "x", *stringPtr(nullString(strPtr("x"))))

	assert.Nil(t, floatPtr(nullFloat(nil)))
	assert.Equal(t, 2.5, *floatPtr(nullFloat(floatPtrOf(2.5))))

	assert.Nil(t, pgTextPtr(pgText(nil)))
	assert.Equal(t, "y", *pgTextPtr(pgText(strPtr("y"))))

	assert.Nil(t, pgFloatPtr(pgFloat(nil)))
	assert.Equal(t, 0.0, *pgFloatPtr(pgFloat(floatPtrOf(0))), "zero is a value, not null")
}

func TestSortMetricsByDate(t *testing.T) {
	metrics := []*models.DailyMetric{{Date: "2024-03-10"}, {Date: "2023-12-31"}, {Date: "2024-01-05"}}
	sortMetricsByDate(metrics)
	assert.Equal(t, "2023-12-31", metrics[0].Date)
	assert.Equal(t, "2024-01-05", metrics[1].Date)
	assert.Equal(t, "2024-03-10", metrics[2].Date)
}

func TestMatchPost(t *testing.T) {
	p := &models.Post{UserID: "u1", Platform: models.PlatformTikTok}
	assert.True(t, matchPost(p, "u1", ""))
	assert.True(t, matchPost(p, "u1", models.PlatformTikTok))
	assert.False(t, matchPost(p, "u1", models.PlatformInstagram))
	assert.False(t, matchPost(p, "u2", ""))
}
