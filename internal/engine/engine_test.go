package engine

import (
	"testing"
	"time"

	"crm-intelligence/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestEngine opens a fresh in-memory store and pins the clock so decay and
// due-date math is deterministic.
func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	clock := &fakeClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	e := New(db, DefaultParams())
	e.now = clock.Now
	return e, clock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func (c *fakeClock) AdvanceDays(days int) {
	c.now = c.now.AddDate(0, 0, days)
}

func daysAgo(c *fakeClock, days int) time.Time {
	return c.now.AddDate(0, 0, -days)
}
