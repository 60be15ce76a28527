package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsExclusionViolation(t *testing.T) {
	overlap := &pgconn.PgError{Code: "23P01", ConstraintName: "calendar_holds_no_overlap"}
	assert.True(t, isExclusionViolation(overlap))
	assert.True(t, isExclusionViolation(fmt.Errorf("create hold: %w", overlap)))

	assert.False(t, isExclusionViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isExclusionViolation(errors.New("connection refused")))
	assert.False(t, isExclusionViolation(nil))
}
