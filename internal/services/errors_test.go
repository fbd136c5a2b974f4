package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unt-libraries/coda/internal/db/models"
	"gorm.io/gorm"
)

func TestTranslateCreateError(t *testing.T) {
	assert.ErrorIs(t, translateCreateError(gorm.ErrDuplicatedKey), ErrConflict)

	wrapped := fmt.Errorf("insert bag: %w", gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, translateCreateError(wrapped), ErrConflict)

	other := errors.New("connection reset")
	assert.Equal(t, other, translateCreateError(other))
	assert.NoError(t, translateCreateError(nil))
}

// A create that loses the race past the existence check surfaces the
// store's unique-key violation; that violation must still land as the
// conflict sentinel, not an internal error.
func TestDuplicateInsertTranslatesToConflict(t *testing.T) {
	gdb := newTestDB(t)
	require.NoError(t, gdb.Create(&models.Bag{Name: "ark:/67531/coda2"}).Error)

	err := gdb.Create(&models.Bag{Name: "ark:/67531/coda2"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, translateCreateError(err), ErrConflict)
}
