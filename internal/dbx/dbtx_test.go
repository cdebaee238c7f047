package dbx

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolApply(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	SmallPool().Apply(db)
	assert.Equal(t, 8, db.Stats().MaxOpenConnections)

	Pool{}.Apply(db)
	assert.Equal(t, 8, db.Stats().MaxOpenConnections, "zero pool keeps previous settings")
}
