package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/pkg/metrics"
)

func newNodeService(t *testing.T) *NodeService {
	t.Helper()
	return NewNodeService(newTestDB(t), testLogger(), metrics.NewMetricsCollector())
}

func TestNodeCreateStampsLastChecked(t *testing.T) {
	s := newNodeService(t)
	node := &models.Node{
		NodeName:     "coda-001",
		NodeURL:      "http://coda-001.example.com",
		NodePath:     "/storage/coda-001",
		NodeCapacity: 100,
		NodeSize:     10,
		Status:       models.NodeActive,
	}
	require.NoError(t, s.Create(node))
	assert.False(t, node.LastChecked.IsZero())

	got, err := s.Get("coda-001")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.NodeCapacity)
}

func TestNodeCreateConflict(t *testing.T) {
	s := newNodeService(t)
	require.NoError(t, s.Create(&models.Node{NodeName: "coda-001", Status: models.NodeActive}))
	err := s.Create(&models.Node{NodeName: "coda-001", Status: models.NodeActive})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestNodeUpdate(t *testing.T) {
	s := newNodeService(t)
	require.NoError(t, s.Create(&models.Node{
		NodeName: "coda-001", NodeCapacity: 100, NodeSize: 10, Status: models.NodeActive,
	}))

	updated, err := s.Update(&models.Node{
		NodeName: "coda-001", NodeCapacity: 200, NodeSize: 50, Status: models.NodeInactive,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), updated.NodeCapacity)
	assert.Equal(t, models.NodeInactive, updated.Status)

	_, err = s.Update(&models.Node{NodeName: "coda-404"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeDelete(t *testing.T) {
	s := newNodeService(t)
	require.NoError(t, s.Create(&models.Node{NodeName: "coda-001", Status: models.NodeActive}))
	require.NoError(t, s.Delete("coda-001"))
	assert.ErrorIs(t, s.Delete("coda-001"), ErrNotFound)
}

func TestNodeCapacitySum(t *testing.T) {
	s := newNodeService(t)
	require.NoError(t, s.Create(&models.Node{NodeName: "coda-001", NodeCapacity: 100, Status: models.NodeActive}))
	require.NoError(t, s.Create(&models.Node{NodeName: "coda-002", NodeCapacity: 250, Status: models.NodeActive}))

	sum, err := s.CapacitySum()
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum)
}
