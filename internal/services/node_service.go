package services

import (
	"errors"
	"time"

	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NodeService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
	now     func() time.Time
}

func NewNodeService(db *gorm.DB, logger *zap.Logger, metrics *metrics.MetricsCollector) *NodeService {
	return &NodeService{
		db:      db,
		logger:  logger.With(zap.String("service", "node_service")),
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *NodeService) Get(name string) (*models.Node, error) {
	var node models.Node
	if err := s.db.First(&node, "node_name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &node, nil
}

func (s *NodeService) Count() (int64, error) {
	var count int64
	err := s.db.Model(&models.Node{}).Count(&count).Error
	return count, err
}

func (s *NodeService) List(offset, limit int) ([]models.Node, error) {
	var nodes []models.Node
	err := s.db.Order("id").Offset(offset).Limit(limit).Find(&nodes).Error
	return nodes, err
}

func (s *NodeService) Create(node *models.Node) error {
	node.LastChecked = s.now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Node
		err := tx.First(&existing, "node_name = ?", node.NodeName).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(node).Error; err != nil {
			return translateCreateError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementCounter("node_operations", map[string]string{"op": "create"})
	s.logger.Info("Created node", zap.String("node_name", node.NodeName))
	return nil
}

// Update fully replaces a node's scalar fields. last_checked is always
// stamped server-side, whatever the client sent.
func (s *NodeService) Update(node *models.Node) (*models.Node, error) {
	var existing models.Node
	if err := s.db.First(&existing, "node_name = ?", node.NodeName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	existing.NodeURL = node.NodeURL
	existing.NodePath = node.NodePath
	existing.NodeCapacity = node.NodeCapacity
	existing.NodeSize = node.NodeSize
	existing.Status = node.Status
	existing.LastChecked = s.now()

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter("node_operations", map[string]string{"op": "update"})
	return &existing, nil
}

func (s *NodeService) Delete(name string) error {
	result := s.db.Delete(&models.Node{}, "node_name = ?", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.metrics.IncrementCounter("node_operations", map[string]string{"op": "delete"})
	return nil
}

// CapacitySum totals the storage capacity across all nodes.
func (s *NodeService) CapacitySum() (int64, error) {
	var sum int64
	err := s.db.Model(&models.Node{}).
		Select("COALESCE(SUM(node_capacity), 0)").
		Scan(&sum).Error
	return sum, err
}
