package services

import (
	"errors"

	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QueueService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
}

func NewQueueService(db *gorm.DB, logger *zap.Logger, metrics *metrics.MetricsCollector) *QueueService {
	return &QueueService{
		db:      db,
		logger:  logger.With(zap.String("service", "queue_service")),
		metrics: metrics,
	}
}

func (s *QueueService) Get(ark string) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	if err := s.db.First(&entry, "ark = ?", ark).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *QueueService) Count(status string) (int64, error) {
	query := s.db.Model(&models.QueueEntry{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// List pages the queue in position order. An optional status filter and
// a size sort mirror the harvest workers' polling queries.
func (s *QueueService) List(status string, sortBySize bool, offset, limit int) ([]models.QueueEntry, error) {
	query := s.db.Model(&models.QueueEntry{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	order := "queue_position"
	if sortBySize {
		order = "bytes"
	}
	var entries []models.QueueEntry
	err := query.Order(order).Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

// Enqueue appends a new entry to the harvest queue. The position read
// and write happen inside one transaction so concurrent enqueues get
// distinct positions, and the client-supplied status is always replaced
// with the initial ready state.
func (s *QueueService) Enqueue(entry *models.QueueEntry) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.QueueEntry
		err := tx.First(&existing, "ark = ?", entry.Ark).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var highPosition int
		if err := tx.Model(&models.QueueEntry{}).
			Select("COALESCE(MAX(queue_position), 0)").
			Scan(&highPosition).Error; err != nil {
			return err
		}
		entry.QueuePosition = highPosition + 1
		entry.Status = models.QueueReady
		if err := tx.Create(entry).Error; err != nil {
			return translateCreateError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementCounter("queue_operations", map[string]string{"op": "enqueue"})
	s.logger.Info("Enqueued entry",
		zap.String("ark", entry.Ark),
		zap.Int("queue_position", entry.QueuePosition))
	return nil
}

// Update replaces an entry from a decoded payload, carrying forward any
// field the payload left blank so partial updates never wipe data. The
// ark in the payload must match urlArk.
func (s *QueueService) Update(entry *models.QueueEntry, urlArk string) (*models.QueueEntry, error) {
	if entry.Ark != urlArk {
		return nil, ErrNameMismatch
	}

	var old models.QueueEntry
	if err := s.db.First(&old, "ark = ?", entry.Ark).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updated := old
	updated.Bytes = entry.Bytes
	updated.Files = entry.Files
	if entry.URLList != "" {
		updated.URLList = entry.URLList
	}
	if entry.Status != "" {
		updated.Status = entry.Status
	}
	if entry.HarvestStart != nil {
		updated.HarvestStart = entry.HarvestStart
	}
	if entry.HarvestEnd != nil {
		updated.HarvestEnd = entry.HarvestEnd
	}
	if entry.QueuePosition != 0 {
		updated.QueuePosition = entry.QueuePosition
	}

	if err := s.db.Save(&updated).Error; err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter("queue_operations", map[string]string{"op": "update"})
	return &updated, nil
}

func (s *QueueService) Delete(ark string) error {
	result := s.db.Delete(&models.QueueEntry{}, "ark = ?", ark)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.metrics.IncrementCounter("queue_operations", map[string]string{"op": "delete"})
	return nil
}

// StatusCounts reports the queue's distribution over the nine harvest
// states, keyed by human-readable label with zero defaults.
func (s *QueueService) StatusCounts() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := s.db.Model(&models.QueueEntry{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(models.QueueStatusLabels))
	for _, label := range models.QueueStatusLabels {
		counts[label] = 0
	}
	for _, r := range rows {
		if label, ok := models.QueueStatusLabels[r.Status]; ok {
			counts[label] = r.Count
		}
	}
	return counts, nil
}
