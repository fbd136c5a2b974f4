package services

import (
	"errors"
	"time"

	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BagService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
}

func NewBagService(db *gorm.DB, logger *zap.Logger, metrics *metrics.MetricsCollector) *BagService {
	return &BagService{
		db:      db,
		logger:  logger.With(zap.String("service", "bag_service")),
		metrics: metrics,
	}
}

// Get fetches a bag and its info fields in storage order.
func (s *BagService) Get(name string) (*models.Bag, []models.BagInfo, error) {
	var bag models.Bag
	if err := s.db.First(&bag, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	infos, err := s.InfoFields(name)
	if err != nil {
		return nil, nil, err
	}
	return &bag, infos, nil
}

func (s *BagService) InfoFields(name string) ([]models.BagInfo, error) {
	var infos []models.BagInfo
	if err := s.db.Where("bag_name = ?", name).Order("id").Find(&infos).Error; err != nil {
		return nil, err
	}
	return infos, nil
}

func (s *BagService) Count() (int64, error) {
	var count int64
	err := s.db.Model(&models.Bag{}).Count(&count).Error
	return count, err
}

// List returns a page of bags, most recently bagged first. Name breaks
// ties so batched reads never skip or repeat a record.
func (s *BagService) List(offset, limit int) ([]models.Bag, error) {
	var bags []models.Bag
	err := s.db.Order("bagging_date DESC, name DESC").
		Offset(offset).Limit(limit).
		Find(&bags).Error
	return bags, err
}

// CountInRange counts bags whose bagging date falls in [from, until].
func (s *BagService) CountInRange(from, until time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.Bag{}).
		Where("bagging_date >= ? AND bagging_date <= ?", from, until).
		Count(&count).Error
	return count, err
}

// ListInRange pages bags in a bagging-date window in stable ascending
// order, for harvesters walking the collection oldest first.
func (s *BagService) ListInRange(from, until time.Time, offset, limit int) ([]models.Bag, error) {
	var bags []models.Bag
	err := s.db.Where("bagging_date >= ? AND bagging_date <= ?", from, until).
		Order("bagging_date, name").
		Offset(offset).Limit(limit).
		Find(&bags).Error
	return bags, err
}

// Create persists a new bag with its info fields and external
// identifiers in one transaction. An existing name is a conflict.
func (s *BagService) Create(bag *models.Bag, infos []models.BagInfo, extIDs []models.ExternalIdentifier) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Bag
		err := tx.First(&existing, "name = ?", bag.Name).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(bag).Error; err != nil {
			return translateCreateError(err)
		}
		return createBagChildren(tx, infos, extIDs)
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementCounter("bag_operations", map[string]string{"op": "create"})
	s.logger.Info("Created bag", zap.String("name", bag.Name), zap.Int("info_fields", len(infos)))
	return nil
}

// Replace swaps a bag's scalar fields and rebuilds its owned children.
// Delete-and-recreate runs inside one transaction so a concurrent reader
// never observes the bag without its info fields.
func (s *BagService) Replace(bag *models.Bag, infos []models.BagInfo, extIDs []models.ExternalIdentifier) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Bag
		if err := tx.First(&existing, "name = ?", bag.Name).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := deleteBagChildren(tx, bag.Name); err != nil {
			return err
		}
		if err := tx.Save(bag).Error; err != nil {
			return err
		}
		return createBagChildren(tx, infos, extIDs)
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementCounter("bag_operations", map[string]string{"op": "replace"})
	return nil
}

func (s *BagService) Delete(name string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var bag models.Bag
		if err := tx.First(&bag, "name = ?", name).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := deleteBagChildren(tx, name); err != nil {
			return err
		}
		return tx.Delete(&models.Bag{}, "name = ?", name).Error
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementCounter("bag_operations", map[string]string{"op": "delete"})
	return nil
}

func createBagChildren(tx *gorm.DB, infos []models.BagInfo, extIDs []models.ExternalIdentifier) error {
	for i := range infos {
		infos[i].ID = 0
		if err := tx.Create(&infos[i]).Error; err != nil {
			return err
		}
	}
	for i := range extIDs {
		extIDs[i].ID = 0
		if err := tx.Create(&extIDs[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func deleteBagChildren(tx *gorm.DB, name string) error {
	if err := tx.Where("bag_name = ?", name).Delete(&models.BagInfo{}).Error; err != nil {
		return err
	}
	return tx.Where("bag_name = ?", name).Delete(&models.ExternalIdentifier{}).Error
}

// BagTotals aggregates the whole collection for the stats surface.
type BagTotals struct {
	Bags           int64
	Files          int64
	Size           int64
	MaxBaggingDate *time.Time
}

func (s *BagService) Totals() (*BagTotals, error) {
	var totals BagTotals
	err := s.db.Model(&models.Bag{}).
		Select("COUNT(*) AS bags, COALESCE(SUM(files), 0) AS files, COALESCE(SUM(size), 0) AS size, MAX(bagging_date) AS max_bagging_date").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// ExternalBagRef is one bag matched by an external-identifier lookup.
type ExternalBagRef struct {
	Name        string
	Size        int64
	Files       int
	BaggingDate time.Time
}

func (r ExternalBagRef) Oxum() string {
	return (&models.Bag{Size: r.Size, Files: r.Files}).Oxum()
}

// ExternalLookup resolves an external identifier value to its bags.
// Duplicate identifier rows collapse to one result per bag.
func (s *BagService) ExternalLookup(value string) ([]ExternalBagRef, error) {
	var refs []ExternalBagRef
	err := s.db.Model(&models.ExternalIdentifier{}).
		Select("DISTINCT bags.name AS name, bags.size AS size, bags.files AS files, bags.bagging_date AS bagging_date").
		Joins("JOIN bags ON bags.name = external_identifiers.bag_name").
		Where("external_identifiers.value = ?", value).
		Order("name").
		Scan(&refs).Error
	return refs, err
}
