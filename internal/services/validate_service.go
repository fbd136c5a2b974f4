package services

import (
	"errors"
	"math/rand"
	"time"

	"github.com/unt-libraries/coda/internal/config"
	"github.com/unt-libraries/coda/internal/db/models"
	"github.com/unt-libraries/coda/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ValidateService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
	period  time.Duration

	// Injectable for deterministic selector tests.
	now func() time.Time
	rng *rand.Rand
}

func NewValidateService(db *gorm.DB, logger *zap.Logger, metrics *metrics.MetricsCollector, cfg *config.ValidationConfig) *ValidateService {
	return &ValidateService{
		db:      db,
		logger:  logger.With(zap.String("service", "validate_service")),
		metrics: metrics,
		period:  cfg.Period(),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ValidateService) Get(identifier string) (*models.Validate, error) {
	var record models.Validate
	if err := s.db.First(&record, "identifier = ?", identifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *ValidateService) Count() (int64, error) {
	var count int64
	err := s.db.Model(&models.Validate{}).Count(&count).Error
	return count, err
}

func (s *ValidateService) List(offset, limit int) ([]models.Validate, error) {
	var records []models.Validate
	err := s.db.Order("id").Offset(offset).Limit(limit).Find(&records).Error
	return records, err
}

// Create stores a new validation record. Fields the payload omitted get
// the unverified defaults so a bare identifier is enough to register.
func (s *ValidateService) Create(record *models.Validate) error {
	if record.LastVerifiedStatus == "" {
		record.LastVerifiedStatus = models.VerifiedUnverified
	}
	if record.LastVerified.IsZero() {
		record.LastVerified = models.VerifiedSentinel
	}
	if record.PriorityChangeDate.IsZero() {
		record.PriorityChangeDate = models.VerifiedSentinel
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Validate
		err := tx.First(&existing, "identifier = ?", record.Identifier).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return translateCreateError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementCounter("validate_operations", map[string]string{"op": "create"})
	s.logger.Info("Created validation record", zap.String("identifier", record.Identifier))
	return nil
}

// Update applies a decoded payload to an existing record. A payload that
// carries a verification status is treated as a completed check: the
// verification clock restarts and any priority boost is cleared. Fields
// the payload omitted are carried forward.
func (s *ValidateService) Update(record *models.Validate, urlIdentifier string) (*models.Validate, error) {
	if record.Identifier != urlIdentifier {
		return nil, ErrNameMismatch
	}

	var old models.Validate
	if err := s.db.First(&old, "identifier = ?", record.Identifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updated := old
	if record.Server != "" {
		updated.Server = record.Server
	}
	if record.Priority != 0 {
		updated.Priority = record.Priority
	}
	if !record.PriorityChangeDate.IsZero() && !record.PriorityChangeDate.Equal(models.VerifiedSentinel) {
		updated.PriorityChangeDate = record.PriorityChangeDate
	}

	if record.LastVerifiedStatus != "" {
		updated.LastVerifiedStatus = record.LastVerifiedStatus
		updated.LastVerified = s.now()
		updated.Priority = 0
	} else if !record.LastVerified.IsZero() && !record.LastVerified.Equal(models.VerifiedSentinel) {
		updated.LastVerified = record.LastVerified
	}

	if err := s.db.Save(&updated).Error; err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter("validate_operations", map[string]string{"op": "update"})
	return &updated, nil
}

func (s *ValidateService) Delete(identifier string) error {
	result := s.db.Delete(&models.Validate{}, "identifier = ?", identifier)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.metrics.IncrementCounter("validate_operations", map[string]string{"op": "delete"})
	return nil
}

// Prioritize bumps a record to the front of the verification selector.
func (s *ValidateService) Prioritize(identifier string) (*models.Validate, error) {
	var record models.Validate
	if err := s.db.First(&record, "identifier = ?", identifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	record.Priority = 1
	record.PriorityChangeDate = s.now()
	if err := s.db.Save(&record).Error; err != nil {
		return nil, err
	}
	s.metrics.IncrementCounter("validate_operations", map[string]string{"op": "prioritize"})
	return &record, nil
}

// SelectionReasonPrefix is prepended to the reason when the selection
// pool was restricted to a single server.
func serverFilterReason(server string) string {
	return "This selection was filtered to only consider server " + server + ". "
}

// Next picks the record most in need of verification. Prioritized
// records win, oldest priority change first. Otherwise a record whose
// last check is at least a full validation period old is chosen at
// random, and
// failing that the least recently verified record. The reason string
// records which tier produced the pick.
func (s *ValidateService) Next(server string) (*models.Validate, string, error) {
	scope := func() *gorm.DB {
		q := s.db.Model(&models.Validate{})
		if server != "" {
			q = q.Where("server = ?", server)
		}
		return q
	}
	reason := ""
	if server != "" {
		reason = serverFilterReason(server)
	}

	var prioritized models.Validate
	err := scope().Where("priority > 0").
		Order("priority_change_date").
		First(&prioritized).Error
	if err == nil {
		return &prioritized, reason + "Item was chosen because it is the oldest prioritized.", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	cutoff := s.now().Add(-s.period)

	var overdue int64
	if err := scope().Where("last_verified <= ?", cutoff).Count(&overdue).Error; err != nil {
		return nil, "", err
	}
	if overdue > 0 {
		var record models.Validate
		err := scope().Where("last_verified <= ?", cutoff).
			Offset(int(s.rng.Int63n(overdue))).
			First(&record).Error
		if err != nil {
			return nil, "", err
		}
		return &record, reason + "Item was randomly selected from records outside the validation period because there is no prioritized record.", nil
	}

	var oldest models.Validate
	err = scope().Order("last_verified").First(&oldest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return &oldest, reason + "Item was chosen because there is no prioritized record and it had not been validated in the longest duration of time.", nil
}

// StatusCounts reports record totals per verification status, with the
// three canonical statuses always present.
func (s *ValidateService) StatusCounts() (map[string]int64, error) {
	type row struct {
		LastVerifiedStatus string
		Count              int64
	}
	var rows []row
	err := s.db.Model(&models.Validate{}).
		Select("last_verified_status, COUNT(*) AS count").
		Group("last_verified_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[string]int64{
		models.VerifiedUnverified: 0,
		models.VerifiedPassed:     0,
		models.VerifiedFailed:     0,
	}
	for _, r := range rows {
		counts[r.LastVerifiedStatus] = r.Count
	}
	return counts, nil
}
