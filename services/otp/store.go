package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Store interface {
	Transaction(ctx context.Context, fn func(Store) error) error
	PurgeStale(ctx context.Context, voterID, electionID uint, olderThan time.Time) (int64, error)
	// Create supersedes any PENDING record left for the pair.
	Create(ctx context.Context, voterID, electionID uint, code string, createdAt time.Time) (*Record, error)
	// FindByCode prefers a PENDING record. A non-nil pair scopes the lookup.
	FindByCode(ctx context.Context, code string, pair *Pair) (*Record, error)
	FindUsed(ctx context.Context, voterID, electionID uint) (*Record, error)
	// MarkUsed returns ErrNotPending or ErrPairVoted when it loses a race.
	MarkUsed(ctx context.Context, record *Record, at time.Time) (*Record, error)
	Delete(ctx context.Context, record *Record) error
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
	CountPending(ctx context.Context, voterID, electionID uint) (int64, error)
}

type Pair struct {
	VoterID    uint
	ElectionID uint
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) PurgeStale(ctx context.Context, voterID, electionID uint, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("voter_id = ? AND election_id = ? AND status = ? AND created_at < ?",
			voterID, electionID, StatusPending, olderThan.UTC()).
		Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge stale records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) Create(ctx context.Context, voterID, electionID uint, code string, createdAt time.Time) (*Record, error) {
	db := s.db.WithContext(ctx)

	if err := db.Where("pending_pair = ?", pairKey(voterID, electionID)).Delete(&Record{}).Error; err != nil {
		return nil, fmt.Errorf("failed to supersede pending record: %w", err)
	}

	pair := pairKey(voterID, electionID)
	pendingCode := code
	record := &Record{
		Code:        code,
		Status:      StatusPending,
		VoterID:     voterID,
		ElectionID:  electionID,
		PendingPair: &pair,
		PendingCode: &pendingCode,
		CreatedAt:   createdAt.UTC(),
	}

	if err := db.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPendingConflict
		}
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return record, nil
}

func (s *GormStore) FindByCode(ctx context.Context, code string, pair *Pair) (*Record, error) {
	query := s.db.WithContext(ctx).Where("code = ?", code)
	if pair != nil {
		query = query.Where("voter_id = ? AND election_id = ?", pair.VoterID, pair.ElectionID)
	}

	var record Record
	err := query.
		// PENDING sorts before USED
		Order("status ASC").
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find record by code: %w", err)
	}

	return &record, nil
}

func (s *GormStore) FindUsed(ctx context.Context, voterID, electionID uint) (*Record, error) {
	var record Record
	err := s.db.WithContext(ctx).
		Where("voter_id = ? AND election_id = ? AND status = ?", voterID, electionID, StatusUsed).
		Order("used_at ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find used record: %w", err)
	}

	return &record, nil
}

func (s *GormStore) MarkUsed(ctx context.Context, record *Record, at time.Time) (*Record, error) {
	usedAt := at.UTC()
	usedPair := pairKey(record.VoterID, record.ElectionID)
	result := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("id = ? AND status = ?", record.ID, StatusPending).
		Updates(map[string]any{
			"status":       StatusUsed,
			"used_at":      usedAt,
			"pending_pair": nil,
			"pending_code": nil,
			"used_pair":    usedPair,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrPairVoted
		}
		return nil, fmt.Errorf("failed to mark record used: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotPending
	}

	used := *record
	used.Status = StatusUsed
	used.UsedAt = &usedAt
	used.PendingPair = nil
	used.PendingCode = nil
	used.UsedPair = &usedPair
	return &used, nil
}

func (s *GormStore) Delete(ctx context.Context, record *Record) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", record.ID, StatusPending).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, olderThan.UTC()).
		Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) CountPending(ctx context.Context, voterID, electionID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("voter_id = ? AND election_id = ? AND status = ?", voterID, electionID, StatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", err)
	}
	return count, nil
}
