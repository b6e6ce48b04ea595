package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/votegate/services/logging"
	"github.com/tech-arch1tect/votegate/services/otp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewRepository(db *gorm.DB, logger *logging.Service) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) FindVoter(ctx context.Context, id uint) (*otp.Voter, error) {
	var voter Voter
	err := r.db.WithContext(ctx).Preload("Unit").First(&voter, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load voter %d: %w", id, err)
	}

	return &otp.Voter{
		ID:             voter.ID,
		State:          voter.State,
		UnitID:         voter.UnitID,
		UnitName:       voter.Unit.Name,
		DisplayName:    voter.DisplayName(),
		ContactAddress: voter.Email,
	}, nil
}

func (r *Repository) FindElection(ctx context.Context, id uint) (*otp.Election, error) {
	db := r.db.WithContext(ctx)

	var election Election
	err := db.Preload("Unit").First(&election, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load election %d: %w", id, err)
	}

	var candidates int64
	if err := db.Model(&Candidate{}).Where("election_id = ?", id).Count(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to count candidates for election %d: %w", id, err)
	}

	result := &otp.Election{
		ID:             election.ID,
		Name:           election.Name,
		UnitID:         election.UnitID,
		UnitName:       election.Unit.Name,
		CandidateCount: candidates,
	}

	window, err := election.window()
	if err != nil {
		// a malformed schedule is treated as no schedule
		if r.logger != nil {
			r.logger.Warn("ignoring malformed election schedule",
				zap.Uint("election_id", id),
				zap.Error(err))
		}
	} else {
		result.Window = window
	}

	return result, nil
}

func (e Election) window() (*otp.Window, error) {
	if e.StartDate == nil || e.EndDate == nil {
		return nil, nil
	}

	start, err := parseClock(e.StartTime, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", e.StartTime, err)
	}
	end, err := parseClock(e.EndTime, 24*60-1)
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q: %w", e.EndTime, err)
	}

	return &otp.Window{
		StartDate:   *e.StartDate,
		EndDate:     *e.EndDate,
		StartMinute: start,
		EndMinute:   end,
	}, nil
}

func parseClock(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
