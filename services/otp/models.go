package otp

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusUsed    Status = "USED"
)

// Record is a single issued code. PendingPair and PendingCode are set only
// while PENDING, UsedPair only once USED.
type Record struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Code        string     `gorm:"size:16;not null;index" json:"code"`
	Status      Status     `gorm:"size:16;not null;index" json:"status"`
	VoterID     uint       `gorm:"not null;index:idx_otp_records_pair" json:"voter_id"`
	ElectionID  uint       `gorm:"not null;index:idx_otp_records_pair" json:"election_id"`
	PendingPair *string    `gorm:"size:64;uniqueIndex" json:"-"`
	PendingCode *string    `gorm:"size:16;uniqueIndex" json:"-"`
	UsedPair    *string    `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

func (Record) TableName() string {
	return "otp_records"
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *Record) ExpiresAt(window time.Duration) time.Time {
	return r.CreatedAt.Add(window)
}

func (r *Record) IsExpired(now time.Time, window time.Duration) bool {
	return now.After(r.ExpiresAt(window))
}

func (r *Record) IsUsed() bool {
	return r.Status == StatusUsed
}

func pairKey(voterID, electionID uint) string {
	return fmt.Sprintf("%d:%d", voterID, electionID)
}

// Voter is the read-only view of a voter the checker and issuer need.
type Voter struct {
	ID             uint
	State          string
	UnitID         uint
	UnitName       string
	DisplayName    string
	ContactAddress string
}

type Election struct {
	ID             uint
	Name           string
	UnitID         uint
	UnitName       string
	CandidateCount int64
	Window         *Window
}

// Window minutes count from midnight in the election time zone.
type Window struct {
	StartDate   time.Time
	EndDate     time.Time
	StartMinute int
	EndMinute   int
}

type ElectionSummary struct {
	Name           string `json:"name"`
	UnitName       string `json:"unit_name"`
	CandidateCount int64  `json:"candidate_count"`
}

type VoterSummary struct {
	DisplayName string `json:"display_name"`
	UnitName    string `json:"unit_name"`
}

type IssueResult struct {
	Generated        bool            `json:"otp_generated"`
	EmailSentTo      string          `json:"email_sent_to"`
	ExpiresInMinutes int             `json:"expires_in_minutes"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Election         ElectionSummary `json:"election"`
	Voter            VoterSummary    `json:"voter"`
	Code             string          `json:"code,omitempty"`
	DevelopmentNote  string          `json:"development_note,omitempty"`

	RecordID string `json:"-"`
}

type VerifyRequest struct {
	Code       string
	VoterID    uint
	ElectionID uint
}

type VerifyResult struct {
	RecordID   string    `json:"-"`
	VoterID    uint      `json:"voter_id"`
	ElectionID uint      `json:"election_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Notification is what the notifier needs to deliver a code.
type Notification struct {
	To            string
	VoterName     string
	ElectionName  string
	Code          string
	ExpiryMinutes int
}
