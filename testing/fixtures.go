package e2etesting

import (
	"context"
	"fmt"
	"sync"

	"github.com/tech-arch1tect/votegate/services/otp"
	"github.com/tech-arch1tect/votegate/services/registry"
	"gorm.io/gorm"
)

// Fixture identifiers seeded by SeedRegistry.
const (
	UnitNorth uint = 10
	UnitSouth uint = 20

	VoterPending   uint = 1
	VoterGraduated uint = 2
	VoterOtherUnit uint = 3

	ElectionNorth uint = 5
)

func SeedRegistry(db *gorm.DB) error {
	units := []registry.Unit{
		{Model: gorm.Model{ID: UnitNorth}, Name: "North Campus"},
		{Model: gorm.Model{ID: UnitSouth}, Name: "South Campus"},
	}
	voters := []registry.Voter{
		{Model: gorm.Model{ID: VoterPending}, FirstName: "Ana", LastName: "Torres", Email: "ana.torres@example.edu", State: "pending", UnitID: UnitNorth},
		{Model: gorm.Model{ID: VoterGraduated}, FirstName: "Luis", LastName: "Vega", Email: "luis.vega@example.edu", State: "graduated", UnitID: UnitNorth},
		{Model: gorm.Model{ID: VoterOtherUnit}, FirstName: "Marta", LastName: "Ruiz", Email: "marta.ruiz@example.edu", State: "active", UnitID: UnitSouth},
	}
	election := registry.Election{Model: gorm.Model{ID: ElectionNorth}, Name: "Student Representative 2025", UnitID: UnitNorth}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&units).Error; err != nil {
			return fmt.Errorf("failed to seed units: %w", err)
		}
		if err := tx.Create(&voters).Error; err != nil {
			return fmt.Errorf("failed to seed voters: %w", err)
		}
		if err := tx.Create(&election).Error; err != nil {
			return fmt.Errorf("failed to seed election: %w", err)
		}
		return nil
	})
}

// RecordingNotifier keeps every notification instead of sending mail.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []otp.Notification
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(_ context.Context, notification otp.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *RecordingNotifier) Sent() []otp.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]otp.Notification(nil), n.sent...)
}

// SequenceCodes hands out codes in order.
type SequenceCodes struct {
	mu    sync.Mutex
	codes []string
}

func NewSequenceCodes(codes ...string) *SequenceCodes {
	return &SequenceCodes{codes: codes}
}

func (s *SequenceCodes) Next(int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return "", fmt.Errorf("code sequence exhausted")
	}
	code := s.codes[0]
	s.codes = s.codes[1:]
	return code, nil
}
