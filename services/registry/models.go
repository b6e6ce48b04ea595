package registry

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Unit struct {
	gorm.Model
	Name string `json:"name" gorm:"size:255;not null"`
}

type Voter struct {
	gorm.Model
	FirstName string `json:"first_name" gorm:"size:255;not null"`
	LastName  string `json:"last_name" gorm:"size:255"`
	Email     string `json:"email" gorm:"size:255"`
	State     string `json:"state" gorm:"size:64;not null"`
	UnitID    uint   `json:"unit_id" gorm:"index;not null"`
	Unit      Unit   `json:"unit"`
}

func (v Voter) DisplayName() string {
	return strings.TrimSpace(v.FirstName + " " + v.LastName)
}

// Election schedules are optional. StartTime and EndTime use "15:04".
type Election struct {
	gorm.Model
	Name      string     `json:"name" gorm:"size:255;not null"`
	UnitID    uint       `json:"unit_id" gorm:"index;not null"`
	Unit      Unit       `json:"unit"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	StartTime string     `json:"start_time" gorm:"size:5"`
	EndTime   string     `json:"end_time" gorm:"size:5"`
}

type Candidate struct {
	gorm.Model
	ElectionID uint   `json:"election_id" gorm:"index;not null"`
	VoterID    uint   `json:"voter_id" gorm:"index;not null"`
	Slogan     string `json:"slogan" gorm:"size:255"`
}

func Models() []any {
	return []any{&Unit{}, &Voter{}, &Election{}, &Candidate{}}
}
