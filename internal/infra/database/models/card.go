package models

import (
	"time"

	"github.com/lib/pq"
)

// Card is one minted (or in-flight) BaseCard. Address is unique so the
// database rejects a second card for the same wallet.
type Card struct {
	ID           int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Address      string         `json:"address" gorm:"type:text;not null;uniqueIndex:uniq_card_address"`
	Nickname     string         `json:"nickname" gorm:"type:text"`
	Role         string         `json:"role" gorm:"type:text"`
	Bio          string         `json:"bio" gorm:"type:text"`
	ImageURI     string         `json:"imageURI" gorm:"type:text"`
	ProfileImage string         `json:"profileImage" gorm:"type:text"`
	Basename     string         `json:"basename" gorm:"type:text;not null;default:''"`
	Skills       pq.StringArray `json:"skills" gorm:"type:text[];not null;default:'{}'"`
	Websites     pq.StringArray `json:"websites" gorm:"type:text[];not null;default:'{}'"`
	CDate        time.Time      `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate        time.Time      `json:"mdate" gorm:"autoUpdateTime"`
}
