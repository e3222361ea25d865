package model

import (
	"time"
)

// LocationCache 地理解析缓存，按归一化（trim+小写）的位置文本唯一。
// country_code 为空表示确认无法解析（负缓存），与从未查询过区分开。
type LocationCache struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	LocationText string    `gorm:"size:512;uniqueIndex;not null" json:"location_text"`
	CountryCode  *string   `gorm:"size:2" json:"country_code,omitempty"`
	CountryName  *string   `gorm:"size:255" json:"country_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (LocationCache) TableName() string {
	return "location_cache"
}
