package models

import "time"

type Product struct {
	ID             string    `yaml:"id" json:"id"`
	OwnerID        string    `yaml:"owner_id" json:"owner_id"`
	Name           string    `yaml:"name" json:"name"`
	Description    string    `yaml:"description" json:"description,omitempty"`
	TotalUnits     int64     `yaml:"total_units" json:"total_units"`
	AvailableUnits int64     `yaml:"available_units" json:"available_units"`
	DailyRate      float64   `yaml:"daily_rate" json:"daily_rate"`
	WeeklyRate     float64   `yaml:"weekly_rate" json:"weekly_rate"`
	MonthlyRate    float64   `yaml:"monthly_rate" json:"monthly_rate"`
	LateFeePerDay  float64   `yaml:"late_fee_per_day" json:"late_fee_per_day"`
	Published      bool      `yaml:"published" json:"published"`
	CreatedAt      time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt      time.Time `yaml:"updated_at" json:"updated_at"`
}
