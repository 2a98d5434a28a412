package models

import "time"

// Room is a rentable apartment. The reservation core only reads it.
type Room struct {
	ID          string      `json:"id" db:"id"`
	Slug        string      `json:"slug" db:"slug"`
	Name        string      `json:"name" db:"name"`
	MonthlyRate float64     `json:"monthly_rate" db:"monthly_rate"`
	YearlyRate  float64     `json:"yearly_rate" db:"yearly_rate"`
	Capacity    int         `json:"capacity" db:"capacity"`
	Amenities   StringArray `json:"amenities" db:"amenities"`
	Images      StringArray `json:"images" db:"images"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}
