package services

import (
	"math"

	"github.com/staylong/rental-backend/internal/models"
)

// daysPerMonth converts a stay length into billable months
const daysPerMonth = 30

// discountTier maps an upper bound in months to a discount percent
type discountTier struct {
	maxMonths int
	percent   float64
}

// Long-stay discount table, checked in order. Stays above the last bound get maxDiscountPercent.
var discountTiers = []discountTier{
	{2, 0},
	{5, 5},
	{8, 7},
	{11, 9},
	{14, 11},
	{17, 13},
	{20, 15},
	{23, 17},
	{26, 19},
	{29, 21},
	{32, 23},
}

const maxDiscountPercent = 25

// CleaningSchedule prices the optional cleaning service
type CleaningSchedule struct {
	RatePerPeriod    float64
	PeriodLengthDays int
}

// PriceQuote is the server-side price of a stay
type PriceQuote struct {
	Months          int     `json:"months"`
	OriginalPrice   float64 `json:"original_price"`
	DiscountPercent float64 `json:"discount_percent"`
	CleaningFee     float64 `json:"cleaning_fee,omitempty"`
	CleaningPeriods int     `json:"cleaning_periods,omitempty"`
	TotalPrice      float64 `json:"total_price"`
}

// BillableMonths rounds a stay length to the nearest whole month, minimum one
func BillableMonths(durationDays int) int {
	months := int(math.Round(float64(durationDays) / daysPerMonth))
	if months < 1 {
		months = 1
	}
	return months
}

// DiscountPercent returns the long-stay discount for a number of months
func DiscountPercent(months int) float64 {
	for _, tier := range discountTiers {
		if months <= tier.maxMonths {
			return tier.percent
		}
	}
	return maxDiscountPercent
}

// ComputePrice prices a stay of durationDays at monthlyRate.
// cleaning is nil when the guest did not ask for the cleaning service.
func ComputePrice(monthlyRate float64, durationDays int, cleaning *CleaningSchedule) (*PriceQuote, error) {
	if durationDays < models.MinimumStayDays {
		return nil, models.ErrInvalidDuration
	}
	if monthlyRate <= 0 || math.IsNaN(monthlyRate) || math.IsInf(monthlyRate, 0) {
		return nil, models.ErrInvalidRate
	}

	months := BillableMonths(durationDays)
	discount := DiscountPercent(months)
	original := monthlyRate * float64(months)

	quote := &PriceQuote{
		Months:          months,
		OriginalPrice:   original,
		DiscountPercent: discount,
		TotalPrice:      math.Round(original * (1 - discount/100)),
	}

	if cleaning != nil && cleaning.RatePerPeriod > 0 && cleaning.PeriodLengthDays > 0 {
		periods := (durationDays + cleaning.PeriodLengthDays - 1) / cleaning.PeriodLengthDays
		quote.CleaningPeriods = periods
		quote.CleaningFee = math.Round(cleaning.RatePerPeriod * float64(periods))
		quote.TotalPrice += quote.CleaningFee
	}

	return quote, nil
}

// WithinTolerance reports whether a client-supplied amount matches the server price
func WithinTolerance(serverAmount, clientAmount, tolerance float64) bool {
	return math.Abs(serverAmount-clientAmount) <= tolerance
}
