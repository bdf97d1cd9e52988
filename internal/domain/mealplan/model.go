package mealplan

import (
	"time"

	"github.com/google/uuid"
)

// followedThreshold is the compliance score at or above which a plan counts
// as followed.
const followedThreshold = 7

// MealPlan is one day's prescribed plan for a client. PlanDate is a calendar
// day; the pair (client, date) is unique, so writing the same day again
// replaces the slots.
type MealPlan struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ClientID        uuid.UUID `db:"client_id" json:"client_id"`
	PlanDate        time.Time `db:"plan_date" json:"plan_date"`
	Breakfast       *string   `db:"breakfast" json:"breakfast,omitempty"`
	MorningSnack    *string   `db:"morning_snack" json:"morning_snack,omitempty"`
	Lunch           *string   `db:"lunch" json:"lunch,omitempty"`
	AfternoonSnack  *string   `db:"afternoon_snack" json:"afternoon_snack,omitempty"`
	Dinner          *string   `db:"dinner" json:"dinner,omitempty"`
	EveningSnack    *string   `db:"evening_snack" json:"evening_snack,omitempty"`
	WaterLiters     float64   `db:"water_liters" json:"water_liters"`
	TotalCalories   *int      `db:"total_calories" json:"total_calories,omitempty"`
	ComplianceScore *int      `db:"compliance_score" json:"compliance_score,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Followed reports whether the recorded compliance score clears the
// threshold. Plans without a score are neither followed nor unfollowed.
func (p *MealPlan) Followed() bool {
	return p.ComplianceScore != nil && *p.ComplianceScore >= followedThreshold
}

// Scored reports whether a compliance score was recorded at all.
func (p *MealPlan) Scored() bool { return p.ComplianceScore != nil }

// ComplianceSummary aggregates how often plans in a window were followed.
// Percent is followed/scored, one decimal; unscored plans do not count
// against the client.
type ComplianceSummary struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Plans    int       `json:"plans"`
	Scored   int       `json:"scored"`
	Followed int       `json:"followed"`
	Percent  float64   `json:"percent"`
}
