package measurement

import (
	"time"

	"github.com/google/uuid"
)

// Measurement is one row of the append-only history. Height travels with
// every measurement rather than the client profile, so growing clients and
// corrected readings stay accurate. BMI is derived at write time from this
// row's height and weight; any incoming value is ignored.
type Measurement struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClientID    uuid.UUID `db:"client_id" json:"client_id"`
	TakenAt     time.Time `db:"taken_at" json:"taken_at"`
	HeightCm    float64   `db:"height_cm" json:"height_cm"`
	WeightKg    float64   `db:"weight_kg" json:"weight_kg"`
	BMI         float64   `db:"bmi" json:"bmi"`
	BodyFatPct  *float64  `db:"body_fat_pct" json:"body_fat_pct,omitempty"`
	MusclePct   *float64  `db:"muscle_pct" json:"muscle_pct,omitempty"`
	WaterPct    *float64  `db:"water_pct" json:"water_pct,omitempty"`
	MineralPct  *float64  `db:"mineral_pct" json:"mineral_pct,omitempty"`
	BoneDensity *float64  `db:"bone_density" json:"bone_density,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
