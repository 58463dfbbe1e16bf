package bot

// Tuning holds the movement and combat constants shared by all strategies.
// Speed is the distance covered per tick and ZoneMargin how far inside the
// zone edge bots try to stay.
type Tuning struct {
	Speed       float64
	MeleeRange  float64
	BowRange    float64
	MeleeChance float64
	BowChance   float64
	ZoneMargin  float64
}

var DefaultTuning = Tuning{
	Speed:       4,
	MeleeRange:  3,
	BowRange:    40,
	MeleeChance: 0.6,
	BowChance:   0.25,
	ZoneMargin:  5,
}
