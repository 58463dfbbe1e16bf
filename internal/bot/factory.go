package bot

import (
	"fmt"
)

// BotLevel selects a strategy.
type BotLevel string

const (
	BotLevelBrawler BotLevel = "brawler"
	BotLevelArcher  BotLevel = "archer"
	BotLevelCamper  BotLevel = "camper"
)

// Levels lists the strategies in rotation order.
var Levels = []BotLevel{BotLevelBrawler, BotLevelArcher, BotLevelCamper}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel, tuning Tuning) (Brain, error) {
	switch level {
	case BotLevelBrawler:
		return &BrawlerBot{Tuning: tuning}, nil
	case BotLevelArcher:
		return &ArcherBot{Tuning: tuning}, nil
	case BotLevelCamper:
		return &CamperBot{Tuning: tuning}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %q", level)
	}
}
