package content

import (
	"time"

	"github.com/emberveil-online/guildserver/model"
)

// Default returns the built-in template catalog used when no external
// catalog file is configured.
func Default() *Registry {
	return newRegistry(defaultProjects, defaultRaids, defaultEvents)
}

var defaultProjects = []ProjectTemplate{
	{
		Name:             "Tour de Guilde",
		Type:             "construction",
		MaxLevel:         5,
		RequiredProgress: 1000,
		Cost:             model.Production{Gold: 500, Materials: 300},
		Benefits:         model.ProjectBenefits{MemberCapPlus: 10},
	},
	{
		Name:             "Grande Forge",
		Type:             "construction",
		MaxLevel:         3,
		RequiredProgress: 2500,
		Cost:             model.Production{Gold: 1200, Materials: 800},
		Benefits:         model.ProjectBenefits{CoinPerDay: 150},
	},
	{
		Name:             "Autel Ancien",
		Type:             "ritual",
		MaxLevel:         3,
		RequiredProgress: 5000,
		Cost:             model.Production{Gold: 2000, Materials: 500},
		Benefits:         model.ProjectBenefits{ExpMultiplier: 1.2, HonorPerDay: 50},
	},
}

var defaultRaids = []RaidTemplate{
	{
		Name:            "Dragon Ancien",
		Type:            "dragon",
		BossName:        "Veyrakh le Cendré",
		MaxParticipants: 20,
		BaseStats:       model.BossStats{HP: 50000, Attack: 800, Defense: 400, Speed: 120},
		Rewards:         model.RewardSchedule{Coin: 5000, Honor: 1000, Exp: 20000, Items: []model.RewardItem{{ItemID: 3101, Qty: 1}}},
	},
	{
		Name:            "Roi Liche",
		Type:            "undead",
		BossName:        "Morvain IV",
		MaxParticipants: 15,
		BaseStats:       model.BossStats{HP: 35000, Attack: 650, Defense: 550, Speed: 90},
		Rewards:         model.RewardSchedule{Coin: 3500, Honor: 700, Exp: 14000},
	},
	{
		Name:            "Béhémoth des Profondeurs",
		Type:            "beast",
		BossName:        "Goluun",
		MaxParticipants: 25,
		BaseStats:       model.BossStats{HP: 80000, Attack: 950, Defense: 300, Speed: 60},
		Rewards:         model.RewardSchedule{Coin: 8000, Honor: 1500, Exp: 30000, Items: []model.RewardItem{{ItemID: 3205, Qty: 2}}},
	},
}

var defaultEvents = []EventTemplate{
	{
		Name:            "Chasse au Trésor",
		Type:            "hunt",
		Description:     "A guild-wide treasure hunt across the outer provinces.",
		MaxParticipants: 30,
		Duration:        3 * time.Hour,
		Requirements:    model.EventRequirements{MinLevel: 5},
		Rewards:         model.RewardSchedule{Coin: 800, Exp: 2500},
	},
	{
		Name:            "Tournoi Interne",
		Type:            "tournament",
		Description:     "Friendly duels to rank the guild roster.",
		MaxParticipants: 16,
		Duration:        2 * time.Hour,
		Requirements:    model.EventRequirements{MinLevel: 10},
		Rewards:         model.RewardSchedule{Honor: 300},
	},
}
