// Package bootstrap synthesizes demo guilds by driving the public service
// APIs, exactly as real traffic would. Useful for seeding a dev database or
// a demo instance.
package bootstrap

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/emberveil-online/guildserver/content"
	"github.com/emberveil-online/guildserver/game/event"
	"github.com/emberveil-online/guildserver/game/guild"
	"github.com/emberveil-online/guildserver/game/project"
	"github.com/emberveil-online/guildserver/game/raid"
	"github.com/emberveil-online/guildserver/game/territory"
	"github.com/emberveil-online/guildserver/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	nameParts1 = []string{"Iron", "Dusk", "Ember", "Storm", "Frost", "Gold", "Raven", "Thorn"}
	nameParts2 = []string{"pact", "watch", "mark", "guard", "fang", "veil", "brand", "hold"}

	territoryNames = []string{"col du nord", "mines d'argent", "forêt brume", "port-levant"}
	territoryTypes = []model.TerritoryType{
		model.TerritoryResource, model.TerritoryStrategic,
		model.TerritoryDefensive, model.TerritoryEconomic,
	}
)

// Generator composes the guild services to create demo data.
type Generator struct {
	db          *gorm.DB
	guilds      *guild.Service
	territories *territory.Service
	projects    *project.Service
	raids       *raid.Service
	events      *event.Service
	registry    *content.Registry
	rng         *rand.Rand
	logger      *zap.Logger
}

// NewGenerator creates a Generator over already-constructed services.
func NewGenerator(db *gorm.DB, guilds *guild.Service, territories *territory.Service, projects *project.Service, raids *raid.Service, events *event.Service, registry *content.Registry, logger *zap.Logger) *Generator {
	return &Generator{
		db:          db,
		guilds:      guilds,
		territories: territories,
		projects:    projects,
		raids:       raids,
		events:      events,
		registry:    registry,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger,
	}
}

// Seed fixes the random source, for reproducible demo sets.
func (g *Generator) Seed(seed int64) {
	g.rng = rand.New(rand.NewSource(seed))
}

// Generate creates n demo guilds, each with a handful of members, a
// territory, a project, a raid and an event. A failure on one guild is
// logged and skipped; the rest still generate.
func (g *Generator) Generate(ctx context.Context, n int) ([]*model.Guild, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]*model.Guild, 0, n)
	for i := 0; i < n; i++ {
		gd, err := g.generateOne(ctx, i)
		if err != nil {
			g.logger.Warn("demo guild generation failed",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, gd)
	}
	g.logger.Info("demo guilds generated",
		zap.Int("requested", n), zap.Int("created", len(out)))
	return out, nil
}

func (g *Generator) generateOne(ctx context.Context, idx int) (*model.Guild, error) {
	name := fmt.Sprintf("%s%s-%d",
		nameParts1[g.rng.Intn(len(nameParts1))],
		nameParts2[g.rng.Intn(len(nameParts2))],
		idx)

	founderID, err := g.createCharacter(ctx, name+" founder")
	if err != nil {
		return nil, err
	}
	gd, err := g.guilds.Create(ctx, founderID, name, name, "generated demo guild", "", "")
	if err != nil {
		return nil, err
	}

	memberCount := 3 + g.rng.Intn(5)
	memberIDs := []int64{founderID}
	for m := 0; m < memberCount; m++ {
		charID, err := g.createCharacter(ctx, fmt.Sprintf("%s member %d", name, m))
		if err != nil {
			return nil, err
		}
		if _, err := g.guilds.Join(ctx, gd.ID, charID); err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, charID)
	}
	// one officer so events have a second manager
	if len(memberIDs) > 1 {
		if err := g.guilds.SetRank(ctx, gd.ID, founderID, memberIDs[1], model.GuildRankOfficer); err != nil {
			return nil, err
		}
	}

	if _, err := g.territories.Claim(ctx, gd.ID,
		territoryNames[g.rng.Intn(len(territoryNames))],
		territoryTypes[g.rng.Intn(len(territoryTypes))],
		fmt.Sprintf("%d,%d", g.rng.Intn(100), g.rng.Intn(100)),
		1+g.rng.Intn(3)); err != nil {
		return nil, err
	}

	projectNames := g.registry.ProjectNames()
	if len(projectNames) > 0 {
		proj, err := g.projects.Start(ctx, gd.ID, projectNames[g.rng.Intn(len(projectNames))], 1)
		if err != nil {
			return nil, err
		}
		if _, err := g.projects.Contribute(ctx, proj.ID, founderID,
			1+int64(g.rng.Intn(int(proj.RequiredProgress)))); err != nil {
			return nil, err
		}
	}

	raidNames := g.registry.RaidNames()
	if len(raidNames) > 0 {
		r, err := g.raids.Start(ctx, gd.ID, raidNames[g.rng.Intn(len(raidNames))],
			1+g.rng.Intn(5), model.RaidDifficultyNormal)
		if err != nil {
			return nil, err
		}
		if _, err := g.raids.Join(ctx, r.ID, founderID); err != nil {
			return nil, err
		}
	}

	start := time.Now().Add(time.Duration(1+g.rng.Intn(48)) * time.Hour)
	if _, err := g.events.Create(ctx, gd.ID, founderID,
		"Chasse au Trésor", "hunt", "generated demo event",
		start, start.Add(2*time.Hour), 10+g.rng.Intn(20),
		model.EventRequirements{}, model.RewardSchedule{Coin: 500}); err != nil {
		return nil, err
	}

	return gd, nil
}

func (g *Generator) createCharacter(ctx context.Context, name string) (int64, error) {
	c := model.Character{Name: name, Level: 1 + g.rng.Intn(50), Gold: int64(g.rng.Intn(10000))}
	if err := g.db.WithContext(ctx).Create(&c).Error; err != nil {
		return 0, err
	}
	return c.ID, nil
}
