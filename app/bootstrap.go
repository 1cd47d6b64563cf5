package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type bootstrapParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Attempts  *ledger.Service
	Groups    *registry.Service
	Admins    *admin.Service
	Logger    *logging.Service
}

// Bootstrap loads persisted state on start. It must be invoked before the
// scheduler so timers are armed from a loaded registry.
func Bootstrap(p bootstrapParams) {
	logger := p.Logger.Named("bootstrap")
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return bootstrap(ctx, p.Config, p.Attempts, p.Groups, p.Admins, logger)
		},
	})
}

func bootstrap(ctx context.Context, cfg *config.Config, attempts *ledger.Service, groups *registry.Service, admins *admin.Service, logger *logging.Service) error {
	if err := groups.Load(ctx); err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	if err := attempts.Load(ctx); err != nil {
		return fmt.Errorf("failed to load attempts: %w", err)
	}
	if err := admins.Load(ctx); err != nil {
		return fmt.Errorf("failed to load admins: %w", err)
	}

	seed, err := config.LoadSeed(cfg.Seed.File)
	if err != nil {
		return err
	}
	if err := applySeed(ctx, seed, groups, admins, logger); err != nil {
		return err
	}

	if len(admins.Admins()) == 0 {
		logger.Warn("no admins configured, set ADMIN_SEED_ID or list admins in the seed file")
	}

	return pruneOrphans(ctx, attempts, groups, logger)
}

// applySeed adds seed admins and registers seed groups that do not exist
// yet. Groups already in the registry keep their stored configuration.
func applySeed(ctx context.Context, seed *config.Seed, groups *registry.Service, admins *admin.Service, logger *logging.Service) error {
	if err := admins.Seed(ctx, seed.Admins...); err != nil {
		return fmt.Errorf("failed to seed admins: %w", err)
	}

	for _, sg := range seed.Groups {
		if _, ok := groups.Get(sg.ID); ok {
			continue
		}

		upd, err := seedUpdate(sg)
		if err != nil {
			return err
		}
		if _, _, err := groups.Upsert(ctx, sg.ID, upd); err != nil {
			return fmt.Errorf("failed to seed group %d: %w", sg.ID, err)
		}
		logger.Info("group seeded", zap.Int64("group_id", sg.ID))
	}
	return nil
}

func seedUpdate(sg config.SeedGroup) (registry.Update, error) {
	upd := registry.Update{
		Secret: &sg.Secret,
		Active: sg.Active,
	}
	if sg.Cadence != 0 {
		upd.Cadence = &sg.Cadence
	}
	if sg.Style != "" {
		style, err := presentation.ParseStyle(sg.Style)
		if err != nil {
			return registry.Update{}, fmt.Errorf("seed group %d: %w", sg.ID, err)
		}
		upd.Style = &style
	}
	if sg.Timezone != "" {
		upd.Timezone = &sg.Timezone
	}
	if sg.DefaultAttempts != 0 {
		upd.DefaultAttempts = &sg.DefaultAttempts
	}
	return upd, nil
}

// pruneOrphans drops attempt records of groups that are no longer
// registered, e.g. after a removal whose purge failed.
func pruneOrphans(ctx context.Context, attempts *ledger.Service, groups *registry.Service, logger *logging.Service) error {
	known := make([]int64, 0)
	for _, g := range groups.List() {
		known = append(known, g.ID)
	}

	for _, groupID := range attempts.Groups() {
		if slices.Contains(known, groupID) {
			continue
		}
		n, err := attempts.PurgeGroup(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to prune attempts of group %d: %w", groupID, err)
		}
		logger.Warn("pruned attempt records of an unregistered group",
			zap.Int64("group_id", groupID),
			zap.Int64("records", n))
	}
	return nil
}
