package domain

import (
	"context"
	"log/slog"
	"math"
)

// TypeValidator checks a treatment type against the TEOTIL3 vocabulary for a
// sector.
type TypeValidator interface {
	ValidateType(ctx context.Context, sector, siteType string) error
}

// RuleReport summarizes the effect of one rule application.
type RuleReport struct {
	Rule          string             `json:"rule"`
	Selector      string             `json:"selector"`
	SitesSelected int                `json:"sites_selected"`
	NewType       string             `json:"new_type,omitempty"`
	AddedTonnes   map[string]float64 `json:"added_tonnes,omitempty"`
	// AlreadyAbove counts, per parameter, selected sites whose observed
	// efficiency was at or above the target and were left unchanged.
	AlreadyAbove map[string]int `json:"already_above,omitempty"`
}

// ApplyScenario runs the wastewater rules of scen in order: overflow,
// upgrade_by_capacity, upgrade_by_id. Sites are modified in place.
func ApplyScenario(ctx context.Context, sites *SiteTable, scen *Scenario, types TypeValidator, logger *slog.Logger) ([]RuleReport, error) {
	var reports []RuleReport

	r, err := EstimateOverflows(sites, scen.Overflow, logger)
	if err != nil {
		return nil, err
	}
	reports = append(reports, r...)

	r, err = UpgradeByCapacity(ctx, sites, scen.UpgradeByCapacity, types, logger)
	if err != nil {
		return nil, err
	}
	reports = append(reports, r...)

	if scen.UpgradeByID != nil {
		rep, err := UpgradeByID(ctx, sites, *scen.UpgradeByID, types, logger)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// EstimateOverflows adds pct% of the inflow to the outflow of every site in
// each band, for all wastewater parameters. A missing inflow adds nothing.
func EstimateOverflows(sites *SiteTable, rules []OverflowRule, logger *slog.Logger) ([]RuleReport, error) {
	reports := make([]RuleReport, 0, len(rules))
	for _, rule := range rules {
		if err := ValidatePercentage(rule.Percent, logger); err != nil {
			return nil, err
		}

		selected := selectByBand(sites, rule.Band)
		rep := RuleReport{
			Rule:          "overflow",
			Selector:      rule.Band.String(),
			SitesSelected: len(selected),
			AddedTonnes:   make(map[string]float64, len(WWParameters)),
		}
		for _, par := range WWParameters {
			for _, i := range selected {
				load := &sites.Sites[i].Loads[par]
				overflow := rule.Percent * load.In / 100
				if math.IsNaN(overflow) {
					overflow = 0
				}
				load.Out += overflow
				rep.AddedTonnes[par.String()] += overflow
			}
		}

		logger.Info("overflow applied",
			"band", rule.Band.String(),
			"percent", rule.Percent,
			"sites", len(selected),
		)
		reports = append(reports, rep)
	}
	return reports, nil
}

// UpgradeByCapacity applies each capacity-band upgrade in turn. See applyUpgrade
// for how efficiencies are raised.
func UpgradeByCapacity(ctx context.Context, sites *SiteTable, rules []CapacityUpgrade, types TypeValidator, logger *slog.Logger) ([]RuleReport, error) {
	reports := make([]RuleReport, 0, len(rules))
	for _, rule := range rules {
		selected := selectByBand(sites, rule.Band)
		rep, err := applyUpgrade(ctx, sites, selected, rule.Upgrade, types, logger)
		if err != nil {
			return nil, err
		}
		rep.Rule = "upgrade_by_capacity"
		rep.Selector = rule.Band.String()
		logger.Info("capacity upgrade applied", "band", rep.Selector, "sites", rep.SitesSelected, "type", rule.Type)
		reports = append(reports, rep)
	}
	return reports, nil
}

// UpgradeByID applies an upgrade to the sites listed in rule.IDs. IDs that do
// not match any site are ignored.
func UpgradeByID(ctx context.Context, sites *SiteTable, rule IDUpgrade, types TypeValidator, logger *slog.Logger) (RuleReport, error) {
	if rule.IDs == nil {
		return RuleReport{}, ErrMissingIDList
	}

	wanted := make(map[string]struct{}, len(rule.IDs))
	for _, id := range rule.IDs {
		wanted[id] = struct{}{}
	}
	var selected []int
	for i, s := range sites.Sites {
		if _, ok := wanted[s.AnleggNr]; ok {
			selected = append(selected, i)
		}
	}

	rep, err := applyUpgrade(ctx, sites, selected, rule.Upgrade, types, logger)
	if err != nil {
		return RuleReport{}, err
	}
	rep.Rule = "upgrade_by_id"
	rep.Selector = "id_list"
	logger.Info("id upgrade applied", "ids", len(rule.IDs), "sites", rep.SitesSelected, "type", rule.Type)
	return rep, nil
}

// applyUpgrade sets the new type on the selected sites, then for each target
// raises efficiency to max(observed, target) and recomputes the outflow as
// in * (1 - efficiency/100). Efficiency never decreases.
func applyUpgrade(ctx context.Context, sites *SiteTable, selected []int, up Upgrade, types TypeValidator, logger *slog.Logger) (RuleReport, error) {
	rep := RuleReport{
		SitesSelected: len(selected),
		NewType:       up.Type,
		AlreadyAbove:  make(map[string]int, len(up.Targets)),
	}

	if up.Type != "" {
		if types == nil {
			return RuleReport{}, invalidf("cannot validate site type %q: no type vocabulary configured", up.Type)
		}
		if err := types.ValidateType(ctx, SectorLargeWastewater, up.Type); err != nil {
			return RuleReport{}, err
		}
		for _, i := range selected {
			sites.Sites[i].Type = up.Type
		}
	}

	for _, target := range up.Targets {
		if err := ValidatePercentage(target.Percent, logger); err != nil {
			return RuleReport{}, err
		}
		par := target.Parameter

		// Every row is checked, not only the selected ones, so bad raw data
		// surfaces regardless of which band it falls in.
		newEff := make([]float64, len(sites.Sites))
		for i := range sites.Sites {
			eff := maxSkipNaN(sites.Sites[i].Loads[par].Efficiency(), target.Percent)
			if eff < 0 || eff > 100 {
				s := sites.Sites[i]
				return RuleReport{}, integrityf("site %s: %s efficiency %.2f%% is outside [0, 100]", s.AnleggNr, par, eff)
			}
			newEff[i] = eff
		}

		for _, i := range selected {
			load := &sites.Sites[i].Loads[par]
			if math.IsNaN(load.In) {
				continue
			}
			if newEff[i] != target.Percent {
				rep.AlreadyAbove[par.String()]++
			}
			load.Out = load.In * (1 - newEff[i]/100)
		}

		if n := rep.AlreadyAbove[par.String()]; n > 0 {
			logger.Info("sites already above target efficiency left unchanged",
				"parameter", par.String(),
				"target", target.Percent,
				"sites", n,
			)
		}
	}

	return rep, nil
}

func selectByBand(sites *SiteTable, band CapacityBand) []int {
	var idx []int
	for i, s := range sites.Sites {
		if band.Contains(s.CurrentCapacity) {
			idx = append(idx, i)
		}
	}
	return idx
}

// maxSkipNaN returns the larger of a and b, ignoring NaN operands.
func maxSkipNaN(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	}
	return math.Max(a, b)
}
