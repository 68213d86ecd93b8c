package domain

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var validate = validator.New()

// Scenario is one named set of policy edits. Rules are kept in the order they
// were written in the scenario file, since overlapping bands are applied in turn.
type Scenario struct {
	Name        string
	Description string

	Overflow          []OverflowRule
	UpgradeByCapacity []CapacityUpgrade
	// UpgradeByID is nil when the scenario has no upgrade_by_id section.
	UpgradeByID *IDUpgrade

	Agriculture *AgricultureRule
}

// OverflowRule adds Percent of the inflow to the outflow of every site in Band.
type OverflowRule struct {
	Band    CapacityBand
	Percent float64
}

// Upgrade is the common part of both upgrade rules: an optional new treatment
// type and per-parameter target efficiencies in percent.
type Upgrade struct {
	Type    string
	Targets []EfficiencyTarget
}

// EfficiencyTarget is the minimum treatment efficiency for one parameter.
type EfficiencyTarget struct {
	Parameter Parameter
	Percent   float64
}

// CapacityUpgrade applies Upgrade to every site in Band.
type CapacityUpgrade struct {
	Band CapacityBand
	Upgrade
}

// IDUpgrade applies Upgrade to the listed sites. A nil IDs means the id_list
// key was absent, which is an error when the rule is applied.
type IDUpgrade struct {
	IDs []string
	Upgrade
}

// AgricultureRule swaps agricultural losses for those in a NIBIO template.
type AgricultureRule struct {
	// Sheet defaults to the scenario name.
	Sheet    string `yaml:"sheet"`
	LossType string `yaml:"loss_type" validate:"omitempty,oneof=annual risk"`
}

type scenarioFile struct {
	Name              string           `yaml:"name" validate:"required"`
	Description       string           `yaml:"description"`
	Overflow          yaml.MapSlice    `yaml:"overflow"`
	UpgradeByCapacity yaml.MapSlice    `yaml:"upgrade_by_capacity"`
	UpgradeByID       yaml.MapSlice    `yaml:"upgrade_by_id"`
	Agriculture       *AgricultureRule `yaml:"agriculture"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	scen, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return scen, nil
}

// ParseScenario decodes a scenario definition:
//
//	name: Tiltak A
//	overflow:
//	  "0-2000": 5
//	upgrade_by_capacity:
//	  "2000-10000": {type: "Kjemisk-biologisk", totp: 90}
//	upgrade_by_id:
//	  id_list: ["0301AL01"]
//	  totn: 70
//	agriculture:
//	  loss_type: annual
func ParseScenario(data []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: parse scenario: %v", ErrInvalidInput, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	scen := &Scenario{
		Name:        f.Name,
		Description: f.Description,
		Agriculture: f.Agriculture,
	}
	if scen.Agriculture != nil {
		if scen.Agriculture.Sheet == "" {
			scen.Agriculture.Sheet = scen.Name
		}
		if scen.Agriculture.LossType == "" {
			scen.Agriculture.LossType = "annual"
		}
	}

	for _, item := range f.Overflow {
		band, err := ParseCapacityBand(fmt.Sprint(item.Key))
		if err != nil {
			return nil, fmt.Errorf("overflow: %w", err)
		}
		pct, ok := toFloat(item.Value)
		if !ok {
			return nil, invalidf("overflow %q: percentage must be a number, got %v", item.Key, item.Value)
		}
		scen.Overflow = append(scen.Overflow, OverflowRule{Band: band, Percent: pct})
	}

	for _, item := range f.UpgradeByCapacity {
		band, err := ParseCapacityBand(fmt.Sprint(item.Key))
		if err != nil {
			return nil, fmt.Errorf("upgrade_by_capacity: %w", err)
		}
		fields, ok := item.Value.(yaml.MapSlice)
		if !ok {
			return nil, invalidf("upgrade_by_capacity %q: expected a mapping", item.Key)
		}
		up, _, err := parseUpgrade(fields, false)
		if err != nil {
			return nil, fmt.Errorf("upgrade_by_capacity %q: %w", item.Key, err)
		}
		scen.UpgradeByCapacity = append(scen.UpgradeByCapacity, CapacityUpgrade{Band: band, Upgrade: up})
	}

	if f.UpgradeByID != nil {
		up, ids, err := parseUpgrade(f.UpgradeByID, true)
		if err != nil {
			return nil, fmt.Errorf("upgrade_by_id: %w", err)
		}
		scen.UpgradeByID = &IDUpgrade{IDs: ids, Upgrade: up}
	}

	return scen, nil
}

// parseUpgrade reads the type, id_list (when allowed) and parameter keys of an
// upgrade mapping. Any other key must name a wastewater parameter.
func parseUpgrade(fields yaml.MapSlice, allowIDs bool) (Upgrade, []string, error) {
	var up Upgrade
	var ids []string
	for _, f := range fields {
		key := fmt.Sprint(f.Key)
		switch {
		case key == "type":
			up.Type = strings.TrimSpace(fmt.Sprint(f.Value))
		case key == "id_list" && allowIDs:
			if f.Value == nil {
				ids = nil
				continue
			}
			list, ok := f.Value.([]any)
			if !ok {
				return Upgrade{}, nil, invalidf("id_list must be a list")
			}
			ids = make([]string, 0, len(list))
			for _, v := range list {
				ids = append(ids, fmt.Sprint(v))
			}
		default:
			par, err := ParseParameter(key)
			if err != nil {
				return Upgrade{}, nil, err
			}
			pct, ok := toFloat(f.Value)
			if !ok {
				return Upgrade{}, nil, invalidf("%s: efficiency must be a number, got %v", key, f.Value)
			}
			up.Targets = append(up.Targets, EfficiencyTarget{Parameter: par, Percent: pct})
		}
	}
	return up, ids, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
