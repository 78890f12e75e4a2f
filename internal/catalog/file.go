package catalog

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/e164networks/e164bill/internal/model"
)

// ruleFile is the YAML shape for an operator-maintained rule set. Costs
// are strings so exact decimal values survive parsing.
type ruleFile struct {
	Rules []struct {
		Code          string   `yaml:"code"`
		DisplayName   string   `yaml:"display_name"`
		Prefixes      []string `yaml:"prefixes"`
		ExactLength   int      `yaml:"exact_length"`
		Priority      int      `yaml:"priority"`
		E164Product   int      `yaml:"e164_product"`
		BlockSize     int      `yaml:"block_size"`
		SetupCost     string   `yaml:"setup_cost"`
		RecurringCost string   `yaml:"recurring_cost"`
	} `yaml:"rules"`
}

// LoadRulesFile reads product rules from a YAML file, for seeding the
// catalog with a customized rule set instead of the built-in defaults.
func LoadRulesFile(path string) ([]model.ProductRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read rules file %s", path)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse rules file %s", path)
	}
	if len(rf.Rules) == 0 {
		return nil, eris.Errorf("catalog: rules file %s contains no rules", path)
	}

	rules := make([]model.ProductRule, 0, len(rf.Rules))
	for _, r := range rf.Rules {
		if r.Code == "" {
			return nil, eris.Errorf("catalog: rules file %s has a rule without a code", path)
		}
		setup, err := parseCost(r.SetupCost)
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: rule %s setup_cost", r.Code)
		}
		recurring, err := parseCost(r.RecurringCost)
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: rule %s recurring_cost", r.Code)
		}

		blockSize := r.BlockSize
		if blockSize == 0 {
			blockSize = 1
		}
		e164 := r.E164Product
		if e164 == 0 {
			e164 = 1
		}

		rules = append(rules, model.ProductRule{
			Code:          r.Code,
			DisplayName:   r.DisplayName,
			Prefixes:      r.Prefixes,
			ExactLength:   r.ExactLength,
			Priority:      r.Priority,
			E164Product:   e164,
			BlockSize:     blockSize,
			SetupCost:     setup,
			RecurringCost: recurring,
		})
	}
	return rules, nil
}

func parseCost(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
