package rewards

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Tier maps an owned boost to the per-message reward it unlocks. Tiers are
// ordered highest rate first; the first owned tier wins.
type Tier struct {
	Boost string          `yaml:"boost"`
	Rate  decimal.Decimal `yaml:"rate"`
}

// Table holds the reward step function: the boost tiers plus the base rate
// for a fully eligible, unboosted user.
type Table struct {
	Tiers []Tier          `yaml:"tiers"`
	Base  decimal.Decimal `yaml:"base"`
}

type tierFile struct {
	Tiers []struct {
		Boost string `yaml:"boost"`
		Rate  int64  `yaml:"rate"`
	} `yaml:"tiers"`
	Base int64 `yaml:"base"`
}

// DefaultTable returns the production reward tiers.
func DefaultTable() *Table {
	return &Table{
		Tiers: []Tier{
			{Boost: "10x", Rate: decimal.NewFromInt(35)},
			{Boost: "5x", Rate: decimal.NewFromInt(20)},
			{Boost: "2x", Rate: decimal.NewFromInt(10)},
		},
		Base: decimal.NewFromInt(5),
	}
}

// LoadTable reads a tier table from a YAML file. An empty path returns the
// default table.
func LoadTable(tiersFile string) (*Table, error) {
	if tiersFile == "" {
		return DefaultTable(), nil
	}

	var tiersPath string
	if filepath.IsAbs(tiersFile) {
		tiersPath = tiersFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		tiersPath = filepath.Join(wd, tiersFile)
	}

	data, err := os.ReadFile(tiersPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", tiersFile, err)
	}

	var parsed tierFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", tiersFile, err)
	}

	table := &Table{Base: decimal.NewFromInt(parsed.Base)}
	for i, t := range parsed.Tiers {
		if t.Boost == "" {
			return nil, fmt.Errorf("tier at index %d missing boost", i)
		}
		if t.Rate <= 0 {
			return nil, fmt.Errorf("tier %s has non-positive rate %d", t.Boost, t.Rate)
		}
		table.Tiers = append(table.Tiers, Tier{Boost: t.Boost, Rate: decimal.NewFromInt(t.Rate)})
	}
	if len(table.Tiers) == 0 {
		return nil, fmt.Errorf("%s defines no tiers", tiersFile)
	}
	if table.Base.IsZero() {
		return nil, fmt.Errorf("%s defines no base rate", tiersFile)
	}

	// Evaluation takes the first owned tier, so file order must not decide
	// which tier wins.
	sort.SliceStable(table.Tiers, func(i, j int) bool {
		return table.Tiers[i].Rate.GreaterThan(table.Tiers[j].Rate)
	})

	return table, nil
}

// KnownBoost reports whether id names a configured boost tier.
func (t *Table) KnownBoost(id string) bool {
	for _, tier := range t.Tiers {
		if tier.Boost == id {
			return true
		}
	}
	return false
}
