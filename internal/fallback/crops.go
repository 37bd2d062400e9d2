package fallback

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed crops.yaml
var cropsYAML []byte

type cropTable struct {
	DefaultYield float64            `yaml:"default_yield"`
	Unit         string             `yaml:"unit"`
	Crops        map[string]float64 `yaml:"crops"`
}

var (
	cropsOnce sync.Once
	crops     cropTable
)

func loadCrops() cropTable {
	cropsOnce.Do(func() {
		if err := yaml.Unmarshal(cropsYAML, &crops); err != nil {
			panic(fmt.Sprintf("fallback: parsing embedded crops.yaml: %v", err))
		}
		if crops.DefaultYield <= 0 {
			crops.DefaultYield = 3.0
		}
		if crops.Unit == "" {
			crops.Unit = "tons/hectare"
		}
	})
	return crops
}

// BaseYield returns the base yield for a crop and whether the crop is in the table.
func BaseYield(cropType string) (float64, bool) {
	t := loadCrops()
	y, ok := t.Crops[strings.ToLower(strings.TrimSpace(cropType))]
	if !ok {
		return t.DefaultYield, false
	}
	return y, true
}

// YieldUnit is the unit all base yields are expressed in.
func YieldUnit() string {
	return loadCrops().Unit
}
