package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz      int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	MaxStackSize    int `yaml:"max_stack_size" json:"max_stack_size"`
	DefaultSlots    int `yaml:"default_slots" json:"default_slots"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`

	Activators Activators `yaml:"activators" json:"activators"`
}

type Activators struct {
	Materials  []string `yaml:"materials" json:"materials"`
	Containers []string `yaml:"containers" json:"containers"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:   20,
		MaxStackSize: 64,
		DefaultSlots: 27,
		Activators: Activators{
			Materials:  []string{"REDSTONE_BLOCK"},
			Containers: []string{"CHEST"},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.MaxStackSize <= 0 {
		t.MaxStackSize = d.MaxStackSize
	}
	if t.DefaultSlots <= 0 {
		t.DefaultSlots = d.DefaultSlots
	}
	t.Activators.Materials = upperAll(t.Activators.Materials)
	t.Activators.Containers = upperAll(t.Activators.Containers)
}

func (t Tuning) Validate() error {
	if t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz %d out of range (1..1000)", t.TickRateHz)
	}
	if t.MaxStackSize > 1024 {
		return fmt.Errorf("max_stack_size %d out of range (1..1024)", t.MaxStackSize)
	}
	if t.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must not be negative")
	}
	if len(t.Activators.Materials) == 0 {
		return fmt.Errorf("activators.materials must not be empty")
	}
	if len(t.Activators.Containers) == 0 {
		return fmt.Errorf("activators.containers must not be empty")
	}
	return nil
}

func (t Tuning) CacheTTL() time.Duration {
	return time.Duration(t.CacheTTLSeconds) * time.Second
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
