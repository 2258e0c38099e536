package recordstore

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/SONIX-Kelompok-6/sonix-be/pkg/slug"
)

// SeedData is the JSON layout of a seed file for the memory store.
type SeedData struct {
	Shoes     []Row `json:"shoes"`
	Reviews   []Row `json:"reviews"`
	Favorites []Row `json:"favorites"`
}

// ParseSeed decodes seed JSON. Shoes without a slug get one generated from
// their brand and name.
func ParseSeed(data []byte) (*SeedData, error) {
	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, shoe := range seed.Shoes {
		if shoe.String("shoe_id") == "" {
			return nil, fmt.Errorf("seed shoe %d has no shoe_id", i)
		}
		if shoe.String("slug") == "" {
			shoe["slug"] = slug.Generate(shoe.String("brand") + " " + shoe.String("name"))
		}
	}
	return &seed, nil
}

// LoadSeedFile reads a seed file from disk and loads it into s.
func (s *MemoryStore) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.Seed(Shoes, seed.Shoes...)
	s.Seed(Reviews, seed.Reviews...)
	s.Seed(Favorites, seed.Favorites...)
	return nil
}
