package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
)

// ReferenceGenerator allocates the human-readable, year-scoped mission
// reference `MIS-<year>-<sequence>`. The sequence restarts every year and is
// allocated by probing for the first unused number; uniqueness is ultimately
// enforced by the reference column's unique constraint.
type ReferenceGenerator struct {
	missions port.MissionRepository
	now      func() time.Time
}

// NewReferenceGenerator creates a new reference generator
func NewReferenceGenerator(missions port.MissionRepository) *ReferenceGenerator {
	return &ReferenceGenerator{
		missions: missions,
		now:      time.Now,
	}
}

// Next returns the first unused reference for the current year
func (g *ReferenceGenerator) Next(ctx context.Context) (string, error) {
	year := g.now().Year()

	for seq := 1; ; seq++ {
		ref := fmt.Sprintf("MIS-%d-%03d", year, seq)
		exists, err := g.missions.ReferenceExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("probe reference %s: %w", ref, err)
		}
		if !exists {
			return ref, nil
		}
	}
}
