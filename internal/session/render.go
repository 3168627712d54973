package session

import (
	"fmt"
	"time"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/extractor"
	"github.com/dgallion1/codetransmute/internal/metrics"
	"github.com/dgallion1/codetransmute/internal/preview"
	"github.com/dgallion1/codetransmute/internal/projector"
)

// View is the projection of one code source inside a file.
type View struct {
	Source     string                `json:"source"`
	Language   codetree.Language     `json:"language"`
	LineOffset int                   `json:"line_offset"`
	Markup     string                `json:"markup"`
	Preview    string                `json:"preview"`
	Stats      projector.Stats       `json:"stats"`
	Counts     map[codetree.Kind]int `json:"counts"`
}

// Renderer projects extracted trees and records per-level projection stats.
type Renderer struct {
	stats *metrics.ProjectionStats
}

func NewRenderer(stats *metrics.ProjectionStats) *Renderer {
	return &Renderer{stats: stats}
}

// Render projects every tree at level, one view per source in order.
func (r *Renderer) Render(trees []extractor.Tree, level codetree.Level) ([]View, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", codetree.ErrInvalidLevel, int(level))
	}
	views := make([]View, 0, len(trees))
	for _, t := range trees {
		start := time.Now()
		plan, err := projector.Plan(t.Root, level)
		if err != nil {
			return nil, err
		}
		markup := projector.Render(plan)
		elapsed := time.Since(start)
		summary := projector.Summarize(plan)
		metrics.ObserveProjection(int(level), elapsed)
		if r.stats != nil {
			r.stats.Record(int(level), elapsed, summary.Blocks, summary.Placeholders)
		}

		code, err := preview.GenerateBlocks(plan)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", t.Name, err)
		}
		views = append(views, View{
			Source:     t.Name,
			Language:   t.Language,
			LineOffset: t.LineOffset,
			Markup:     markup,
			Preview:    code,
			Stats:      summary,
			Counts:     codetree.Count(t.Root),
		})
	}
	return views, nil
}
