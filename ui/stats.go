package ui

import (
	"fmt"

	"github.com/pthm-cable/plexus/cluster"
)

func frameStats(data any) cluster.FrameStats {
	s, _ := data.(cluster.FrameStats)
	return s
}

func statInt(get func(cluster.FrameStats) int) func(any) float32 {
	return func(data any) float32 { return float32(get(frameStats(data))) }
}

// FieldStatsPanel describes the field stats panel. Data is a cluster.FrameStats.
func FieldStatsPanel(width int32) PanelDescriptor {
	return PanelDescriptor{
		Title: "Field",
		Width: width,
		Sections: []SectionDescriptor{
			{
				Title: "Particles",
				Fields: []FieldDescriptor{
					{Label: "Clusters", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s cluster.FrameStats) int { return s.Clusters })},
					{Label: "Particles", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s cluster.FrameStats) int { return s.Particles })},
					{Label: "Edges", Widget: WidgetText, TextGetter: func(data any) string {
						s := frameStats(data)
						return fmt.Sprintf("%d / %d", s.ActiveEdges, s.MaxEdges)
					}},
					{Label: "Fill", Widget: WidgetBar, Getter: func(data any) float32 {
						s := frameStats(data)
						if s.MaxEdges == 0 {
							return 0
						}
						return float32(s.ActiveEdges) / float32(s.MaxEdges)
					}},
					{Label: "Degree", Widget: WidgetText, Format: "%.2f", Getter: func(data any) float32 {
						return float32(frameStats(data).MeanDegree)
					}},
					{Label: "Saturated", Widget: WidgetText, Format: "%.0f",
						Getter:  statInt(func(s cluster.FrameStats) int { return s.Saturated }),
						Visible: func(data any) bool { return frameStats(data).Saturated > 0 },
					},
				},
			},
			{
				Title: "Structure",
				Fields: []FieldDescriptor{
					{Label: "Links", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s cluster.FrameStats) int { return s.Links })},
					{Label: "Groups", Widget: WidgetText, Format: "%.0f", Getter: statInt(func(s cluster.FrameStats) int { return s.LinkGroups })},
				},
				Visible: func(data any) bool { return frameStats(data).Clusters > 1 },
			},
		},
	}
}
