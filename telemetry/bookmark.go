package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkDensitySurge   BookmarkType = "density_surge"
	BookmarkEdgeCollapse   BookmarkType = "edge_collapse"
	BookmarkCapSaturation  BookmarkType = "cap_saturation"
	BookmarkTopologyChange BookmarkType = "topology_change"
	BookmarkSteadyState    BookmarkType = "steady_state"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Frame       int          `csv:"frame"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"frame", b.Frame,
		"description", b.Description,
	)
}

// BookmarkDetector flags notable windows in the field's telemetry.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentEdgePeak    float64 // peak mean edges since the last collapse
	prevSaturatedFrac float64
	steadyWindows     int // consecutive windows with steady degree
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady state detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		for _, check := range []func(WindowStats) *Bookmark{
			bd.checkDensitySurge,
			bd.checkEdgeCollapse,
			bd.checkTopologyChange,
		} {
			if b := check(stats); b != nil {
				bookmarks = append(bookmarks, *b)
			}
		}
	}

	// These compare against tracked state rather than history
	if b := bd.checkCapSaturation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)

	if b := bd.checkSteadyState(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if stats.EdgesMean > bd.recentEdgePeak {
		bd.recentEdgePeak = stats.EdgesMean
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns stored windows, oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	ordered := make([]WindowStats, 0, bd.historySize)
	ordered = append(ordered, bd.history[bd.historyIdx:]...)
	return append(ordered, bd.history[:bd.historyIdx]...)
}

// previous returns the most recently stored window.
func (bd *BookmarkDetector) previous() WindowStats {
	i := (bd.historyIdx - 1 + bd.historySize) % bd.historySize
	return bd.history[i]
}

func (bd *BookmarkDetector) checkDensitySurge(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	degrees := make([]float64, len(history))
	for i, h := range history {
		degrees[i] = h.DegreeMean
	}
	avg := stat.Mean(degrees, nil)
	if avg == 0 {
		return nil
	}

	if stats.DegreeMean > avg*2.0 && stats.DegreeMean >= 1 {
		return &Bookmark{
			Type:        BookmarkDensitySurge,
			Frame:       stats.WindowEnd,
			Description: fmt.Sprintf("Mean degree %.2f is %.1fx average (%.2f)", stats.DegreeMean, stats.DegreeMean/avg, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkEdgeCollapse(stats WindowStats) *Bookmark {
	if bd.recentEdgePeak < 10 {
		return nil
	}

	drop := 1.0 - stats.EdgesMean/bd.recentEdgePeak
	if drop > 0.5 {
		// Reset the peak after a collapse
		oldPeak := bd.recentEdgePeak
		bd.recentEdgePeak = stats.EdgesMean

		return &Bookmark{
			Type:        BookmarkEdgeCollapse,
			Frame:       stats.WindowEnd,
			Description: fmt.Sprintf("Edges dropped %.0f%% from peak %.1f to %.1f", drop*100, oldPeak, stats.EdgesMean),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkCapSaturation(stats WindowStats) *Bookmark {
	var frac float64
	if stats.Particles > 0 {
		frac = stats.SaturatedMean / float64(stats.Particles)
	}
	prev := bd.prevSaturatedFrac
	bd.prevSaturatedFrac = frac

	// Trigger on the upward crossing only
	if frac >= 0.5 && prev < 0.5 {
		return &Bookmark{
			Type:        BookmarkCapSaturation,
			Frame:       stats.WindowEnd,
			Description: fmt.Sprintf("%.0f%% of particles at the connection cap (%d)", frac*100, stats.MaxConnections),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkTopologyChange(stats WindowStats) *Bookmark {
	prev := bd.previous()
	if stats.Links == prev.Links && stats.LinkGroups == prev.LinkGroups {
		return nil
	}

	return &Bookmark{
		Type:  BookmarkTopologyChange,
		Frame: stats.WindowEnd,
		Description: fmt.Sprintf("Links %d -> %d, groups %d -> %d at threshold %.0f",
			prev.Links, stats.Links, prev.LinkGroups, stats.LinkGroups, stats.LinkThreshold),
	}
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	if stats.DegreeMean <= 0 {
		bd.steadyWindows = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	degrees := make([]float64, len(recent))
	for i, h := range recent {
		degrees[i] = h.DegreeMean
	}
	mean, std := stat.PopMeanStdDev(degrees, nil)

	// Coefficient of variation under 10%
	if mean > 0 && std/mean < 0.1 {
		bd.steadyWindows++
	} else {
		bd.steadyWindows = 0
	}

	if bd.steadyWindows == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Frame:       stats.WindowEnd,
			Description: fmt.Sprintf("Mean degree steady at %.2f over 5+ windows", mean),
		}
	}

	return nil
}
