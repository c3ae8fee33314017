// Package planner derives the day structure of an itinerary from its dates.
package planner

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
)

// DeriveTitle returns the label of the day at index in a plan of total days
func DeriveTitle(index, total int) string {
	switch {
	case index == 0:
		return "Day 1 (Arrival)"
	case total > 1 && index == total-1:
		return fmt.Sprintf("Day %d (Departure)", index+1)
	default:
		return fmt.Sprintf("Day %d", index+1)
	}
}

// DayCount returns the number of days spanned by start..end inclusive.
// A nil or earlier end counts as a single day.
func DayCount(start civil.Date, end *civil.Date) int {
	if end == nil || end.Before(start) {
		return 1
	}
	return end.DaysSince(start) + 1
}

// RecomputeDays rebuilds it.Days from StartDate and EndDate.
//
// A day whose date survives the change keeps its blocks unchanged; new dates
// start empty. Without a start date the itinerary collapses to one placeholder
// day, which only keeps the blocks of a previous placeholder day.
// EndDate is clamped to StartDate when it is earlier.
// It returns the number of blocks that no longer have a day.
func RecomputeDays(it *models.Itinerary) int {
	previous := it.Days

	if it.StartDate == nil {
		placeholder := models.Day{Blocks: []models.Block{}}
		carried := false
		dropped := 0
		for _, d := range previous {
			if d.Date == nil && !carried {
				if d.Blocks != nil {
					placeholder.Blocks = d.Blocks
				}
				carried = true
				continue
			}
			dropped += len(d.Blocks)
		}
		placeholder.Title = DeriveTitle(0, 1)
		it.Days = []models.Day{placeholder}
		return dropped
	}

	start := *it.StartDate
	if it.EndDate != nil && it.EndDate.Before(start) {
		end := start
		it.EndDate = &end
	}

	dropped := 0
	byDate := make(map[civil.Date][]models.Block, len(previous))
	for _, d := range previous {
		if d.Date == nil {
			dropped += len(d.Blocks)
			continue
		}
		if _, dup := byDate[*d.Date]; dup {
			dropped += len(d.Blocks)
			continue
		}
		byDate[*d.Date] = d.Blocks
	}

	total := DayCount(start, it.EndDate)
	days := make([]models.Day, total)
	for i := range days {
		date := start.AddDays(i)
		blocks, ok := byDate[date]
		if ok {
			delete(byDate, date)
		}
		if blocks == nil {
			blocks = []models.Block{}
		}
		days[i] = models.Day{
			Date:   &date,
			Title:  DeriveTitle(i, total),
			Blocks: blocks,
		}
	}

	for _, orphaned := range byDate {
		dropped += len(orphaned)
	}

	it.Days = days
	return dropped
}
