package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/songbot/internal/models"
)

var (
	_ list.Item = queueItem{}
)

// queueItem wraps [models.QueueItem] to implement [list.Item].
type queueItem struct {
	position int
	item     models.QueueItem
}

func (i queueItem) FilterValue() string { return i.item.Track.Name }
func (i queueItem) Title() string {
	return fmt.Sprintf("%d. %s", i.position, i.item.Track.Name)
}
func (i queueItem) Description() string {
	desc := strings.Join(i.item.Track.Artists, ", ")
	if desc == "" {
		desc = "unknown artist"
	}
	return fmt.Sprintf("%s • requested by %s", desc, i.item.RequesterDisplayName)
}

func queueItems(queue []models.QueueItem) []list.Item {
	items := make([]list.Item, len(queue))
	for i, q := range queue {
		items[i] = queueItem{position: i + 1, item: q}
	}
	return items
}
