// package formatter renders the song queue in the formats supported by `queue list` (plain text, CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songbot/internal/models"
	"github.com/desertthunder/songbot/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the accepted format names.
func Formats() []Format {
	return []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}
}

// ParseFormat resolves a format name. "md" is accepted for Markdown and "txt" for text.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
}

// FormatDuration renders d as m:ss, or h:mm:ss for an hour or longer.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// QueueToCSV converts queue items to CSV with columns: Position, ID, Track ID, Title, Artists, Album, Duration,
// Requester, Requested At
func QueueToCSV(items []models.QueueItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Track ID", "Title", "Artists", "Album", "Duration", "Requester", "Requested At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range items {
		record := []string{
			strconv.Itoa(i + 1),
			item.ID,
			item.Track.ID,
			item.Track.Name,
			item.Track.ArtistNames(),
			item.Track.Album,
			FormatDuration(item.Track.Duration()),
			item.RequesterDisplayName,
			item.RequestedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// QueueToMarkdown converts queue items to a Markdown document with a numbered track list.
func QueueToMarkdown(items []models.QueueItem) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Song Queue\n\n")
	fmt.Fprintf(&buf, "**Pending**: %d\n\n", len(items))

	if len(items) == 0 {
		buf.WriteString("_The song queue is empty._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("## Tracks\n\n")
	for i, item := range items {
		albumPart := ""
		if item.Track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", item.Track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s], requested by @%s\n",
			i+1, artistsOrUnknown(item.Track), item.Track.Name, albumPart,
			FormatDuration(item.Track.Duration()), item.RequesterDisplayName)
	}

	return buf.Bytes(), nil
}

// QueueToText converts queue items to plain text.
func QueueToText(items []models.QueueItem) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Pending: %d\n", len(items))
	if len(items) == 0 {
		return buf.Bytes(), nil
	}
	buf.WriteString("\n")

	for i, item := range items {
		fmt.Fprintf(&buf, "%d. %s - %s (@%s)\n", i+1, artistsOrUnknown(item.Track), item.Track.Name, item.RequesterDisplayName)
	}

	return buf.Bytes(), nil
}

// QueueToJSON converts queue items to an indented JSON array. An empty queue is "[]".
func QueueToJSON(items []models.QueueItem) ([]byte, error) {
	if items == nil {
		items = []models.QueueItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Write renders items in the given format to w.
func Write(w io.Writer, format Format, items []models.QueueItem) error {
	var data []byte
	var err error

	switch format {
	case FormatText:
		data, err = QueueToText(items)
	case FormatCSV:
		data, err = QueueToCSV(items)
	case FormatMarkdown:
		data, err = QueueToMarkdown(items)
	case FormatJSON:
		data, err = QueueToJSON(items)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func artistsOrUnknown(t models.Track) string {
	if len(t.Artists) == 0 {
		return "Unknown Artist"
	}
	return t.ArtistNames()
}
