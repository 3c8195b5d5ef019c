package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/forPelevin/podcrop/internal/config"
	"github.com/forPelevin/podcrop/internal/domain/timecode"
	"github.com/forPelevin/podcrop/internal/types"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	cfgs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		cfgs = append(cfgs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(cfgs)
	return tw.Render()
}

func renderPlan(m types.Manifest) string {
	rows := make([][]string, 0, len(m.Clips))
	for _, c := range m.Clips {
		sc := c.Scene
		if sc != "" && c.AutoDetected {
			sc += " (auto)"
		}
		spk := strings.Join(c.Speakers, ", ")
		if c.LowConfidence {
			spk += " (fallback)"
		}
		crops := make([]string, 0, len(c.Crops))
		for _, r := range c.Crops {
			crops = append(crops, fmt.Sprintf("%dx%d@%d,%d", r.Width, r.Height, r.X, r.Y))
		}
		status := c.Status
		if c.Error != "" {
			status += ": " + c.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Number),
			span(c),
			sc,
			spk,
			strings.Join(crops, "\n"),
			status,
		})
	}
	head := fmt.Sprintf("%d speakers, %d clips", m.Speakers, len(m.Clips))
	return head + "\n" + renderTable(
		[]string{"#", "Range", "Scene", "Speakers", "Crops", "Status"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func renderSummary(m types.Manifest) string {
	counts := map[string]int{}
	rows := make([][]string, 0, len(m.Clips))
	for _, c := range m.Clips {
		counts[c.Status]++
		rows = append(rows, []string{strconv.Itoa(c.Number), c.Title, c.Scene, c.Status, c.File})
	}
	statuses := make([]string, 0, len(counts))
	for s, n := range counts {
		statuses = append(statuses, fmt.Sprintf("%s %d", s, n))
	}
	sort.Strings(statuses)
	return renderTable([]string{"#", "Title", "Scene", "Status", "File"}, rows, []columnAlignment{alignRight}) +
		"\n" + strings.Join(statuses, ", ")
}

func renderLayouts(app config.Config) string {
	rows := make([][]string, 0, len(app.Layouts))
	for _, l := range app.Layouts {
		mapping := make([]string, 0, len(l.Mapping))
		for _, a := range l.Mapping {
			if a.Position != nil {
				mapping = append(mapping, fmt.Sprintf("%s=%d", a.Speaker, *a.Position))
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(l.Speakers),
			strconv.Itoa(len(l.SpeakersScene)),
			strconv.Itoa(len(l.ContentScene)),
			strings.Join(mapping, " "),
		})
	}
	return renderTable([]string{"Speakers", "Speaker crops", "Content crops", "Mapping"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight})
}

func span(c types.ManifestClip) string {
	return timecode.Format(timecode.FromSeconds(c.StartSec)) + " - " + timecode.Format(timecode.FromSeconds(c.EndSec))
}
