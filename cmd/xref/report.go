package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"starmap-server/internal/crossmatch"
	"starmap-server/internal/resolver"
	"starmap-server/internal/sky"
)

const (
	formatTable    = "table"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatMarkdown:
		return nil
	default:
		return fmt.Errorf("unknown format: %s (want table, csv or markdown)", format)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	return t
}

func render(t table.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	switch format {
	case formatTable:
		t.Render()
	case formatCSV:
		t.RenderCSV()
	case formatMarkdown:
		t.RenderMarkdown()
	}
	return nil
}

func renderResolveReport(w io.Writer, format string, objs []*sky.CelestialObject, result resolver.BatchResult) error {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Source ID", "RA", "Dec", "Mag", "Name", "SAO", "Tier"})

	for i, obj := range result.Collect(objs) {
		sourceID := "-"
		if obj.HasSourceID() {
			sourceID = strconv.FormatInt(obj.SourceID, 10)
		}
		sao := "-"
		if obj.SAONumber != nil {
			sao = strconv.Itoa(*obj.SAONumber)
		}
		t.AppendRow(table.Row{
			i + 1,
			sourceID,
			fmt.Sprintf("%.6f", obj.Position.RA),
			fmt.Sprintf("%+.6f", obj.Position.Dec),
			fmt.Sprintf("%.2f", obj.Magnitude),
			obj.Name,
			sao,
			string(obj.Tier),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "resolved",
		fmt.Sprintf("%d/%d", result.Resolved+result.AlreadySet, result.Total), ""})
	return render(t, format)
}

func renderTierCounts(w io.Writer, format string, stats resolver.Stats) error {
	t := newTable(w)
	t.AppendHeader(table.Row{"Tier", "Objects"})
	t.AppendRows([]table.Row{
		{resolver.TierAlreadySet, stats.AlreadySet},
		{resolver.TierLocalIdentifier, stats.LocalIdentifier},
		{resolver.TierLocalPosition, stats.LocalPosition},
		{resolver.TierRemoteIdentifier, stats.RemoteIdentifier},
		{resolver.TierRemoteCone, stats.RemoteCone},
		{resolver.TierNone, stats.Unresolved},
	})
	return render(t, format)
}

func renderStoreStats(w io.Writer, format string, stats crossmatch.Stats) error {
	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Entries", "With source ID", "Distinct SAO numbers"})
	t.AppendRow(table.Row{stats.Source, stats.Entries, stats.WithIdentifier, stats.DistinctNumbers})
	return render(t, format)
}

func renderEntries(w io.Writer, format string, entries []sky.CrossMatchEntry) error {
	t := newTable(w)
	t.AppendHeader(table.Row{"SAO", "RA", "Dec", "Mag", "Spectral type", "Name"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Number,
			fmt.Sprintf("%.6f", e.Position.RA),
			fmt.Sprintf("%+.6f", e.Position.Dec),
			fmt.Sprintf("%.2f", e.Magnitude),
			e.SpectralType,
			e.Name,
		})
	}
	return render(t, format)
}
