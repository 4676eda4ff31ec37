package main

import (
	"fmt"
	"io"
	"time"

	"service-advisor/internal/app"
	"service-advisor/internal/models"
	"service-advisor/internal/services"

	"github.com/gosuri/uitable"
)

const maxColWidth = 70

func newTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.Wrap = true
	return table
}

func renderAnalysis(w io.Writer, analysis *models.VehicleAnalysis) {
	fmt.Fprintf(w, "%s, odometer %d km, evaluated %s\n\n",
		analysis.Title, analysis.CurrentOdometerKm, analysis.EvaluatedAt.Format("2006-01-02"))

	table := newTable()
	table.AddRow("AREA", "STATUS", "ASSESSMENT")
	for _, item := range analysis.Items {
		table.AddRow(item.Title, item.Status, item.Description)
	}
	fmt.Fprintln(w, table)

	renderGroup(w, "Do now", analysis.DoNow())
	renderGroup(w, "Check soon", analysis.CheckSoon())
}

func renderGroup(w io.Writer, heading string, items []models.ServiceRecommendation) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", heading)
	table := newTable()
	for _, item := range items {
		table.AddRow("", item.Title, item.NextAction)
	}
	fmt.Fprintln(w, table)
}

func renderAdviceList(w io.Writer, advice []services.AreaAdvice) {
	for i, entry := range advice {
		if i > 0 {
			fmt.Fprintln(w)
		}
		renderAdvice(w, entry.Area, entry.Result)
	}
}

func renderAdvice(w io.Writer, area models.ServiceArea, result *models.AdvisoryResult) {
	fmt.Fprintf(w, "[%s] %s\n", area.DisplayName(), result.Summary)
	for _, line := range result.KeyIntervals {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if len(result.Sources) > 0 {
		table := newTable()
		for _, src := range result.Sources {
			table.AddRow("  source:", src.Title, src.URL)
		}
		fmt.Fprintln(w, table)
	}
	if result.SafetyNote != "" {
		fmt.Fprintf(w, "  %s\n", result.SafetyNote)
	}
}

func renderIntervals(w io.Writer, intervals []models.ServiceInterval) {
	table := newTable()
	table.AddRow("AREA", "DISTANCE", "TIME")
	for _, interval := range intervals {
		table.AddRow(interval.Area.DisplayName(), distanceCadence(interval.Distance), timeCadence(interval.Time))
	}
	fmt.Fprintln(w, table)
}

func distanceCadence(p *models.DistancePeriod) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("every %d km (warn %d km before)", p.EveryKm, p.ApproachingKm)
}

func timeCadence(p *models.TimePeriod) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("every %d months (warn %d months before)", p.EveryMonths, p.ApproachingMonths)
}

func renderStatus(w io.Writer, report []app.ComponentStatus) {
	table := newTable()
	table.AddRow("COMPONENT", "HEALTHY", "LATENCY", "ERROR")
	for _, component := range report {
		table.AddRow(component.Name, component.Healthy, component.Latency.Round(time.Microsecond), component.Error)
	}
	fmt.Fprintln(w, table)
}

func renderVehicles(w io.Writer, vehicles []*models.Vehicle) {
	table := newTable()
	table.AddRow("ID", "VEHICLE", "FUEL", "ODOMETER")
	for _, v := range vehicles {
		odometer := "-"
		if v.CurrentOdometerKm != nil {
			odometer = fmt.Sprintf("%d km", *v.CurrentOdometerKm)
		}
		table.AddRow(v.ID, v.DisplayName(), v.FuelType.DisplayName(), odometer)
	}
	fmt.Fprintln(w, table)
}

func renderHistory(w io.Writer, records []*models.ServiceRecord) {
	table := newTable()
	table.AddRow("DATE", "AREA", "ODOMETER", "NOTES")
	for _, r := range records {
		date, odometer := "-", "-"
		if r.PerformedAt != nil {
			date = r.PerformedAt.Format("2006-01-02")
		}
		if r.OdometerKm != nil {
			odometer = fmt.Sprintf("%d km", *r.OdometerKm)
		}
		table.AddRow(date, r.Area.DisplayName(), odometer, r.Notes)
	}
	fmt.Fprintln(w, table)
}
