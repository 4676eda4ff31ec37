package main

import (
	"bytes"
	"testing"
	"time"

	"service-advisor/internal/app"
	"service-advisor/internal/models"
	"service-advisor/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestRenderIntervals(t *testing.T) {
	var buf bytes.Buffer
	renderIntervals(&buf, services.DefaultIntervals())

	out := buf.String()
	assert.Contains(t, out, "Engine oil")
	assert.Contains(t, out, "every 15000 km (warn 2000 km before)")
	assert.Contains(t, out, "every 24 months (warn 3 months before)")
}

func TestRenderAnalysis(t *testing.T) {
	analysis := &models.VehicleAnalysis{
		VehicleID:         1,
		Title:             "VW Golf (2012)",
		CurrentOdometerKm: 180000,
		EvaluatedAt:       time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Items: []models.ServiceRecommendation{
			services.BuildRecommendation(models.AreaEngineOil, models.StatusUrgent),
			services.BuildRecommendation(models.AreaBattery, models.StatusOk),
		},
	}

	var buf bytes.Buffer
	renderAnalysis(&buf, analysis)

	out := buf.String()
	assert.Contains(t, out, "VW Golf (2012), odometer 180000 km, evaluated 2025-05-01")
	assert.Contains(t, out, "Do now:")
	assert.NotContains(t, out, "Check soon:")
	assert.Contains(t, out, "urgent")
}

func TestRenderAdvice(t *testing.T) {
	var buf bytes.Buffer
	renderAdviceList(&buf, []services.AreaAdvice{{
		Area: models.AreaCoolant,
		Result: &models.AdvisoryResult{
			Summary:      "Coolant",
			KeyIntervals: []string{"• Every 5 years"},
			Sources:      []models.AdvisorySource{{Title: "Manual", URL: "https://example.com"}},
			SafetyNote:   "Indicative information only.",
		},
	}})

	out := buf.String()
	assert.Contains(t, out, "[Coolant] Coolant")
	assert.Contains(t, out, "• Every 5 years")
	assert.Contains(t, out, "https://example.com")
	assert.Contains(t, out, "Indicative information only.")
}

func TestRenderVehiclesAndHistory(t *testing.T) {
	odometer := 98000
	performed := time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	renderVehicles(&buf, []*models.Vehicle{
		{ID: 4, Brand: "Skoda", Model: "Fabia", Year: 2015, FuelType: models.FuelPetrol, CurrentOdometerKm: &odometer},
		{ID: 5, Brand: "Nissan", Model: "Leaf", Year: 2020, FuelType: models.FuelElectric},
	})
	out := buf.String()
	assert.Contains(t, out, "Skoda Fabia (2015)")
	assert.Contains(t, out, "98000 km")
	assert.Contains(t, out, "Nissan Leaf (2020)")

	buf.Reset()
	renderHistory(&buf, []*models.ServiceRecord{
		{VehicleID: 4, Area: models.AreaEngineOil, OdometerKm: &odometer, PerformedAt: &performed, Notes: "5W-30"},
		{VehicleID: 4, Area: models.AreaBattery},
	})
	out = buf.String()
	assert.Contains(t, out, "2024-09-12")
	assert.Contains(t, out, "Engine oil")
	assert.Contains(t, out, "5W-30")
	assert.Contains(t, out, "Battery")
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, []app.ComponentStatus{
		{Name: "mongodb", Healthy: true, Latency: 3 * time.Millisecond},
		{Name: "redis", Healthy: false, Error: "connection refused"},
	})

	out := buf.String()
	assert.Contains(t, out, "mongodb")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "false")
}
