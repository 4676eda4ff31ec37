package advisor

import (
	"context"
	"fmt"

	"service-advisor/internal/models"

	"github.com/zoobzio/clockz"
)

const staticDisclaimer = "Values are indicative and informational only. The exact interval depends on " +
	"driving style, operating conditions and service history. Confirm it in the manufacturer's manual or with a mechanic."

// olderVehicleAge is the age in years from which extra oil checks are advised.
const olderVehicleAge = 12

var staticSources = []models.AdvisorySource{
	{Title: "Rules-based data (fallback)", URL: "https://example.com/fallback-rules"},
	{Title: "Service practice, indicative values", URL: "https://example.com/service-practice"},
}

var staticBullets = map[models.ServiceArea][]string{
	models.AreaAirFilter: {
		"Air filter: usually every 20-30 thousand km or every 12-24 months.",
		"Frequent city driving or dusty conditions shorten the interval.",
	},
	models.AreaCabinFilter: {
		"Cabin filter: usually every 10-15 thousand km or once a year.",
		"Signs of wear: fogging windows, weak airflow, odours.",
	},
	models.AreaBrakeFluid: {
		"Brake fluid: most often every 24 months, regardless of mileage.",
		"Absorbed moisture reduces braking performance.",
	},
	models.AreaCoolant: {
		"Coolant: usually every 4-5 years, depending on the specification.",
		"After cooling system repairs consider an earlier change.",
	},
	models.AreaBattery: {
		"Battery: typical service life is 4-6 years.",
		"Short trips and low temperatures shorten battery life.",
	},
	models.AreaBrakes: {
		"Brakes: no fixed distance interval, wear depends on driving style.",
		"Check pads and discs every 10-15 thousand km or seasonally.",
		"City driving wears pads faster. Infrequent use encourages disc corrosion.",
	},
	models.AreaTiming: {
		"Timing: the interval depends on the drive type (belt or chain) and the engine.",
		"Belt: usually 90-180 thousand km or 5-10 years. Chain: watch for signs of wear.",
	},
	models.AreaInspection: {
		"General inspection: usually every 12 months or as required by law.",
		"It covers fluids, brakes, suspension, tyres and lighting.",
	},
}

// StaticAdvisor answers from built-in rules without any network access.
type StaticAdvisor struct {
	clock clockz.Clock
}

func NewStaticAdvisor() *StaticAdvisor {
	return &StaticAdvisor{clock: clockz.RealClock}
}

// WithClock sets the clock used to compute vehicle age.
func (s *StaticAdvisor) WithClock(clock clockz.Clock) *StaticAdvisor {
	s.clock = clock
	return s
}

func (s *StaticAdvisor) GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := query.Vehicle
	age := max(0, s.clock.Now().Year()-v.Year)

	sources := make([]models.AdvisorySource, len(staticSources))
	copy(sources, staticSources)

	return &models.AdvisoryResult{
		Summary: fmt.Sprintf("Estimated service intervals: %s %s (%d), %s, area: %s",
			v.Brand, v.Model, v.Year, v.FuelType.DisplayName(), query.Area.DisplayName()),
		KeyIntervals: staticAdvice(query.Area, v.FuelType, age),
		Sources:      sources,
		SafetyNote:   staticDisclaimer,
	}, nil
}

func staticAdvice(area models.ServiceArea, fuel models.FuelType, age int) []string {
	if area == models.AreaEngineOil {
		return oilAdvice(fuel, age)
	}

	bullets, ok := staticBullets[area]
	if !ok {
		return []string{"No data for this area."}
	}
	out := make([]string, len(bullets))
	copy(out, bullets)
	return out
}

func oilAdvice(fuel models.FuelType, age int) []string {
	if fuel == models.FuelElectric {
		return []string{"Engine oil: not applicable to electric vehicles."}
	}

	bullets := []string{
		"Engine oil: usually every 10-15 thousand km or every 12 months.",
		"Short trips and city driving call for shorter intervals.",
	}
	if age >= olderVehicleAge {
		bullets = append(bullets, "Older vehicles: check the oil level and consumption more often.")
	}
	if fuel == models.FuelDiesel {
		bullets = append(bullets, "Diesel: frequent city driving can dilute the oil with fuel.")
	}
	return bullets
}
