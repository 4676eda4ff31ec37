package services

import "service-advisor/internal/models"

type recommendationTemplate struct {
	title         string
	descriptions  map[models.ServiceStatus]string
	nextAction    string
	deferredCheck string
}

var recommendationTemplates = map[models.ServiceArea]recommendationTemplate{
	models.AreaEngineOil: {
		title: "Engine oil",
		descriptions: map[models.ServiceStatus]string{
			models.StatusUnknown:     "No oil change on record. Verify it, or change the oil if you are unsure.",
			models.StatusOk:          "The oil looks to be within a safe interval.",
			models.StatusApproaching: "An oil change is coming up. Plan a service visit.",
			models.StatusUrgent:      "An oil change is overdue. Driving on old oil accelerates engine wear.",
		},
		nextAction:    "Add the odometer reading and date of the last oil change if you know them.",
		deferredCheck: "If you do not remember, change the oil and filter at the next service and log it.",
	},
	models.AreaBrakeFluid: {
		title: "Brake fluid",
		descriptions: map[models.ServiceStatus]string{
			models.StatusUnknown:     "No brake fluid change on record.",
			models.StatusOk:          "The brake fluid looks to be within its interval.",
			models.StatusApproaching: "A brake fluid change is coming up.",
			models.StatusUrgent:      "The brake fluid is due for replacement. Old fluid absorbs water and braking suffers.",
		},
		nextAction:    "Add the date of the last brake fluid change if you have it.",
		deferredCheck: "If you cannot find it, have the fluid tested for water content at the next service.",
	},
}

var defaultTemplate = recommendationTemplate{
	descriptions: map[models.ServiceStatus]string{
		models.StatusUnknown:     "Missing data to assess this area.",
		models.StatusOk:          "Everything looks fine.",
		models.StatusApproaching: "Service is coming due.",
		models.StatusUrgent:      "Service is due now.",
	},
	nextAction:    "Add the last service for this area to improve the assessment.",
	deferredCheck: "Check the owner's manual for the recommended interval.",
}

// BuildRecommendation turns an (area, status) pair into user-facing text.
// The output depends only on its inputs.
func BuildRecommendation(area models.ServiceArea, status models.ServiceStatus) models.ServiceRecommendation {
	tmpl, ok := recommendationTemplates[area]
	if !ok {
		tmpl = defaultTemplate
	}

	title := tmpl.title
	if title == "" {
		title = area.DisplayName()
	}

	description, ok := tmpl.descriptions[status]
	if !ok {
		description = tmpl.descriptions[models.StatusUrgent]
	}

	return models.ServiceRecommendation{
		Area:          area,
		Status:        status,
		Title:         title,
		Description:   description,
		NextAction:    tmpl.nextAction,
		DeferredCheck: tmpl.deferredCheck,
	}
}
