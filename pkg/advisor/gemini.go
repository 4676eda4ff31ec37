package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"service-advisor/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.5-flash"

	geminiProvider  = "gemini"
	maxResponseSize = 1 << 20
	duringPrefix    = "While you're at it"
)

type GeminiConfig struct {
	APIKey  string        `json:"-"`
	Model   string        `json:"model"`
	BaseURL string        `json:"baseUrl"`
	Timeout time.Duration `json:"timeout"`
}

func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model:   DefaultGeminiModel,
		BaseURL: DefaultGeminiBaseURL,
		Timeout: 30 * time.Second,
	}
}

// GeminiAdvisor asks the Gemini generateContent API for advice.
//
// HTTP 429 is reported as *RateLimitError. Any other HTTP failure or an
// unreadable answer becomes a degraded result. Transport failures are
// returned as ErrProviderUnavailable.
type GeminiAdvisor struct {
	cfg    GeminiConfig
	client *http.Client
	logger *zap.Logger
}

func NewGeminiAdvisor(cfg GeminiConfig, logger *zap.Logger) *GeminiAdvisor {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiAdvisor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("gemini"),
	}
}

// WithHTTPClient replaces the HTTP client.
func (g *GeminiAdvisor) WithHTTPClient(client *http.Client) *GeminiAdvisor {
	g.client = client
	return g
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// adviceDocument is the JSON shape the prompt asks the model to return.
type adviceDocument struct {
	Title      string                  `json:"title"`
	Intervals  []string                `json:"intervals"`
	Notes      []string                `json:"notes"`
	During     string                  `json:"during"`
	Disclaimer string                  `json:"disclaimer"`
	Sources    []models.AdvisorySource `json:"sources"`
}

func (g *GeminiAdvisor) GetAdvice(ctx context.Context, query models.AdvisoryQuery) (*models.AdvisoryResult, error) {
	prompt := buildPrompt(query.Vehicle, query.Area)

	g.logger.Debug("sending prompt",
		zap.Int64("vehicleId", query.VehicleID),
		zap.String("area", string(query.Area)),
		zap.String("prompt", prompt),
	)

	var body geminiRequest
	body.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	body.GenerationConfig.ResponseMimeType = "application/json"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(g.cfg.BaseURL, "/"), url.PathEscape(normalizeModel(g.cfg.Model)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: reading response: %w", ErrProviderUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Provider:   geminiProvider,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warn("gemini request failed",
			zap.Int("status", resp.StatusCode),
			zap.Int64("vehicleId", query.VehicleID),
			zap.String("area", string(query.Area)),
		)
		return DegradedResult(fmt.Sprintf("the provider answered HTTP %d.", resp.StatusCode)), nil
	}

	result, err := parseGeminiResponse(raw)
	if err != nil {
		g.logger.Warn("gemini response not understood", zap.Error(err))
		return DegradedResult("the answer could not be interpreted."), nil
	}

	return result, nil
}

func parseGeminiResponse(raw []byte) (*models.AdvisoryResult, error) {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	text := stripFences(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, fmt.Errorf("empty candidate text")
	}

	var doc adviceDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("decode advice: %w", err)
	}

	bullets := make([]string, 0, len(doc.Intervals)+len(doc.Notes)+1)
	for _, item := range append(doc.Intervals, doc.Notes...) {
		item = stripMarkdown(item)
		if item == "" {
			continue
		}
		if !strings.HasPrefix(item, "•") {
			item = "• " + item
		}
		bullets = append(bullets, item)
	}

	if during := stripMarkdown(doc.During); during != "" {
		if !strings.HasPrefix(strings.ToLower(during), strings.ToLower(duringPrefix)) {
			during = duringPrefix + ": " + during
		}
		bullets = append(bullets, during)
	}

	sources := make([]models.AdvisorySource, 0, len(doc.Sources))
	for _, src := range doc.Sources {
		if !isHTTPURL(src.URL) {
			continue
		}
		title := stripMarkdown(src.Title)
		if title == "" {
			title = src.URL
		}
		sources = append(sources, models.AdvisorySource{Title: title, URL: src.URL})
	}

	title := stripMarkdown(doc.Title)
	if title == "" {
		title = aiTitle
	}
	disclaimer := stripMarkdown(doc.Disclaimer)
	if disclaimer == "" {
		disclaimer = "Indicative information only."
	}

	return &models.AdvisoryResult{
		Summary:      title,
		KeyIntervals: bullets,
		Sources:      sources,
		SafetyNote:   disclaimer,
	}, nil
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if len(model) >= len("models/") && strings.EqualFold(model[:len("models/")], "models/") {
		model = model[len("models/"):]
	}
	return model
}

func stripFences(text string) string {
	text = strings.Trim(strings.TrimSpace(text), "`")
	text = strings.TrimSpace(text)
	if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = strings.TrimSpace(text[4:])
	}
	return text
}

func stripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

type promptTopic struct {
	title        string
	instructions string
}

var promptTopics = map[models.ServiceArea]promptTopic{
	models.AreaEngineOil: {
		"Engine oil",
		"Give typical engine oil and oil filter change intervals as a km range AND a time (months or years). " +
			"Add one point on factors that shorten the interval (city driving, short trips, DPF regeneration). " +
			"Do not write about tyres or general inspections.",
	},
	models.AreaBrakes: {
		"Brakes",
		"Give typical ranges for front pads, rear pads, front discs and rear discs. " +
			"Add one point on symptoms of brake wear and one on factors that accelerate it. " +
			"Do not write about engine oil or general inspections.",
	},
	models.AreaBrakeFluid: {
		"Brake fluid",
		"Give the typical brake fluid change interval (time, for example every 2 years) and briefly why. " +
			"Do not write about pads, discs or engine oil.",
	},
	models.AreaAirFilter: {
		"Air filter",
		"Give the typical air filter change interval (km and/or time) and when to shorten it (dust, city driving).",
	},
	models.AreaCabinFilter: {
		"Cabin filter",
		"Give the typical cabin filter change interval (km and/or time) and the symptoms of a clogged filter.",
	},
	models.AreaCoolant: {
		"Coolant",
		"Give the typical coolant change interval (years) and when to change it earlier (repairs, unknown fluid).",
	},
	models.AreaBattery: {
		"Battery",
		"Give typical battery life (years), two or three symptoms of wear and factors that shorten it.",
	},
	models.AreaTiming: {
		"Timing",
		"Give typical intervals for a timing belt (km and years) and for a chain (usually no fixed interval, list wear symptoms).",
	},
	models.AreaInspection: {
		"General inspection",
		"Give the typical general inspection interval (time and/or km) and up to four example items to check. " +
			"Do not write a pre-drive checklist.",
	},
}

func buildPrompt(v models.VehicleContext, area models.ServiceArea) string {
	topic, ok := promptTopics[area]
	if !ok {
		topic = promptTopic{
			title:        area.DisplayName(),
			instructions: "Give typical intervals and short tips for this area only.",
		}
	}

	var b strings.Builder
	b.WriteString("Return ONLY valid JSON in the format:\n")
	b.WriteString(`{"title":"...","intervals":["..."],"notes":["..."],"during":"While you're at it ...","disclaimer":"...","sources":[{"title":"...","url":"https://..."}]}`)
	b.WriteString("\nNo markdown, no extra text.\n")
	fmt.Fprintf(&b, "Vehicle: %s %s (%d), fuel: %s.\n", v.Brand, v.Model, v.Year, v.FuelType.DisplayName())
	fmt.Fprintf(&b, "Topic: %s.\n", topic.title)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- %s\n", topic.instructions)
	b.WriteString("- intervals: 2-3 points about intervals only (km and time).\n")
	b.WriteString("- notes: 2-3 points (symptoms, shortening factors or remarks for the topic).\n")
	b.WriteString("- during: exactly one sentence starting with \"While you're at it\" naming 2-4 things to check.\n")
	b.WriteString("- Every item in intervals and notes is PLAIN TEXT, without bullets, dashes, asterisks or numbering.\n")
	b.WriteString("- sources: optional, only real http(s) links you are confident exist.\n")
	b.WriteString("- disclaimer: one calm, informative sentence.\n")
	return b.String()
}
