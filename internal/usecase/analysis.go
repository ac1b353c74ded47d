package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/page-insight-service/internal/entity"
	"github.com/user/page-insight-service/internal/repository"
	"github.com/user/page-insight-service/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const classificationSystemPrompt = `You identify branding images on web pages.
Return the URL of the site's primary logo as shown in the page header or navigation. Ignore logos that appear in body content, such as partner, customer or sponsor logos.
Also return the URLs of the site's favicons.
Order each list from most to least confident. Only use URLs from the candidates provided.`

const summarySystemPrompt = `You write short, neutral summaries of web pages. Respond with plain text only.`

var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"logos": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "URLs of the primary header logo, most confident first",
		},
		"favicons": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "URLs of the site favicons, most confident first",
		},
	},
	"required":             []string{"logos", "favicons"},
	"additionalProperties": false,
}

// Analysis is the merged output of image classification and summarization.
type Analysis struct {
	Summary        string
	Classification entity.ImageClassification
}

// Analyzer issues the classification and summarization calls for a page.
type Analyzer struct {
	model            repository.LanguageModel
	summaryMaxTokens int
	logger           *zap.Logger
}

// NewAnalyzer creates an analyzer backed by model.
func NewAnalyzer(model repository.LanguageModel, summaryMaxTokens int, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		model:            model,
		summaryMaxTokens: summaryMaxTokens,
		logger:           logger,
	}
}

// Analyze runs both calls concurrently. Classification problems degrade to
// empty lists; a summarization failure fails the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, data *entity.PageData) (*Analysis, error) {
	var result Analysis

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Classification = a.classifyImages(gctx, data)
		return nil
	})
	g.Go(func() error {
		summary, err := a.summarize(gctx, data)
		if err != nil {
			return err
		}
		result.Summary = summary
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *Analyzer) classifyImages(ctx context.Context, data *entity.PageData) entity.ImageClassification {
	empty := entity.ImageClassification{Logos: []string{}, Favicons: []string{}}

	raw, err := a.model.GenerateStructured(ctx, repository.StructuredRequest{
		System:     classificationSystemPrompt,
		Prompt:     classificationPrompt(data),
		SchemaName: "image_classification",
		Schema:     classificationSchema,
	})
	if err != nil {
		metrics.ClassificationFallbacksTotal.Inc()
		a.logger.Warn("image classification failed, using empty result", zap.String("url", data.URL), zap.Error(err))
		return empty
	}
	if strings.TrimSpace(raw) == "" {
		metrics.ClassificationFallbacksTotal.Inc()
		a.logger.Warn("image classification returned no structured result", zap.String("url", data.URL))
		return empty
	}

	var classification entity.ImageClassification
	if err := json.Unmarshal([]byte(raw), &classification); err != nil {
		metrics.ClassificationFallbacksTotal.Inc()
		a.logger.Warn("image classification result is not valid JSON", zap.String("url", data.URL), zap.Error(err))
		return empty
	}
	if classification.Logos == nil {
		classification.Logos = []string{}
	}
	if classification.Favicons == nil {
		classification.Favicons = []string{}
	}
	return classification
}

func (a *Analyzer) summarize(ctx context.Context, data *entity.PageData) (string, error) {
	summary, err := a.model.GenerateText(ctx, repository.TextRequest{
		System:    summarySystemPrompt,
		Prompt:    summaryPrompt(data, a.summaryMaxTokens),
		MaxTokens: a.summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func classificationPrompt(data *entity.PageData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s\n", data.URL)
	fmt.Fprintf(&b, "Title: %s\n\n", data.Title)

	if len(data.Images) == 0 {
		b.WriteString("The page has no image candidates.\n")
		return b.String()
	}

	b.WriteString("Image candidates:\n")
	for i, img := range data.Images {
		fmt.Fprintf(&b, "\nImage %d:\n", i+1)
		fmt.Fprintf(&b, "URL: %s\n", img.URL)
		fmt.Fprintf(&b, "Type: %s\n", img.Type)
		fmt.Fprintf(&b, "Dimensions: %s x %s\n", formatDimension(img.Width), formatDimension(img.Height))
		writeContextLine(&b, "Alt", img.Context.Alt)
		writeContextLine(&b, "Class", img.Context.ClassName)
		writeContextLine(&b, "ID", img.Context.ID)
		writeContextLine(&b, "Parent class", img.Context.ParentClasses)
		writeContextLine(&b, "Nearby text", img.Context.NearbyText)
		writeContextLine(&b, "Rel", img.Context.Rel)
		writeContextLine(&b, "MIME type", img.Context.MimeType)
	}
	return b.String()
}

func summaryPrompt(data *entity.PageData, maxTokens int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize this web page in at most %d tokens.\n\n", maxTokens)
	fmt.Fprintf(&b, "Title: %s\n", data.Title)
	fmt.Fprintf(&b, "Description: %s\n\n", data.MetaDescription)
	fmt.Fprintf(&b, "Content:\n%s\n", data.Content)
	return b.String()
}

func formatDimension(v *int) string {
	if v == nil {
		return "unknown"
	}
	return strconv.Itoa(*v)
}

func writeContextLine(b *strings.Builder, label string, value *string) {
	if value == nil || *value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, *value)
}
