package captcha

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"obswatch/lib/restyutil"
	"obswatch/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("obswatch.lib.captcha")
var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

const answerPrompt = `This image shows an arithmetic captcha.
Solve the expression in the image and reply with ONLY the resulting number.
Example: if the image shows "25+17=?", reply with "42".
Do not write anything else, just the number.`

// DefaultModels is ordered by preference; later entries are the
// lighter-weight fallbacks tried when a model is unavailable or
// returns an unparseable answer.
var DefaultModels = []string{
	"gemini-2.0-flash",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
}

type GeminiOptions struct {
	// defaults to the public generativelanguage endpoint
	BaseUrl string
	ApiKey  string
	// defaults to DefaultModels
	Models []string
}

type GeminiSolver struct {
	http   *resty.Client
	models []string
}

func NewGeminiSolver(opts GeminiOptions) *GeminiSolver {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = "https://generativelanguage.googleapis.com"
	}
	models := opts.Models
	if len(models) == 0 {
		models = DefaultModels
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 30)
	client.SetQueryParam("key", opts.ApiKey)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second * 5)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return false
		}
		return res.StatusCode() == http.StatusTooManyRequests ||
			res.StatusCode() >= http.StatusInternalServerError
	})

	telemetry.InstrumentResty(client, "obswatch.lib.captcha.http")
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &GeminiSolver{
		http:   client,
		models: models,
	}
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (s *GeminiSolver) Solve(ctx context.Context, image []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "GeminiSolver.Solve")
	defer span.End()

	body := generateContentRequest{
		Contents: []content{{
			Parts: []contentPart{
				{Text: answerPrompt},
				{InlineData: &inlineData{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	for _, model := range s.models {
		var out generateContentResponse
		res, err := s.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post(fmt.Sprintf("/v1beta/models/%s:generateContent", model))
		if err != nil {
			span.RecordError(err)
			slog.WarnContext(ctx, "captcha inference request failed", "model", model, "err", err)
			continue
		}
		if res.StatusCode() == http.StatusNotFound {
			slog.DebugContext(ctx, "captcha model unavailable", "model", model)
			continue
		}
		if res.IsError() {
			slog.WarnContext(
				ctx, "captcha inference returned error",
				"model", model,
				"status", res.StatusCode(),
			)
			continue
		}

		text := candidateText(out)
		answer, ok := ParseAnswer(text)
		if !ok {
			slog.WarnContext(
				ctx, "captcha inference returned unparseable answer",
				"model", model,
				"text", text,
			)
			continue
		}

		span.SetAttributes(attribute.String("model", model))
		slog.DebugContext(ctx, "captcha solved", "model", model, "answer", answer)
		return answer, nil
	}

	span.SetStatus(codes.Error, "all models exhausted")
	return "", ErrCaptchaUnsolved
}

func candidateText(res generateContentResponse) string {
	var out strings.Builder
	for _, candidate := range res.Candidates {
		for _, part := range candidate.Content.Parts {
			out.WriteString(part.Text)
		}
		break
	}
	return out.String()
}
