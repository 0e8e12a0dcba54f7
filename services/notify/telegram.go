package notify

import (
	"context"
	"fmt"
	"time"

	"obswatch/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

type TelegramOptions struct {
	// defaults to the public bot api
	BaseUrl  string
	BotToken string
	ChatId   string
}

type TelegramNotifier struct {
	http   *resty.Client
	token  string
	chatId string
}

func NewTelegramNotifier(opts TelegramOptions) *TelegramNotifier {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = "https://api.telegram.org"
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 15)
	telemetry.InstrumentResty(client, "obswatch.services.notify.telegram")

	return &TelegramNotifier{
		http:   client,
		token:  opts.BotToken,
		chatId: opts.ChatId,
	}
}

type telegramResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "telegram:Send")
	defer span.End()

	var out telegramResponse
	res, err := n.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    n.chatId,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetResult(&out).
		SetError(&out).
		// the bot api always answers json, parse it even when a proxy
		// mislabels the content type
		ForceContentType("application/json").
		Post(fmt.Sprintf("/bot%s/sendMessage", n.token))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reach telegram")
		return err
	}
	if res.IsError() || !out.Ok {
		err := fmt.Errorf("telegram rejected message: %d %s", res.StatusCode(), out.Description)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
