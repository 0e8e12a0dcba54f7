// Package notify delivers grade notifications over Telegram or SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"obswatch/lib/scrapers/obs"
	"obswatch/lib/telemetry"
)

var tracer = telemetry.Tracer("obswatch.services.notify")

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Multi fans a message out to every configured transport. a message
// counts as delivered only when every transport accepted it.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var errlist []error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

func FormatGrade(record obs.Record) string {
	var msg strings.Builder
	msg.WriteString("🎓 <b>Yeni Sınav Sonucu!</b>\n\n")
	msg.WriteString(fmt.Sprintf("📚 <b>Ders:</b> %s\n", record.Course))
	if record.Name != "" {
		msg.WriteString(fmt.Sprintf("📖 <b>Ders Adı:</b> %s\n", record.Name))
	}
	msg.WriteString(fmt.Sprintf("📝 <b>Sınav:</b> %s\n", record.Exam))
	msg.WriteString(fmt.Sprintf("📊 <b>Not:</b> <code>%s</code>\n", record.Score))
	msg.WriteString("\n✨ Tebrikler! Başarılar dilerim.")
	return msg.String()
}

// several grades landing in one cycle get a single digest message
// instead of a burst
func FormatGrades(records []obs.Record) string {
	if len(records) == 1 {
		return FormatGrade(records[0])
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("🎓 <b>%d Yeni Sınav Sonucu!</b>\n\n", len(records)))
	for i, record := range records {
		name := record.Name
		if name == "" {
			name = record.Exam
		}
		msg.WriteString(fmt.Sprintf(
			"%d. <b>%s</b> - %s (%s): <code>%s</code>\n",
			i+1, record.Course, name, record.Exam, record.Score,
		))
	}
	msg.WriteString("\n✨ Tebrikler! Başarılar dilerim.")
	return msg.String()
}

func FormatStartup(intervalMinutes int) string {
	return fmt.Sprintf(
		"🤖 <b>OBS Bildirim Botu Aktif!</b>\n\n⏰ Kontrol sıklığı: %d dakika\n📝 Yeni sonuçlar açıklandığında bildirim alacaksınız.",
		intervalMinutes,
	)
}

func FormatError(err error) string {
	return fmt.Sprintf("⚠️ <b>OBS Bot Hatası</b>\n\n%s", err.Error())
}
