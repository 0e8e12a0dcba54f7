package notify

import (
	"context"
	"fmt"
	"testing"

	"obswatch/lib/scrapers/obs"

	"github.com/stretchr/testify/require"
)

func TestFormatGradeSingle(t *testing.T) {
	msg := FormatGrades([]obs.Record{{
		Course: "BLM207",
		Name:   "Veri Yapıları",
		Exam:   "Vize",
		Score:  "85",
	}})
	require.Contains(t, msg, "Yeni Sınav Sonucu")
	require.Contains(t, msg, "BLM207")
	require.Contains(t, msg, "Veri Yapıları")
	require.Contains(t, msg, "<code>85</code>")
}

func TestFormatGradesDigest(t *testing.T) {
	msg := FormatGrades([]obs.Record{
		{Course: "BLM207", Name: "Veri Yapıları", Exam: "Vize", Score: "85"},
		{Course: "MAT101", Name: "Matematik I", Exam: "Not", Score: "BA"},
	})
	require.Contains(t, msg, "2 Yeni Sınav Sonucu")
	require.Contains(t, msg, "1. <b>BLM207</b>")
	require.Contains(t, msg, "2. <b>MAT101</b>")
}

type stubNotifier struct {
	sent int
	err  error
}

func (n *stubNotifier) Send(ctx context.Context, text string) error {
	n.sent++
	return n.err
}

func TestMultiSendsToEveryTransport(t *testing.T) {
	a := &stubNotifier{}
	b := &stubNotifier{}
	require.NoError(t, Multi{a, b}.Send(context.Background(), "hi"))
	require.Equal(t, 1, a.sent)
	require.Equal(t, 1, b.sent)
}

func TestMultiReportsPartialFailure(t *testing.T) {
	a := &stubNotifier{err: fmt.Errorf("smtp refused")}
	b := &stubNotifier{}
	err := Multi{a, b}.Send(context.Background(), "hi")
	require.Error(t, err)
	// the healthy transport still received the message
	require.Equal(t, 1, b.sent)
}
