package obs

import (
	"context"
	"testing"

	"obswatch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const gradePage = `
<html><body>
<div class="content">
<table id="grdNotListesi" border="1">
<tr>
  <th>#</th><th>Ders Kodu</th><th>Ders Adı</th><th>Sonuç/Durumu</th>
  <th>Vize</th><th>Final</th><th>Not</th><th>Durumu</th>
</tr>
<tr>
  <td>1</td><td>BLM207</td><td>Veri Yapıları</td><td>Geçti</td>
  <td>85</td><td>90</td><td>88,5</td><td>Geçti</td>
</tr>
<tr>
  <td>2</td><td>AIT0101</td><td>Atatürk İlkeleri</td><td></td>
  <td>70</td><td></td><td></td><td></td>
</tr>
<tr>
  <td>3</td><td>MAT101</td><td>Matematik I</td><td>Geçti</td>
  <td>60</td><td>75</td><td>BA</td><td>Geçti</td>
</tr>
</table>
</div>
</body></html>`

const emptyGradePage = `
<html><body>
<table>
<tr><th>#</th><th>Ders Kodu</th><th>Ders Adı</th><th>Vize</th><th>Final</th><th>Not</th></tr>
<tr><td>1</td><td>BLM207</td><td>Veri Yapıları</td><td></td><td></td><td></td></tr>
</table>
</body></html>`

const unrecognizablePage = `
<html><body><h1>Bakım çalışması</h1><p>Sistem geçici olarak kullanım dışıdır.</p></body></html>`

func TestExtractGrades(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	snapshot, err := ExtractGrades(context.Background(), []byte(gradePage))
	require.NoError(t, err)

	blmFinal, ok := snapshot[Key{Course: "BLM207", Exam: "Not"}]
	require.True(t, ok)
	require.Equal(t, "88.5", blmFinal.Score)
	require.Equal(t, "Veri Yapıları", blmFinal.Name)
	require.True(t, blmFinal.Announced())

	blmVize, ok := snapshot[Key{Course: "BLM207", Exam: "Vize"}]
	require.True(t, ok)
	require.Equal(t, "85", blmVize.Score)

	// announced midterm, everything else still a placeholder
	aitVize, ok := snapshot[Key{Course: "AIT0101", Exam: "Vize"}]
	require.True(t, ok)
	require.Equal(t, "70", aitVize.Score)

	aitFinal, ok := snapshot[Key{Course: "AIT0101", Exam: "Final"}]
	require.True(t, ok)
	require.False(t, aitFinal.Announced())

	aitNot, ok := snapshot[Key{Course: "AIT0101", Exam: "Not"}]
	require.True(t, ok)
	require.False(t, aitNot.Announced())

	// letter grades pass through verbatim
	matNot, ok := snapshot[Key{Course: "MAT101", Exam: "Not"}]
	require.True(t, ok)
	require.Equal(t, "BA", matNot.Score)
}

func TestExtractGradesEmptyIsNotAnError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	snapshot, err := ExtractGrades(context.Background(), []byte(emptyGradePage))
	require.NoError(t, err)

	for _, record := range snapshot {
		require.False(t, record.Announced())
	}
}

func TestExtractGradesUnrecognizedPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/obs")
	defer cleanup()

	_, err := ExtractGrades(context.Background(), []byte(unrecognizablePage))
	require.ErrorIs(t, err, ErrUnrecognizedPage)
}
