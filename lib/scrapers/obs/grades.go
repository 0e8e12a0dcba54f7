package obs

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"obswatch/lib/htmlutil"
	"obswatch/lib/textutil"
	"obswatch/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrUnrecognizedPage means the grade page no longer contains a
// recognizable grade table. unlike an empty snapshot this is loud on
// purpose: it usually means the portal layout changed and the scraper
// needs maintenance.
var ErrUnrecognizedPage = fmt.Errorf("grade page layout unrecognized")

// Key uniquely identifies a grade within a snapshot.
type Key struct {
	Course string
	Exam   string
}

// Record is one observed grade cell. Score is empty while the exam
// result has not been announced yet.
type Record struct {
	Course string
	Name   string
	Exam   string
	Score  string
	SeenAt time.Time
}

func (r Record) Key() Key {
	return Key{Course: r.Course, Exam: r.Exam}
}

func (r Record) Announced() bool {
	return r.Score != ""
}

// Snapshot is the complete set of grade records observed in one check
// cycle, keyed by (course, exam).
type Snapshot map[Key]Record

var letterGrades = map[string]bool{
	"AA": true, "BA": true, "BB": true, "CB": true, "CC": true,
	"DC": true, "DD": true, "FF": true, "FD": true,
	"NA": true, "VZ": true, "MU": true,
}

// accepts numeric scores with either decimal separator, clamped to the
// portal's 0..100 range, or one of the letter grades
func normalizeScore(text string) (string, bool) {
	text = strings.Trim(text, " \t\n")
	if text == "" {
		return "", true
	}
	if letterGrades[strings.ToUpper(text)] {
		return strings.ToUpper(text), true
	}
	num, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil || num < 0 || num > 100 {
		return "", false
	}
	return strconv.FormatFloat(num, 'f', -1, 64), true
}

// course codes look like "BLM207" or "AIT0101": a short run of letters
// followed by digits
func looksLikeCourseCode(text string) bool {
	if len(text) < 5 || len(text) > 10 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range text {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'):
			hasLetter = true
		case c == ' ':
			return false
		}
	}
	return hasLetter && hasDigit
}

type gradeColumns struct {
	code  int
	name  int
	grade int
	exams map[int]string
}

func resolveColumns(header *goquery.Selection) gradeColumns {
	cols := gradeColumns{code: -1, name: -1, grade: -1, exams: map[int]string{}}

	header.Children().Each(func(i int, cell *goquery.Selection) {
		text := htmlutil.CleanText(cell.Text())
		normalized := textutil.NormalizeName(text)
		switch {
		case strings.Contains(normalized, "derskodu"):
			cols.code = i
		case strings.Contains(normalized, "dersadı"):
			cols.name = i
		case normalized == "not" || strings.Contains(normalized, "harfnotu"):
			cols.grade = i
		case textutil.MatchName(text, []string{"vize", "final", "sınav"}):
			cols.exams[i] = text
		}
	})

	return cols
}

// ExtractGrades parses the authenticated grade-list page into a
// Snapshot. unannounced exams yield placeholder records (empty Score)
// so the diff can tell a brand-new course apart from a course whose
// grade just landed.
func ExtractGrades(ctx context.Context, page []byte) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "ExtractGrades")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(page))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	table := findGradeTable(doc)
	if table == nil {
		span.SetStatus(codes.Error, ErrUnrecognizedPage.Error())
		return nil, ErrUnrecognizedPage
	}

	rows := table.Find("tr")
	cols := resolveColumns(rows.First())

	snapshot := Snapshot{}
	seenAt := timezone.Now()

	rows.Each(func(rowIdx int, row *goquery.Selection) {
		if rowIdx == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		texts := make([]string, cells.Length())
		cells.Each(func(i int, cell *goquery.Selection) {
			texts[i] = htmlutil.CleanText(cell.Text())
		})

		code := cellAt(texts, cols.code)
		if code == "" {
			// header analysis can miss on older layouts, fall back to
			// sniffing the first few cells for a course code
			for i, text := range texts[:min(4, len(texts))] {
				if looksLikeCourseCode(text) {
					code = text
					if cols.name < 0 && i+1 < len(texts) {
						cols.name = i + 1
					}
					break
				}
			}
		}
		if code == "" {
			return
		}
		name := cellAt(texts, cols.name)

		emit := func(exam, raw string) {
			score, ok := normalizeScore(raw)
			if !ok {
				return
			}
			record := Record{
				Course: code,
				Name:   name,
				Exam:   exam,
				Score:  score,
				SeenAt: seenAt,
			}
			snapshot[record.Key()] = record
		}

		for i, exam := range cols.exams {
			emit(exam, cellAt(texts, i))
		}
		if cols.grade >= 0 {
			emit("Not", cellAt(texts, cols.grade))
		} else {
			// search from the right edge where the grade column sits on
			// every layout seen so far
			for i := len(texts) - 1; i > 2; i-- {
				score, ok := normalizeScore(texts[i])
				if ok && score != "" {
					emit("Not", texts[i])
					break
				}
			}
		}
	})

	span.SetAttributes(attribute.Int("records", len(snapshot)))
	return snapshot, nil
}

func cellAt(texts []string, idx int) string {
	if idx < 0 || idx >= len(texts) {
		return ""
	}
	return texts[idx]
}

func findGradeTable(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, candidate *goquery.Selection) bool {
		header := textutil.NormalizeName(candidate.Find("tr").First().Text())
		if !strings.Contains(header, "ders") {
			return true
		}
		if candidate.Find("tr").Length() < 2 {
			return true
		}
		table = candidate
		return false
	})
	return table
}
