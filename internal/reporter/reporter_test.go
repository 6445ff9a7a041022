package reporter

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fixture_replay/internal/model"
)

func sampleResults() []model.Result {
	return []model.Result{
		{
			Fixture:      "testing/auth/login.json",
			Method:       "POST",
			URL:          "http://localhost:3000/api/auth/login",
			Status:       200,
			RequestBody:  `{"email":"admin@example.com"}`,
			ResponseBody: map[string]any{"token": "abc"},
			Duration:     1500 * time.Microsecond,
			RequestID:    "req-1",
		},
		{
			Fixture:      "testing/auth/login.json",
			Method:       "GET",
			URL:          "http://localhost:3000/api/auth/login/me?a=1&b=2",
			Status:       401,
			ResponseBody: map[string]any{"error": "unauthorized"},
			Duration:     2 * time.Millisecond,
			RequestID:    "req-2",
		},
	}
}

func TestConsole_PrintFixture(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	fx := &model.Fixture{
		URL:      "http://localhost:3000/api",
		Request:  []model.RequestSpec{{Method: "GET", URL: "/schools"}},
		Response: []any{},
	}
	require.NoError(t, c.PrintFixture("testing/school/list.json", fx))

	assert.Equal(t,
		`testing/school/list.json: {"url":"http://localhost:3000/api","request":[{"method":"GET","url":"/schools"}],"response":[]}`+"\n",
		buf.String(),
	)
}

func TestConsole_PrintFixtureRawDocument(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	fx := &model.Fixture{
		URL:      "http://localhost:3000/api",
		Request:  []model.RequestSpec{},
		Response: []any{},
		Raw:      map[string]any{"url": "http://localhost:3000/api", "extra": json.Number("1")},
	}
	require.NoError(t, c.PrintFixture("testing/health/health.json", fx))

	assert.Equal(t,
		`testing/health/health.json: {"extra":1,"url":"http://localhost:3000/api"}`+"\n",
		buf.String(),
	)
}

func TestConsole_PrintStatusAndBody(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	results := sampleResults()
	require.NoError(t, c.PrintStatus(results[1]))
	require.NoError(t, c.PrintBody(results[1]))

	assert.Equal(t,
		"Response for GET http://localhost:3000/api/auth/login/me?a=1&b=2: 401\n"+`{"error":"unauthorized"}`+"\n",
		buf.String(),
	)
}

func TestConsole_PrintBodyKeepsNumbers(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.PrintBody(model.Result{
		ResponseBody: []any{json.Number("9007199254740993"), nil},
	}))

	assert.Equal(t, "[9007199254740993,null]\n", buf.String())
}

func fixedClock(ts string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse(timeFormat, ts)
		return t
	}
}

func TestTranscript_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.xlsx")
	tr := NewTranscript(path, "replay")
	tr.now = fixedClock("2026-10-18_09-30-00")

	sheet, err := tr.Write(sampleResults())
	require.NoError(t, err)
	assert.Equal(t, "replay_2026-10-18_09-30-00", sheet)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheet}, f.GetSheetList())

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, excelHeaders, rows[0])
	assert.Equal(t, []string{
		"testing/auth/login.json",
		"POST",
		"http://localhost:3000/api/auth/login",
		"200",
		`{"email":"admin@example.com"}`,
		`{"token":"abc"}`,
		"1.5",
		"req-1",
	}, rows[1])
	assert.Equal(t, "http://localhost:3000/api/auth/login/me?a=1&b=2", rows[2][2])
	assert.Equal(t, "", rows[2][4])
}

func TestTranscript_AppendsSheetToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.xlsx")

	first := NewTranscript(path, "replay")
	first.now = fixedClock("2026-10-18_09-30-00")
	_, err := first.Write(sampleResults())
	require.NoError(t, err)

	second := NewTranscript(path, "replay")
	second.now = fixedClock("2026-10-18_10-00-00")
	sheet, err := second.Write(sampleResults()[:1])
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"replay_2026-10-18_09-30-00", "replay_2026-10-18_10-00-00"}, f.GetSheetList())
	assert.Equal(t, 1, f.GetActiveSheetIndex())

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestTranscript_SameSecondGetsNewSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.xlsx")
	clock := fixedClock("2026-10-18_09-30-00")

	first := NewTranscript(path, "replay")
	first.now = clock
	firstSheet, err := first.Write(sampleResults())
	require.NoError(t, err)

	second := NewTranscript(path, "replay")
	second.now = clock
	secondSheet, err := second.Write(sampleResults()[:1])
	require.NoError(t, err)

	assert.Equal(t, "replay_2026-10-18_09-30-00", firstSheet)
	assert.Equal(t, "replay_2026-10-18_09-30-00_2", secondSheet)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{firstSheet, secondSheet}, f.GetSheetList())

	rows, err := f.GetRows(firstSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = f.GetRows(secondSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "req-1", rows[1][7])
}

func TestTranscript_EmptyResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.xlsx")
	tr := NewTranscript(path, "replay")

	sheet, err := tr.Write(nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, excelHeaders, rows[0])
}
