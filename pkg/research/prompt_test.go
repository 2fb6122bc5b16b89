package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/search-helper/pkg/clients"
	"github.com/mikeboe/search-helper/pkg/dialogue"
	"github.com/mikeboe/search-helper/pkg/research/tools"
)

func usedCars(t *testing.T) *dialogue.Variant {
	t.Helper()
	catalog, err := dialogue.LoadBuiltin()
	require.NoError(t, err)
	v, err := catalog.Get("used_cars")
	require.NoError(t, err)
	return v
}

func answer(t *testing.T, v *dialogue.Variant, answers ...dialogue.Answer) *dialogue.Record {
	t.Helper()
	s := dialogue.NewSession(v)
	for _, a := range answers {
		_, err := s.Advance(a)
		require.NoError(t, err)
	}
	require.Equal(t, dialogue.PhaseGenerating, s.Phase())
	return s.Record()
}

func carAnswers(salvage string) []dialogue.Answer {
	return []dialogue.Answer{
		dialogue.TextAnswer("Toyota Corolla"),
		dialogue.TextAnswer("2015-2020"),
		dialogue.TextAnswer("$15,000"),
		dialogue.ListAnswer("California", "Texas"),
		dialogue.TextAnswer("bajo kilometraje"),
		dialogue.TextAnswer(salvage),
	}
}

func TestBuildQuery(t *testing.T) {
	v := usedCars(t)

	query, err := BuildQuery(v, answer(t, v, carAnswers("no")...), "01/02/2025")
	require.NoError(t, err)
	assert.Equal(t, "used Toyota Corolla for sale 2015-2020 under $15,000 in (California OR Texas) bajo kilometraje", query)
	assert.Contains(t, query, "(California OR Texas)")

	query, err = BuildQuery(v, answer(t, v, carAnswers("Sí")...), "01/02/2025")
	require.NoError(t, err)
	assert.Contains(t, query, "bajo kilometraje salvage title")
}

func TestFormatContext(t *testing.T) {
	results := []tools.SearchResult{
		{Title: "2018 Corolla", Snippet: "Low miles", Link: "https://a.example"},
		{Title: "", Snippet: "", Link: ""},
		{Title: "third"},
	}

	got := FormatContext("Results:", results, 2)
	assert.Equal(t, "Results:\n"+
		"1. 2018 Corolla: Low miles [Link: https://a.example]\n"+
		"2. No title: No snippet [Link: No link]\n", got)
}

func TestFormatContextNoResults(t *testing.T) {
	assert.Equal(t, "Results:\n", FormatContext("Results:", nil, 5))
}

func TestBuildMessages(t *testing.T) {
	v := usedCars(t)
	rec := answer(t, v, carAnswers("si")...)

	msgs, err := BuildMessages(v, rec, "CONTEXT BLOCK", "19/10/2026")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, clients.RoleSystem, msgs[0].Role)
	assert.Equal(t, v.SystemPrompt, msgs[0].Content)

	assert.Equal(t, clients.RoleUser, msgs[1].Role)
	user := msgs[1].Content
	assert.Contains(t, user, "- Marca y modelo: Toyota Corolla")
	assert.Contains(t, user, "- Estado(s) de EE.UU.: California, Texas")
	assert.Contains(t, user, "- Interés en vehículos chocados o con percances: Sí")
	assert.Contains(t, user, "CONTEXT BLOCK")
	assert.Contains(t, user, "(fecha actual: 19/10/2026)")
	assert.Contains(t, user, "6. Cualquier consejo adicional")
}

func TestRenderFooter(t *testing.T) {
	v := usedCars(t)
	footer, err := RenderFooter(v, "19/10/2026")
	require.NoError(t, err)
	assert.Equal(t, "Fecha de búsqueda: 19/10/2026", footer)

	footer, err = RenderFooter(&dialogue.Variant{}, "x")
	require.NoError(t, err)
	assert.Empty(t, footer)
}
