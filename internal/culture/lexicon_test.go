package culture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexiconValid(t *testing.T) {
	require.NoError(t, DefaultLexicon().Validate())
}

func TestValidateMissingDimension(t *testing.T) {
	lex := DefaultLexicon()
	delete(lex.MIT, Agility)
	err := lex.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agility")
}

func TestValidateEmptyPole(t *testing.T) {
	lex := DefaultLexicon()
	kw := lex.Hofstede[OpenClosed]
	kw.PoleB = nil
	lex.Hofstede[OpenClosed] = kw
	err := lex.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty pole")
}

func TestValidateUpperCaseKeyword(t *testing.T) {
	lex := DefaultLexicon()
	lex.MIT[Respect] = append(lex.MIT[Respect], "Valued Highly")
	err := lex.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not lower-case")
}

func TestLoadLexicon(t *testing.T) {
	const doc = `
hofstede:
  process_results: {pole_a: [slow], pole_b: [fast]}
  job_employee: {pole_a: [grind], pole_b: [caring]}
  professional_parochial: {pole_a: [family], pole_b: [experts]}
  open_closed: {pole_a: [cliquey], pole_b: [welcoming]}
  tight_loose: {pole_a: [casual], pole_b: [strict]}
  pragmatic_normative: {pole_a: [dogmatic], pole_b: [practical]}
mit_big_9:
  agility: [nimble]
  collaboration: [teamwork]
  customer_orientation: [client first]
  diversity: [inclusive]
  execution: [disciplined]
  innovation: [creative]
  integrity: [ethical]
  performance: [meritocracy]
  respect: [valued]
`
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)

	s := NewScorer(lex)
	scores := s.Score("nimble and welcoming, but dogmatic")
	assert.Equal(t, 1, scores.MIT[Agility].Evidence)
	require.NotNil(t, scores.Hofstede[OpenClosed].Score)
	assert.InDelta(t, 1.0, *scores.Hofstede[OpenClosed].Score, 1e-9)
	require.NotNil(t, scores.Hofstede[PragmaticNormative].Score)
	assert.InDelta(t, -1.0, *scores.Hofstede[PragmaticNormative].Score, 1e-9)
}

func TestLoadLexiconMissingFile(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadLexiconInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mit_big_9:\n  agility: [nimble]\n"), 0o644))
	_, err := LoadLexicon(path)
	require.Error(t, err)
}
