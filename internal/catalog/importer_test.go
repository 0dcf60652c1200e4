package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/wordmine/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImportVocabulary_CSV(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "words.csv")
	data := "id,term,translation,difficulty\n" +
		"v1,casa,house,1\n" +
		",perro,dog,2\n" +
		"v3,gato,,1\n" +
		"v4,libro,book,hard\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.LanguagePair = "es-en"

	res, err := ImportVocabulary(ctx, s.Catalog(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalProcessed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Errors, 1)

	item, err := s.Catalog().Item(ctx, DeriveID("es-en", "perro"))
	require.NoError(t, err)
	assert.Equal(t, "dog", item.Translation)
	assert.Equal(t, 2, item.Difficulty)

	// Re-import updates rather than duplicating.
	res, err = ImportVocabulary(ctx, s.Catalog(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Updated)
}

func TestImportVocabulary_Excel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f := excelize.NewFile()
	rows := [][]any{
		{"id", "term", "translation", "difficulty"},
		{"v1", "la casa", "the house", 1},
		{"v2", "el perro", "the dog", 3},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	_, err := f.NewSheet("Options")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Options", "A1", &[]any{"segment", "option", "text"}))
	require.NoError(t, f.SetSheetRow("Options", "A2", &[]any{"seg-1", "a", "la casa"}))
	path := filepath.Join(t.TempDir(), "words.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.LanguagePair = "es-en"
	res, err := ImportVocabulary(ctx, s.Catalog(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Empty(t, res.Errors)

	optCfg := DefaultOptionsConfig()
	optCfg.FilePath = path
	res, err = ImportOptions(ctx, s.Catalog(), optCfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	lookup := NewSQL(s.Catalog())
	text, err := lookup.OptionText(ctx, "seg-1", "a")
	require.NoError(t, err)
	assert.Equal(t, "la casa", text)

	entries, err := lookup.Contains(ctx, "es-en", "CASA", 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "v1", entries[0].ID)
}

func TestImportVocabulary_RequiresLanguagePair(t *testing.T) {
	s := openTestStore(t)
	_, err := ImportVocabulary(context.Background(), s.Catalog(), DefaultImportConfig())
	assert.Error(t, err)
}

func TestDeriveID_Stable(t *testing.T) {
	assert.Equal(t, DeriveID("es-en", "Casa "), DeriveID("es-en", "casa"))
	assert.NotEqual(t, DeriveID("es-en", "casa"), DeriveID("pt-en", "casa"))
}
