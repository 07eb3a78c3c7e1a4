package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestFileCategoryFor(t *testing.T) {
	tests := map[string]engine.FileCategory{
		"app.py":        engine.FileCategoryScript,
		"src/Main.JAVA": engine.FileCategoryScript,
		"main.go":       engine.FileCategoryScript,
		"config.yml":    engine.FileCategoryStructuredData,
		"data.json":     engine.FileCategoryStructuredData,
		"index.html":    engine.FileCategoryMarkup,
		"pom.xml":       engine.FileCategoryMarkup,
		"deploy.sh":     engine.FileCategoryOther,
		"Makefile":      engine.FileCategoryOther,
		"settings.ini":  engine.FileCategoryOther,
	}
	for path, want := range tests {
		assert.Equal(t, want, FileCategoryFor(path), path)
	}
}

func TestWalkDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":                    `password = "x"`,
		"conf/settings.yaml":        "timeout: 30",
		"README.md":                 "not scanned",
		"node_modules/lib/index.js": "ignored",
		".git/config":               "ignored",
		"big.json":                  strings.Repeat("a", 64),
		"bad.ini":                   "key=\xff\xfevalue",
	})

	docs, stats, err := WalkDirectory(context.Background(), root, Policy{MaxFileSize: 32}, zap.NewNop())
	require.NoError(t, err)

	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path
	}
	assert.Equal(t, []string{"app.py", "bad.ini", "conf/settings.yaml"}, paths)

	assert.Equal(t, engine.FileCategoryScript, docs[0].FileCategory)
	assert.Equal(t, "key=value", docs[1].Content)
	assert.Equal(t, engine.FileCategoryStructuredData, docs[2].FileCategory)

	assert.Equal(t, int64(4), stats.Read)
	assert.Equal(t, int64(3), stats.Accepted)
	assert.Equal(t, int64(1), stats.TooLarge)
}

func TestWalkDirectory_NotADirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x"})

	_, _, err := WalkDirectory(context.Background(), filepath.Join(root, "a.py"), DefaultPolicy(), nil)
	assert.Error(t, err)

	_, _, err = WalkDirectory(context.Background(), filepath.Join(root, "missing"), DefaultPolicy(), nil)
	assert.Error(t, err)
}

func TestWalkDirectory_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := WalkDirectory(ctx, root, DefaultPolicy(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectFileFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFileFormat("corpus.csv"))
	assert.Equal(t, FormatParquet, DetectFileFormat("corpus.PARQUET"))
	assert.Equal(t, FormatJSONL, DetectFileFormat("corpus.jsonl"))
	assert.Equal(t, FormatJSONL, DetectFileFormat("corpus.json"))
	assert.Equal(t, FormatCSV, DetectFileFormat("corpus"))
}

func TestRecordDocument(t *testing.T) {
	doc := Record{Path: "x.yaml", Content: "a"}.Document()
	assert.Equal(t, engine.FileCategoryStructuredData, doc.FileCategory)

	doc = Record{Path: "x.yaml", Content: "a", FileCategory: "markup"}.Document()
	assert.Equal(t, engine.FileCategoryMarkup, doc.FileCategory)

	doc = Record{Path: "x.py", Content: "a", FileCategory: "bogus"}.Document()
	assert.Equal(t, engine.FileCategoryScript, doc.FileCategory)
}

func TestCorpusReader_CSV(t *testing.T) {
	root := writeTree(t, map[string]string{
		"corpus.csv": "content,path,file_category\n" +
			"\"timeout = 30\",a.py,\n" +
			"\"host: \"\"db\"\"\",b.yaml,structured-data\n" +
			",,\n" +
			"\"x = 1\",c.txt,\n",
	})

	var batches [][]engine.Document
	reader := NewCorpusReader(2, 0, zap.NewNop())
	stats, err := reader.ReadBatches(context.Background(), filepath.Join(root, "corpus.csv"), func(_ context.Context, docs []engine.Document) error {
		batches = append(batches, docs)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Equal(t, engine.Document{Path: "a.py", Content: "timeout = 30", FileCategory: engine.FileCategoryScript}, batches[0][0])
	assert.Equal(t, `host: "db"`, batches[0][1].Content)
	assert.Equal(t, engine.FileCategoryOther, batches[1][0].FileCategory)

	assert.Equal(t, int64(4), stats.Read)
	assert.Equal(t, int64(3), stats.Accepted)
	assert.Equal(t, int64(1), stats.Invalid)
}

func TestCorpusReader_CSVMissingColumns(t *testing.T) {
	root := writeTree(t, map[string]string{"corpus.csv": "text,label\nx,1\n"})

	_, _, err := NewCorpusReader(10, 0, nil).ReadAll(context.Background(), filepath.Join(root, "corpus.csv"))
	assert.Error(t, err)
}

func TestCorpusReader_JSONL(t *testing.T) {
	root := writeTree(t, map[string]string{
		"corpus.jsonl": `{"path":"a.py","content":"timeout = 30"}
{"path":"b.html","content":"<a href=\"https://x.example.com\">"}
{"path":7,"content":"wrong type"}
{"path":"big.py","content":"` + strings.Repeat("a", 100) + `"}
`,
	})

	docs, stats, err := NewCorpusReader(10, 64, nil).ReadAll(context.Background(), filepath.Join(root, "corpus.jsonl"))
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, engine.FileCategoryMarkup, docs[1].FileCategory)
	assert.Equal(t, int64(1), stats.Invalid)
	assert.Equal(t, int64(1), stats.TooLarge)
}

func TestCorpusReader_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := parquet.NewWriter(f, parquet.SchemaOf(new(Record)))
	records := []Record{
		{Path: "a.py", Content: `password = "supersecret123"`},
		{Path: "b.json", Content: `{"timeout": 30}`, FileCategory: "structured-data"},
	}
	for i := range records {
		require.NoError(t, w.Write(&records[i]))
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	docs, stats, err := NewCorpusReader(10, 0, nil).ReadAll(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []engine.Document{
		{Path: "a.py", Content: `password = "supersecret123"`, FileCategory: engine.FileCategoryScript},
		{Path: "b.json", Content: `{"timeout": 30}`, FileCategory: engine.FileCategoryStructuredData},
	}, docs)
	assert.Equal(t, int64(2), stats.Accepted)
}

func TestCorpusReader_StopsOnBatchError(t *testing.T) {
	root := writeTree(t, map[string]string{"corpus.jsonl": `{"path":"a.py","content":"x"}` + "\n"})
	boom := errors.New("boom")

	_, err := NewCorpusReader(1, 0, nil).ReadBatches(context.Background(), filepath.Join(root, "corpus.jsonl"),
		func(context.Context, []engine.Document) error { return boom })
	assert.ErrorIs(t, err, boom)
}
