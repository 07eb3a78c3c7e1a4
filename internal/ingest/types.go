package ingest

import (
	"path/filepath"
	"strings"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

// DefaultMaxFileSize is the largest document accepted, in bytes
const DefaultMaxFileSize = 1024 * 1024

// DefaultExtensions are the file types a directory scan reads
var DefaultExtensions = []string{
	".py", ".js", ".ts", ".java", ".go", ".rs", ".cpp", ".c", ".h",
	".json", ".yaml", ".yml", ".xml", ".html", ".css", ".scss",
	".sql", ".sh", ".bat", ".ps1", ".conf", ".cfg", ".ini", ".env",
}

// DefaultSkipDirs are directory names never descended into
var DefaultSkipDirs = []string{".git", "__pycache__", "node_modules", ".vscode"}

// Policy decides which files become documents
type Policy struct {
	Extensions  []string `yaml:"extensions" mapstructure:"extensions"`
	SkipDirs    []string `yaml:"skip_dirs" mapstructure:"skip_dirs"`
	MaxFileSize int64    `yaml:"max_file_size" mapstructure:"max_file_size"`
}

// DefaultPolicy returns the standard scan policy
func DefaultPolicy() Policy {
	return Policy{
		Extensions:  append([]string(nil), DefaultExtensions...),
		SkipDirs:    append([]string(nil), DefaultSkipDirs...),
		MaxFileSize: DefaultMaxFileSize,
	}
}

func (p Policy) withDefaults() Policy {
	if len(p.Extensions) == 0 {
		p.Extensions = DefaultExtensions
	}
	if len(p.SkipDirs) == 0 {
		p.SkipDirs = DefaultSkipDirs
	}
	if p.MaxFileSize <= 0 {
		p.MaxFileSize = DefaultMaxFileSize
	}
	return p
}

func (p Policy) allowsExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range p.Extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

func (p Policy) skipsDir(name string) bool {
	for _, skip := range p.SkipDirs {
		if name == skip {
			return true
		}
	}
	return false
}

// FileCategoryFor maps a file name to the document kind used for complexity scoring
func FileCategoryFor(path string) engine.FileCategory {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".js", ".ts", ".java", ".go":
		return engine.FileCategoryScript
	case ".json", ".yaml", ".yml":
		return engine.FileCategoryStructuredData
	case ".xml", ".html":
		return engine.FileCategoryMarkup
	default:
		return engine.FileCategoryOther
	}
}

// Stats counts what a load kept and dropped
type Stats struct {
	Read     int64 `json:"read"`
	Accepted int64 `json:"accepted"`
	Skipped  int64 `json:"skipped"`
	TooLarge int64 `json:"too_large"`
	Invalid  int64 `json:"invalid"`
}

// Record is one row of a document corpus file
type Record struct {
	Path         string `csv:"path" parquet:"path" json:"path"`
	Content      string `csv:"content" parquet:"content" json:"content"`
	FileCategory string `csv:"file_category" parquet:"file_category" json:"file_category"`
}

// Document converts the record, deriving the file category from the path when the
// record does not carry one.
func (r Record) Document() engine.Document {
	fc := engine.FileCategory(strings.TrimSpace(r.FileCategory))
	switch fc {
	case engine.FileCategoryScript, engine.FileCategoryStructuredData, engine.FileCategoryMarkup, engine.FileCategoryOther:
	default:
		fc = FileCategoryFor(r.Path)
	}
	return engine.Document{Path: r.Path, Content: r.Content, FileCategory: fc}
}

// FileFormat represents supported corpus formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSONL   FileFormat = "jsonl"
)

// DetectFileFormat detects the corpus format from the file extension
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatCSV
	}
}
