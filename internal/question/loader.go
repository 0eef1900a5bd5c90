// Package question loads the question bank from YAML files.
package question

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// File represents the YAML structure for a question
type File struct {
	ID            string     `yaml:"id"`
	Title         string     `yaml:"title"`
	Language      string     `yaml:"language"`
	StarterCode   string     `yaml:"starter_code"`
	AuxiliaryCode string     `yaml:"auxiliary_code"`
	Tasks         []TaskFile `yaml:"tasks"`
}

// TaskFile represents one task of a question file
type TaskFile struct {
	Instructions       []string `yaml:"instructions"`
	MainFunctionName   string   `yaml:"main_function_name"`
	InputFunctionName  string   `yaml:"input_function_name"`
	OutputFunctionName string   `yaml:"output_function_name"`
	TestSuites         []struct {
		ID                string `yaml:"id"`
		HumanReadableName string `yaml:"human_readable_name"`
		TestCases         []struct {
			Input          any   `yaml:"input"`
			AllowedOutputs []any `yaml:"allowed_outputs"`
		} `yaml:"test_cases"`
	} `yaml:"test_suites"`
	BuggyOutputTests []struct {
		BuggyFunctionName   string   `yaml:"buggy_function_name"`
		IgnoredTestSuiteIDs []string `yaml:"ignored_test_suite_ids"`
		Messages            []string `yaml:"messages"`
	} `yaml:"buggy_output_tests"`
	SuiteLevelTests []struct {
		TestSuiteIDsThatMustPass []string `yaml:"test_suite_ids_that_must_pass"`
		TestSuiteIDsThatMustFail []string `yaml:"test_suite_ids_that_must_fail"`
		Messages                 []string `yaml:"messages"`
	} `yaml:"suite_level_tests"`
}

// Loader handles loading questions from YAML files
type Loader struct {
	fsys fs.FS
	dir  string
}

// NewLoader creates a loader reading <basePath>/<id>.yaml
func NewLoader(basePath string) *Loader {
	return &Loader{fsys: os.DirFS(basePath), dir: "."}
}

// NewBuiltinLoader creates a loader over the questions shipped with the binary.
func NewBuiltinLoader() *Loader {
	return &Loader{fsys: builtinFS, dir: "builtin"}
}

// Load loads a single question by id
func (l *Loader) Load(id string) (*domain.Question, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: invalid id %q", domain.ErrQuestionNotFound, id)
	}

	data, err := fs.ReadFile(l.fsys, path.Join(l.dir, id+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}

	q, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("question %s: %w", id, err)
	}
	if q.ID != id {
		return nil, fmt.Errorf("%w: file %s.yaml declares id %q", domain.ErrInvalidQuestion, id, q.ID)
	}
	return q, nil
}

// LoadAll loads every question in the directory, sorted by id
func (l *Loader) LoadAll() ([]*domain.Question, error) {
	entries, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		return nil, fmt.Errorf("read questions directory: %w", err)
	}

	var questions []*domain.Question
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		q, err := l.Load(strings.TrimSuffix(entry.Name(), ".yaml"))
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

// ParseFile reads and parses a question file from disk.
func ParseFile(filename string) (*domain.Question, error) {
	data, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	return Parse(data)
}

// Parse validates a YAML document against the question schema and
// converts it to a domain question.
func Parse(data []byte) (*domain.Question, error) {
	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuestion, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question file: %w", err)
	}

	q := f.toDomain()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func (f *File) toDomain() *domain.Question {
	q := &domain.Question{
		ID:            f.ID,
		Title:         f.Title,
		Language:      f.Language,
		StarterCode:   f.StarterCode,
		AuxiliaryCode: f.AuxiliaryCode,
		Tasks:         make([]domain.Task, len(f.Tasks)),
	}

	for i, tf := range f.Tasks {
		task := domain.Task{
			Instructions:       tf.Instructions,
			MainFunctionName:   tf.MainFunctionName,
			InputFunctionName:  tf.InputFunctionName,
			OutputFunctionName: tf.OutputFunctionName,
		}
		for _, sf := range tf.TestSuites {
			suite := domain.TestSuite{ID: sf.ID, HumanReadableName: sf.HumanReadableName}
			for _, cf := range sf.TestCases {
				suite.TestCases = append(suite.TestCases, domain.TestCase{
					Input:          cf.Input,
					AllowedOutputs: cf.AllowedOutputs,
				})
			}
			task.TestSuites = append(task.TestSuites, suite)
		}
		for _, bf := range tf.BuggyOutputTests {
			task.BuggyOutputTests = append(task.BuggyOutputTests, domain.BuggyOutputTest{
				BuggyFunctionName:   bf.BuggyFunctionName,
				IgnoredTestSuiteIDs: bf.IgnoredTestSuiteIDs,
				Messages:            bf.Messages,
			})
		}
		for _, sf := range tf.SuiteLevelTests {
			task.SuiteLevelTests = append(task.SuiteLevelTests, domain.SuiteLevelTest{
				TestSuiteIDsThatMustPass: sf.TestSuiteIDsThatMustPass,
				TestSuiteIDsThatMustFail: sf.TestSuiteIDsThatMustFail,
				Messages:                 sf.Messages,
			})
		}
		q.Tasks[i] = task
	}

	return q
}
