package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/tyemirov/texpurify/internal/utils"
)

// writeTestFile creates a file with the specified content, failing the test on error.
func writeTestFile(testingHandle *testing.T, filePath string, content string) {
	testingHandle.Helper()
	if makeDirErr := os.MkdirAll(filepath.Dir(filePath), 0o755); makeDirErr != nil {
		testingHandle.Fatalf("failed to create directory for %s: %v", filePath, makeDirErr)
	}
	if writeError := os.WriteFile(filePath, []byte(content), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write %s: %v", filePath, writeError)
	}
}

func TestLoadRecursiveIgnorePatterns(testingHandle *testing.T) {
	testCases := []struct {
		name             string
		files            map[string]string
		options          IgnoreOptions
		expectedPatterns []string
	}{
		{
			name: "nested ignore files are prefixed",
			files: map[string]string{
				utils.IgnoreFileName:                          "root.txt\n",
				filepath.Join("nested", utils.IgnoreFileName): "# comment\n\nnested.txt\n",
			},
			options:          IgnoreOptions{UseIgnoreFile: true},
			expectedPatterns: []string{"root.txt", "nested/nested.txt", gitDirectoryPattern},
		},
		{
			name: "nested gitignore files are prefixed",
			files: map[string]string{
				utils.GitIgnoreFileName:                        "*.aux\n",
				filepath.Join("deep", utils.GitIgnoreFileName): "draft.tex\n",
			},
			options:          IgnoreOptions{UseGitignore: true},
			expectedPatterns: []string{"*.aux", "deep/draft.tex", gitDirectoryPattern},
		},
		{
			name: "disabled sources are skipped",
			files: map[string]string{
				utils.IgnoreFileName:    "a\n",
				utils.GitIgnoreFileName: "b\n",
			},
			options:          IgnoreOptions{IncludeGit: true},
			expectedPatterns: nil,
		},
		{
			name: "section header and exclusions",
			files: map[string]string{
				utils.IgnoreFileName: "[ignore]\nnotes/\n",
			},
			options: IgnoreOptions{
				UseIgnoreFile:     true,
				ExclusionPatterns: []string{" build ", "", "notes/"},
			},
			expectedPatterns: []string{"notes/", gitDirectoryPattern, "build"},
		},
	}

	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			rootDirectory := testingHandle.TempDir()
			for relativePath, content := range testCase.files {
				writeTestFile(testingHandle, filepath.Join(rootDirectory, relativePath), content)
			}

			patternList, loadError := LoadRecursiveIgnorePatterns(rootDirectory, testCase.options)
			if loadError != nil {
				testingHandle.Fatalf("LoadRecursiveIgnorePatterns failed: %v", loadError)
			}

			sort.Strings(patternList)
			expected := append([]string(nil), testCase.expectedPatterns...)
			sort.Strings(expected)
			if len(patternList) == 0 && len(expected) == 0 {
				return
			}
			if !reflect.DeepEqual(patternList, expected) {
				testingHandle.Fatalf("unexpected patterns: got %v want %v", patternList, expected)
			}
		})
	}
}

func TestLoadRecursiveIgnorePatternsSkipsGitDirectory(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, utils.GitDirectoryName, utils.IgnoreFileName), "hidden\n")

	patternList, loadError := LoadRecursiveIgnorePatterns(rootDirectory, IgnoreOptions{UseIgnoreFile: true})
	if loadError != nil {
		testingHandle.Fatalf("LoadRecursiveIgnorePatterns failed: %v", loadError)
	}
	if !reflect.DeepEqual(patternList, []string{gitDirectoryPattern}) {
		testingHandle.Fatalf("expected only the git directory pattern, got %v", patternList)
	}
}

func TestLoadIgnoreFilePatternsMissingFile(testingHandle *testing.T) {
	patterns, loadError := LoadIgnoreFilePatterns(filepath.Join(testingHandle.TempDir(), "absent"))
	if loadError != nil {
		testingHandle.Fatalf("expected no error, got %v", loadError)
	}
	if len(patterns) != 0 {
		testingHandle.Fatalf("expected no patterns, got %v", patterns)
	}
}
