package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tyemirov/texpurify/internal/utils"
)

// documentFileName defines the name of the document used in tests.
const documentFileName = "paper.tex"

// nestedDirectoryName defines the directory used for nested path tests.
const nestedDirectoryName = "figures"

// draftsDirectoryPattern defines the ignore pattern for the drafts directory inside nestedDirectoryName.
const draftsDirectoryPattern = nestedDirectoryName + "/drafts/"

// backslashDraftsDirectoryPattern defines the same pattern with backslashes to verify normalization.
const backslashDraftsDirectoryPattern = nestedDirectoryName + `\drafts\`

// draftsDirectoryPath defines the path to the drafts directory.
const draftsDirectoryPath = nestedDirectoryName + "/drafts"

// draftsFilePath defines a file inside the drafts directory.
const draftsFilePath = nestedDirectoryName + "/drafts/old.pdf"

// latexmkFilePattern defines the ignore pattern for a latexmk configuration inside nestedDirectoryName.
const latexmkFilePattern = nestedDirectoryName + "/.latexmkrc"

// unrelatedDraftsFilePath defines a drafts path in an unrelated directory.
const unrelatedDraftsFilePath = "other/" + draftsFilePath

// unrelatedLatexmkFilePath defines the latexmk configuration path in an unrelated directory.
const unrelatedLatexmkFilePath = "other/" + latexmkFilePattern

// TestDeduplicatePatterns verifies that DeduplicatePatterns removes duplicate patterns.
func TestDeduplicatePatterns(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		patterns []string
		expected []string
	}{
		{
			testName: "removes duplicates",
			patterns: []string{"a", "b", "a"},
			expected: []string{"a", "b"},
		},
		{
			testName: "keeps unique",
			patterns: []string{"a", "b"},
			expected: []string{"a", "b"},
		},
	}
	for index, testCase := range testCases {
		actual := utils.DeduplicatePatterns(testCase.patterns)
		if len(actual) != len(testCase.expected) {
			testingInstance.Errorf("case %d (%s): expected length %d, got %d", index, testCase.testName, len(testCase.expected), len(actual))
			continue
		}
		for position, value := range actual {
			if value != testCase.expected[position] {
				testingInstance.Errorf("case %d (%s): expected %s at position %d, got %s", index, testCase.testName, testCase.expected[position], position, value)
			}
		}
	}
}

// TestContainsString verifies that ContainsString locates strings in a slice.
func TestContainsString(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		slice    []string
		target   string
		expected bool
	}{
		{
			testName: "contains target",
			slice:    []string{"alpha", "beta"},
			target:   "beta",
			expected: true,
		},
		{
			testName: "missing target",
			slice:    []string{"alpha", "beta"},
			target:   "gamma",
			expected: false,
		},
	}
	for index, testCase := range testCases {
		actual := utils.ContainsString(testCase.slice, testCase.target)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expected, actual)
		}
	}
}

// TestRelativePathOrSelf verifies relative path calculations.
func TestRelativePathOrSelf(testingInstance *testing.T) {
	temporaryRoot := testingInstance.TempDir()
	subPath := filepath.Join(temporaryRoot, documentFileName)
	creationError := os.WriteFile(subPath, []byte("content"), 0600)
	if creationError != nil {
		testingInstance.Fatalf("failed to create file: %v", creationError)
	}
	testCases := []struct {
		testName string
		fullPath string
		root     string
		expected string
	}{
		{
			testName: "root path returns dot",
			fullPath: temporaryRoot,
			root:     temporaryRoot,
			expected: ".",
		},
		{
			testName: "sub path returns relative",
			fullPath: subPath,
			root:     temporaryRoot,
			expected: documentFileName,
		},
	}
	for index, testCase := range testCases {
		actual := utils.RelativePathOrSelf(testCase.fullPath, testCase.root)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %s, got %s", index, testCase.testName, testCase.expected, actual)
		}
	}
}

// TestShouldIgnoreByPath verifies path ignoring logic.
func TestShouldIgnoreByPath(testingInstance *testing.T) {
	testCases := []struct {
		testName       string
		relativePath   string
		patterns       []string
		expectedIgnore bool
	}{
		{
			testName:       "service file",
			relativePath:   ".gitignore",
			patterns:       nil,
			expectedIgnore: true,
		},
		{
			testName:       "exclude pattern",
			relativePath:   "build/paper.pdf",
			patterns:       []string{utils.ExclusionPrefix + "build"},
			expectedIgnore: true,
		},
		{
			testName:       "directory pattern for directory",
			relativePath:   "build",
			patterns:       []string{"build/"},
			expectedIgnore: true,
		},
		{
			testName:       "nested directory pattern",
			relativePath:   "build/paper.log",
			patterns:       []string{"build/*"},
			expectedIgnore: true,
		},
		{
			testName:       "wildcard file pattern",
			relativePath:   "sections/intro.aux",
			patterns:       []string{"*.aux"},
			expectedIgnore: true,
		},
		{
			testName:       "path pattern",
			relativePath:   "sections/intro.aux",
			patterns:       []string{"sections/*.aux"},
			expectedIgnore: true,
		},
		{
			testName:       "not ignored",
			relativePath:   "sections/intro.tex",
			patterns:       []string{"*.aux"},
			expectedIgnore: false,
		},
		{
			testName:       "nested directory with slash",
			relativePath:   draftsFilePath,
			patterns:       []string{draftsDirectoryPattern},
			expectedIgnore: true,
		},
		{
			testName:       "nested directory with backslashes",
			relativePath:   draftsFilePath,
			patterns:       []string{backslashDraftsDirectoryPattern},
			expectedIgnore: true,
		},
		{
			testName:       "directory match short circuits",
			relativePath:   draftsDirectoryPath,
			patterns:       []string{draftsDirectoryPattern},
			expectedIgnore: true,
		},
		{
			testName:       "nested file pattern",
			relativePath:   latexmkFilePattern,
			patterns:       []string{latexmkFilePattern},
			expectedIgnore: true,
		},
		{
			testName:       "nested file pattern no match",
			relativePath:   unrelatedLatexmkFilePath,
			patterns:       []string{latexmkFilePattern},
			expectedIgnore: false,
		},
		{
			testName:       "nested directory pattern no match",
			relativePath:   unrelatedDraftsFilePath,
			patterns:       []string{draftsDirectoryPattern},
			expectedIgnore: false,
		},
	}
	for index, testCase := range testCases {
		actual := utils.ShouldIgnoreByPath(testCase.relativePath, testCase.patterns)
		if actual != testCase.expectedIgnore {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expectedIgnore, actual)
		}
	}
}

// TestIsBinary verifies detection of binary data in byte slices.
func TestIsBinary(testingInstance *testing.T) {
	testCases := []struct {
		testName string
		data     []byte
		expected bool
	}{
		{testName: "utf8 text", data: []byte(`\section{Intro}`), expected: false},
		{testName: "null byte", data: []byte{0x00, 0x01}, expected: true},
		{testName: "invalid utf8", data: []byte{0xff}, expected: true},
		{testName: "empty slice", data: []byte{}, expected: false},
	}
	for index, testCase := range testCases {
		actual := utils.IsBinary(testCase.data)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expected, actual)
		}
	}
}

func TestIsWithinDirectory(testingInstance *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "paper")
	testCases := []struct {
		testName string
		path     string
		expected bool
	}{
		{testName: "root itself", path: root, expected: true},
		{testName: "nested file", path: filepath.Join(root, "sections", "a.tex"), expected: true},
		{testName: "sibling with shared prefix", path: root + "-old", expected: false},
		{testName: "parent", path: filepath.Dir(root), expected: false},
		{testName: "dot dot prefixed name", path: filepath.Join(root, "..hidden"), expected: true},
	}
	for index, testCase := range testCases {
		actual := utils.IsWithinDirectory(root, testCase.path)
		if actual != testCase.expected {
			testingInstance.Errorf("case %d (%s): expected %t, got %t", index, testCase.testName, testCase.expected, actual)
		}
	}
}

func TestIsHiddenPath(testingInstance *testing.T) {
	testCases := map[string]bool{
		"paper.tex":         false,
		".git/config":       true,
		"figures/.DS_Store": true,
		"./paper.tex":       false,
		"../paper.tex":      false,
	}
	for relativePath, expected := range testCases {
		if actual := utils.IsHiddenPath(relativePath); actual != expected {
			testingInstance.Errorf("IsHiddenPath(%q): expected %t, got %t", relativePath, expected, actual)
		}
	}
}
