// Package config loads texpurify configuration files and the ignore files that
// shape the unused-file report.
package config

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tyemirov/texpurify/internal/utils"
)

const (
	// gitDirectoryPattern represents the pattern that matches the Git directory.
	gitDirectoryPattern = utils.GitDirectoryName + "/"
	// ignoreSectionHeader is accepted and skipped for compatibility with sectioned ignore files.
	ignoreSectionHeader = "[ignore]"
)

// IgnoreOptions selects the ignore sources consulted by LoadRecursiveIgnorePatterns.
type IgnoreOptions struct {
	ExclusionPatterns []string
	UseGitignore      bool
	UseIgnoreFile     bool
	IncludeGit        bool
}

// LoadIgnoreFilePatterns reads an ignore file and returns its patterns. A missing file yields no patterns.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) ([]string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", ignoreFilePath, closeError)
		}
	}()

	var ignorePatterns []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}
		if strings.EqualFold(trimmedLine, ignoreSectionHeader) {
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadRecursiveIgnorePatterns walks rootDirectoryPath and aggregates ignore patterns.
// Patterns from utils.IgnoreFileName and utils.GitIgnoreFileName in each nested directory are prefixed with that
// directory's path relative to rootDirectoryPath. The directory named utils.GitDirectoryName is ignored unless
// options.IncludeGit is true. options.ExclusionPatterns are appended to the result.
func LoadRecursiveIgnorePatterns(rootDirectoryPath string, options IgnoreOptions) ([]string, error) {
	var aggregatedPatterns []string

	appendFrom := func(directoryPath string, fileName string, prefix string) error {
		patterns, loadError := LoadIgnoreFilePatterns(filepath.Join(directoryPath, fileName))
		if loadError != nil {
			return fmt.Errorf("loading %s from %s: %w", fileName, directoryPath, loadError)
		}
		for _, pattern := range patterns {
			aggregatedPatterns = append(aggregatedPatterns, prefix+pattern)
		}
		return nil
	}

	walkFunction := func(currentDirectoryPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if !options.IncludeGit && directoryEntry.Name() == utils.GitDirectoryName {
			return filepath.SkipDir
		}

		relativeDirectory := utils.RelativePathOrSelf(currentDirectoryPath, rootDirectoryPath)
		prefix := ""
		if relativeDirectory != "." {
			prefix = relativeDirectory + "/"
		}

		if options.UseIgnoreFile {
			if err := appendFrom(currentDirectoryPath, utils.IgnoreFileName, prefix); err != nil {
				return err
			}
		}
		if options.UseGitignore {
			if err := appendFrom(currentDirectoryPath, utils.GitIgnoreFileName, prefix); err != nil {
				return err
			}
		}
		return nil
	}

	if walkError := filepath.WalkDir(rootDirectoryPath, walkFunction); walkError != nil {
		return nil, walkError
	}

	if !options.IncludeGit {
		aggregatedPatterns = append(aggregatedPatterns, gitDirectoryPattern)
	}

	deduplicatedPatterns := utils.DeduplicatePatterns(aggregatedPatterns)
	for _, pattern := range options.ExclusionPatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if !utils.ContainsString(deduplicatedPatterns, trimmedPattern) {
			deduplicatedPatterns = append(deduplicatedPatterns, trimmedPattern)
		}
	}

	return deduplicatedPatterns, nil
}
