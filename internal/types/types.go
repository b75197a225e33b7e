// Package types defines every cross‑package data structure used by the texpurify CLI.
package types

import "sort"

const (
	CommandPurify = "purify"
	CommandInit   = "init"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatYAML = "yaml"

	ReferenceKindGraphics     = "graphics"
	ReferenceKindPackage      = "package"
	ReferenceKindBibliography = "bibliography"
	ReferenceKindCompilation  = "compilation"
	ReferenceKindKept         = "kept"

	DefaultOutputRootName = "ms"
	DocumentExtension     = ".tex"
)

// Statistic keys, reported in sorted order.
const (
	StatisticInlineComments       = "num_inline_comments"
	StatisticDeclarationsRemoved  = "num_declarations_removed"
	StatisticCommandsRemoved      = "num_cmds_removed"
	StatisticCommandsShortCircuit = "num_cmds_short_circuited"
	StatisticDocumentsWritten     = "num_documents_written"
	StatisticFilesCopied          = "num_files_copied"
	StatisticFilesUnused          = "num_files_unused"
)

// Statistics accumulates the counters of one run. The zero value is ready to use.
type Statistics struct {
	CommentsRemoved        int
	DeclarationsRemoved    int
	CommandsRemoved        map[string]int
	CommandsShortCircuited map[string]int
	DocumentsWritten       int
	FilesCopied            int
	FilesUnused            int
}

// StatisticEntry is one named counter.
type StatisticEntry struct {
	Name  string `json:"name" xml:"name,attr" yaml:"name"`
	Value int    `json:"value" xml:"value,attr" yaml:"value"`
}

// CountRemoved records the removal of one invocation of name.
func (statistics *Statistics) CountRemoved(name string) {
	if statistics.CommandsRemoved == nil {
		statistics.CommandsRemoved = map[string]int{}
	}
	statistics.CommandsRemoved[name]++
}

// CountShortCircuited records the inlining of one invocation of name.
func (statistics *Statistics) CountShortCircuited(name string) {
	if statistics.CommandsShortCircuited == nil {
		statistics.CommandsShortCircuited = map[string]int{}
	}
	statistics.CommandsShortCircuited[name]++
}

// Add folds other into the receiver.
func (statistics *Statistics) Add(other Statistics) {
	statistics.CommentsRemoved += other.CommentsRemoved
	statistics.DeclarationsRemoved += other.DeclarationsRemoved
	statistics.DocumentsWritten += other.DocumentsWritten
	statistics.FilesCopied += other.FilesCopied
	statistics.FilesUnused += other.FilesUnused
	statistics.CommandsRemoved = mergeCounts(statistics.CommandsRemoved, other.CommandsRemoved)
	statistics.CommandsShortCircuited = mergeCounts(statistics.CommandsShortCircuited, other.CommandsShortCircuited)
}

// TotalRemoved sums removals over all command names.
func (statistics Statistics) TotalRemoved() int {
	return sumCounts(statistics.CommandsRemoved)
}

// TotalShortCircuited sums inlined invocations over all command names.
func (statistics Statistics) TotalShortCircuited() int {
	return sumCounts(statistics.CommandsShortCircuited)
}

// Entries lists non-zero counters sorted by name. Per-command counters are suffixed with the command name.
func (statistics Statistics) Entries() []StatisticEntry {
	entries := []StatisticEntry{
		{Name: StatisticInlineComments, Value: statistics.CommentsRemoved},
		{Name: StatisticDeclarationsRemoved, Value: statistics.DeclarationsRemoved},
		{Name: StatisticDocumentsWritten, Value: statistics.DocumentsWritten},
		{Name: StatisticFilesCopied, Value: statistics.FilesCopied},
		{Name: StatisticFilesUnused, Value: statistics.FilesUnused},
	}
	for name, count := range statistics.CommandsRemoved {
		entries = append(entries, StatisticEntry{Name: StatisticCommandsRemoved + "_" + name, Value: count})
	}
	for name, count := range statistics.CommandsShortCircuited {
		entries = append(entries, StatisticEntry{Name: StatisticCommandsShortCircuit + "_" + name, Value: count})
	}

	nonZero := entries[:0]
	for _, entry := range entries {
		if entry.Value != 0 {
			nonZero = append(nonZero, entry)
		}
	}
	sort.Slice(nonZero, func(left, right int) bool {
		return nonZero[left].Name < nonZero[right].Name
	})
	return nonZero
}

func mergeCounts(target map[string]int, source map[string]int) map[string]int {
	if len(source) == 0 {
		return target
	}
	if target == nil {
		target = make(map[string]int, len(source))
	}
	for name, count := range source {
		target[name] += count
	}
	return target
}

func sumCounts(counts map[string]int) int {
	total := 0
	for _, count := range counts {
		total += count
	}
	return total
}
