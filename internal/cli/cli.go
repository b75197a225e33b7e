// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/texpurify/internal/config"
	"github.com/tyemirov/texpurify/internal/output"
	"github.com/tyemirov/texpurify/internal/purify"
	"github.com/tyemirov/texpurify/internal/services/clipboard"
	"github.com/tyemirov/texpurify/internal/services/stream"
	"github.com/tyemirov/texpurify/internal/tokenizer"
	"github.com/tyemirov/texpurify/internal/types"
	"github.com/tyemirov/texpurify/internal/utils"
)

const (
	exclusionFlagName         = "e"
	noGitignoreFlagName       = "no-gitignore"
	noIgnoreFlagName          = "no-ignore"
	includeGitFlagName        = "git"
	formatFlagName            = "format"
	tokensFlagName            = "tokens"
	modelFlagName             = "model"
	copyFlagName              = "copy"
	configFlagName            = "config"
	removeCommandFlagName     = "remove-cmd"
	shortCircuitFlagName      = "short-circuit-cmd"
	keepFileFlagName          = "keep-file"
	outputRootNameFlagName    = "out-root-doc-name"
	clearOutputFlagName       = "clear-out-dir"
	keepCommentMarkerFlagName = "keep-comment-marker"
	globalFlagName            = "global"
	forceFlagName             = "force"
	versionFlagName           = "version"
	versionTemplate           = "texpurify version: %s\n"
	rootUse                   = "texpurify"
	rootShortDescription      = "texpurify command line interface"
	rootLongDescription       = `texpurify prepares a LaTeX project for submission.
It strips comments, removes or inlines selected commands, and writes the purified
documents together with the files they reference into an output directory.
Use --format to select raw, json, xml, or yaml output, and --version to print the application version.`
	versionFlagDescription = "display application version"

	purifyUse              = "purify <root.tex> <output-directory>"
	purifyAlias            = "p"
	purifyShortDescription = "purify a LaTeX project (" + purifyAlias + ")"
	purifyLongDescription  = `Purify the document tree rooted at <root.tex> into <output-directory>.
Inputs are resolved relative to each including document. Referenced graphics,
packages, bibliography files and compilation results are copied; files in the
source tree that nothing references are reported as unused.`
	purifyUsageExample = `  # Purify a paper, dropping \todo and inlining \revised{...}
  texpurify purify paper.tex submission --remove-cmd todo --short-circuit-cmd revised

  # Start from an empty output directory and report as JSON
  texpurify purify paper.tex submission --clear-out-dir --format json`

	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the default configuration to ./` + utils.ConfigFileName + `,
or to ~/` + utils.GlobalConfigDirectoryName + `/` + utils.GlobalConfigFileName + ` with --global.`

	exclusionFlagDescription         = "exclude path pattern from the unused-file report"
	disableGitignoreFlagDescription  = "do not use .gitignore"
	disableIgnoreFlagDescription     = "do not use .ignore"
	includeGitFlagDescription        = "include git directory"
	formatFlagDescription            = "output format (raw, json, xml, yaml)"
	tokensFlagDescription            = "include token counts of purified documents"
	modelFlagDescription             = "tokenizer model to use for token counting"
	copyFlagDescription              = "copy the report to the system clipboard"
	configFlagDescription            = "configuration file to use instead of ./" + utils.ConfigFileName
	removeCommandFlagDescription     = "command to remove with its arguments (repeatable, comma separated)"
	shortCircuitFlagDescription      = "command to replace by its first argument (repeatable, comma separated)"
	keepFileFlagDescription          = "file or glob to copy even when unreferenced (repeatable)"
	outputRootNameFlagDescription    = "file name of the purified root document"
	clearOutputFlagDescription       = "delete the output directory before writing"
	keepCommentMarkerFlagDescription = "keep a bare % where a comment was removed"
	globalFlagDescription            = "write the global configuration"
	forceFlagDescription             = "overwrite an existing configuration file"

	initializedConfigurationFormat = "Wrote configuration to %s\n"
	invalidFormatMessage           = "invalid format value '%s'"
	errorAbsolutePathFormat        = "abs failed for '%s': %w"
	errorPathMissingFormat         = "path '%s' does not exist"
	errorStatFormat                = "stat failed for '%s': %w"
	errorRootIsDirectoryFormat     = "root document '%s' is a directory"
	errorClipboardFormat           = "copy report to clipboard: %w"
)

// application carries the collaborators shared by all commands.
type application struct {
	logger           *zap.Logger
	copier           clipboard.Copier
	stdout           io.Writer
	stderr           io.Writer
	workingDirectory string
	homeDirectory    string
}

// Execute runs the texpurify application with the process arguments.
func Execute(logger *zap.Logger) error {
	app := application{
		logger: logger,
		copier: clipboard.NewService(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	rootCommand := app.createRootCommand()
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func (app application) createRootCommand() *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			return command.Help()
		},
	}
	rootCommand.SetOut(app.stdout)
	rootCommand.SetErr(app.stderr)
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		app.createPurifyCommand(),
		app.createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// pathOptions stores configuration for path-related flags.
type pathOptions struct {
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
	includeGit        bool
}

// addPathFlags registers path-related flags on the command.
func addPathFlags(command *cobra.Command, options *pathOptions) {
	command.Flags().StringArrayVarP(&options.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	command.Flags().BoolVar(&options.disableGitignore, noGitignoreFlagName, false, disableGitignoreFlagDescription)
	command.Flags().BoolVar(&options.disableIgnoreFile, noIgnoreFlagName, false, disableIgnoreFlagDescription)
	command.Flags().BoolVar(&options.includeGit, includeGitFlagName, false, includeGitFlagDescription)
}

// purifyFlags holds the raw flag values of the purify command.
type purifyFlags struct {
	paths                pathOptions
	format               string
	tokens               bool
	model                string
	copy                 bool
	configPath           string
	removeCommands       []string
	shortCircuitCommands []string
	keepFiles            []string
	outputRootName       string
	clearOutputDirectory bool
	keepCommentMarker    bool
}

func (app application) createPurifyCommand() *cobra.Command {
	var flags purifyFlags

	purifyCommand := &cobra.Command{
		Use:     purifyUse,
		Aliases: []string{purifyAlias},
		Short:   purifyShortDescription,
		Long:    purifyLongDescription,
		Example: purifyUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			settings, settingsError := app.resolvePurifySettings(command, flags, arguments[0], arguments[1])
			if settingsError != nil {
				return settingsError
			}
			return app.runPurify(command.Context(), settings)
		},
	}

	addPathFlags(purifyCommand, &flags.paths)
	flagSet := purifyCommand.Flags()
	flagSet.StringVar(&flags.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerBooleanFlag(flagSet, &flags.tokens, tokensFlagName, false, tokensFlagDescription)
	flagSet.StringVar(&flags.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	registerBooleanFlag(flagSet, &flags.copy, copyFlagName, false, copyFlagDescription)
	flagSet.StringVar(&flags.configPath, configFlagName, "", configFlagDescription)
	flagSet.StringSliceVar(&flags.removeCommands, removeCommandFlagName, nil, removeCommandFlagDescription)
	flagSet.StringSliceVar(&flags.shortCircuitCommands, shortCircuitFlagName, nil, shortCircuitFlagDescription)
	flagSet.StringArrayVar(&flags.keepFiles, keepFileFlagName, nil, keepFileFlagDescription)
	flagSet.StringVar(&flags.outputRootName, outputRootNameFlagName, types.DefaultOutputRootName, outputRootNameFlagDescription)
	registerBooleanFlag(flagSet, &flags.clearOutputDirectory, clearOutputFlagName, false, clearOutputFlagDescription)
	registerBooleanFlag(flagSet, &flags.keepCommentMarker, keepCommentMarkerFlagName, true, keepCommentMarkerFlagDescription)
	return purifyCommand
}

func (app application) createInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: app.workingDirectory,
				HomeDirectory:    app.homeDirectory,
			})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.OutOrStdout(), initializedConfigurationFormat, path)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&global, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// purifySettings is the effective configuration of one purify run after
// defaults, configuration files and flags have been layered.
type purifySettings struct {
	rootDocument         string
	outputDirectory      string
	outputRootName       string
	keepCommentMarker    bool
	clearOutputDirectory bool
	removeCommands       []string
	shortCircuitCommands []string
	keepFiles            []string
	format               string
	copy                 bool
	tokens               bool
	model                string
	exclusionPatterns    []string
	useGitignore         bool
	useIgnoreFile        bool
	includeGit           bool
}

// resolvePurifySettings applies flags over configuration over defaults.
func (app application) resolvePurifySettings(command *cobra.Command, flags purifyFlags, rootArgument string, outputArgument string) (purifySettings, error) {
	loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: app.workingDirectory,
		ExplicitFilePath: flags.configPath,
		HomeDirectory:    app.homeDirectory,
	})
	if loadError != nil {
		return purifySettings{}, loadError
	}

	rootDocument, rootError := resolveRootDocument(rootArgument)
	if rootError != nil {
		return purifySettings{}, rootError
	}
	outputDirectory, outputError := filepath.Abs(outputArgument)
	if outputError != nil {
		return purifySettings{}, fmt.Errorf(errorAbsolutePathFormat, outputArgument, outputError)
	}

	changed := command.Flags().Changed
	settings := purifySettings{
		rootDocument:         rootDocument,
		outputDirectory:      outputDirectory,
		outputRootName:       pickString(changed(outputRootNameFlagName), flags.outputRootName, loaded.OutputRootName),
		keepCommentMarker:    pickBool(changed(keepCommentMarkerFlagName), flags.keepCommentMarker, loaded.KeepCommentMarker),
		clearOutputDirectory: pickBool(changed(clearOutputFlagName), flags.clearOutputDirectory, loaded.ClearOutputDirectory),
		removeCommands:       pickList(changed(removeCommandFlagName), flags.removeCommands, loaded.RemoveCommands, nil),
		shortCircuitCommands: pickList(changed(shortCircuitFlagName), flags.shortCircuitCommands, loaded.ShortCircuitCommands, nil),
		keepFiles:            pickList(changed(keepFileFlagName), flags.keepFiles, loaded.KeepFiles, nil),
		format:               strings.ToLower(pickString(changed(formatFlagName), flags.format, loaded.Format)),
		copy:                 pickBool(changed(copyFlagName), flags.copy, loaded.Copy),
		tokens:               pickBool(changed(tokensFlagName), flags.tokens, loaded.Tokens.Enabled),
		model:                pickString(changed(modelFlagName), flags.model, loaded.Tokens.Model),
		exclusionPatterns:    append(append([]string{}, loaded.Paths.Exclude...), flags.paths.exclusionPatterns...),
		useGitignore:         pickBool(changed(noGitignoreFlagName), !flags.paths.disableGitignore, loaded.Paths.UseGitignore),
		useIgnoreFile:        pickBool(changed(noIgnoreFlagName), !flags.paths.disableIgnoreFile, loaded.Paths.UseIgnoreFile),
		includeGit:           pickBool(changed(includeGitFlagName), flags.paths.includeGit, loaded.Paths.IncludeGit),
	}
	settings.removeCommands = purify.WithDefaultRemovals(settings.removeCommands, settings.shortCircuitCommands)
	if !isSupportedFormat(settings.format) {
		return purifySettings{}, fmt.Errorf(invalidFormatMessage, settings.format)
	}
	return settings, nil
}

// runPurify streams one purification into the selected renderer.
func (app application) runPurify(ctx context.Context, settings purifySettings) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := app.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ignorePatterns, ignoreError := config.LoadRecursiveIgnorePatterns(filepath.Dir(settings.rootDocument), config.IgnoreOptions{
		ExclusionPatterns: settings.exclusionPatterns,
		UseGitignore:      settings.useGitignore,
		UseIgnoreFile:     settings.useIgnoreFile,
		IncludeGit:        settings.includeGit,
	})
	if ignoreError != nil {
		return ignoreError
	}

	var tokenCounter tokenizer.Counter
	var tokenModel string
	if settings.tokens {
		createdCounter, resolvedModel, counterError := tokenizer.NewCounter(tokenizer.Config{Model: settings.model})
		if counterError != nil {
			return counterError
		}
		tokenCounter = createdCounter
		tokenModel = resolvedModel
	}

	var report bytes.Buffer
	stdout := app.stdout
	if settings.copy {
		stdout = io.MultiWriter(app.stdout, &report)
	}
	renderer, rendererError := output.NewStreamRenderer(settings.format, stdout, app.stderr)
	if rendererError != nil {
		return rendererError
	}

	producer := func(streamCtx context.Context, ch chan<- stream.Event) error {
		return stream.StreamPurification(streamCtx, stream.Options{
			RootDocument:         settings.rootDocument,
			OutputDirectory:      settings.outputDirectory,
			OutputRootName:       settings.outputRootName,
			KeepCommentMarker:    settings.keepCommentMarker,
			ClearOutputDirectory: settings.clearOutputDirectory,
			RemoveCommands:       settings.removeCommands,
			ShortCircuitCommands: settings.shortCircuitCommands,
			KeepFiles:            settings.keepFiles,
			WorkingDirectory:     app.workingDirectory,
			IgnorePatterns:       ignorePatterns,
			TokenCounter:         tokenCounter,
			TokenModel:           tokenModel,
			Logger:               logger,
		}, ch)
	}

	if streamError := dispatchStream(ctx, producer, renderer.Handle); streamError != nil {
		return streamError
	}
	if flushError := renderer.Flush(); flushError != nil {
		return flushError
	}
	if settings.copy && app.copier != nil {
		if copyError := app.copier.Copy(report.String()); copyError != nil {
			return fmt.Errorf(errorClipboardFormat, copyError)
		}
	}
	return nil
}

func dispatchStream(
	ctx context.Context,
	produce func(context.Context, chan<- stream.Event) error,
	consume func(stream.Event) error,
) error {
	group, streamCtx := errgroup.WithContext(ctx)
	events := make(chan stream.Event)

	group.Go(func() error {
		defer close(events)
		return produce(streamCtx, events)
	})

	group.Go(func() error {
		for {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := consume(event); err != nil {
					return err
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolveRootDocument converts the root argument to an absolute path and checks that it names a file.
func resolveRootDocument(input string) (string, error) {
	absolutePath, absolutePathError := filepath.Abs(input)
	if absolutePathError != nil {
		return "", fmt.Errorf(errorAbsolutePathFormat, input, absolutePathError)
	}
	cleanPath := filepath.Clean(absolutePath)
	info, fileStatusError := os.Stat(cleanPath)
	if fileStatusError != nil {
		if os.IsNotExist(fileStatusError) {
			return "", fmt.Errorf(errorPathMissingFormat, input)
		}
		return "", fmt.Errorf(errorStatFormat, input, fileStatusError)
	}
	if info.IsDir() {
		return "", fmt.Errorf(errorRootIsDirectoryFormat, input)
	}
	return cleanPath, nil
}

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML, types.FormatYAML:
		return true
	default:
		return false
	}
}

func pickString(flagChanged bool, flagValue string, configured string) string {
	if flagChanged || configured == "" {
		return flagValue
	}
	return configured
}

func pickBool(flagChanged bool, flagValue bool, configured *bool) bool {
	if flagChanged {
		return flagValue
	}
	return config.BoolOrDefault(configured, flagValue)
}

func pickList(flagChanged bool, flagValue []string, configured []string, fallback []string) []string {
	switch {
	case flagChanged:
		return flagValue
	case len(configured) > 0:
		return configured
	default:
		return fallback
	}
}
