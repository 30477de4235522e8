// intlbot: UI string extraction and AI translation for JSON dictionaries.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/intlbot/intlbot/check"
	"github.com/intlbot/intlbot/config"
	"github.com/intlbot/intlbot/dictionary"
	"github.com/intlbot/intlbot/extract"
	"github.com/intlbot/intlbot/i18n"
	"github.com/intlbot/intlbot/langmeta"
	"github.com/intlbot/intlbot/lockfile"
	"github.com/intlbot/intlbot/settings"
	"github.com/intlbot/intlbot/syncer"
	"github.com/intlbot/intlbot/translate"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "intlbot",
		Short: "UI string extraction and AI translation for JSON dictionaries",
		Long: `intlbot: UI string extraction and AI translation for JSON dictionaries.

Scans JSX/TSX sources for user-facing text, wraps each literal in a
t('key') call, and maintains one nested JSON dictionary per language.
Missing and updated entries are translated with OpenAI-compatible AI
providers; existing translations can be reviewed the same way.

Commands:
  status      Show project info and translation statistics
  init        Create a starter .intlbot.yaml configuration
  extract     Extract UI strings from sources into the dictionary
  sync        Translate missing and updated entries using AI
  check       Review existing translations using AI
  auth        Manage provider credentials

AI Providers:
  openai         OpenAI (API key required)
  openrouter     OpenRouter (API key required)
  groq           Groq (API key required)
  google         Google AI / Gemini (API key required)
  ollama         Ollama local server
  lmstudio       LM Studio local server
  custom-openai  Custom OpenAI-compatible endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newStatusCmd(),
		newInitCmd(),
		newExtractCmd(),
		newSyncCmd(),
		newCheckCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("intlbot version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// status (read-only: project info + translation stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project info and translation statistics",
		Long: `Show project configuration and per-language translation progress.

Displays the detected or configured source directories, the dictionary
location, and how many canonical keys each target language has translated.
Does not modify any files.`,
		Run: func(cmd *cobra.Command, args []string) {
			runStatus()
		},
	}

	return cmd
}

func runStatus() {
	cfg, err := config.Load(rootDir)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	hasConfig := cfg != nil
	if cfg == nil {
		cfg = config.Detect(rootDir)
	}

	// Project info header
	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Project"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	absRoot, _ := filepath.Abs(rootDir)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", absRoot)
	if hasConfig {
		fmt.Fprintf(os.Stderr, "  Config:     %s\n", config.FileName)
	} else {
		fmt.Fprintf(os.Stderr, "  Config:     none (auto-detected, run 'intlbot init' to pin)\n")
	}
	fmt.Fprintf(os.Stderr, "  Messages:   %s\n", cfg.MessagesDir)

	srcPaths := cfg.SourcePaths(rootDir)
	if len(srcPaths) > 0 {
		fmt.Fprintf(os.Stderr, "  Sources:    %s\n", strings.Join(relPaths(srcPaths), ", "))
	} else {
		fmt.Fprintf(os.Stderr, "  Sources:    none detected\n")
	}

	if len(cfg.Languages) > 0 {
		fmt.Fprintf(os.Stderr, "  Languages:  %s\n", strings.Join(cfg.Languages, ", "))
	} else {
		fmt.Fprintf(os.Stderr, "  Languages:  none detected\n")
	}
	fmt.Fprintf(os.Stderr, "  Provider:   %s\n", cfg.Provider)
	fmt.Fprintln(os.Stderr)

	canonPath := cfg.CanonicalPath(rootDir)
	if !fileExists(canonPath) {
		logInfo(i18n.T("No canonical dictionary found at %s"), canonPath)
		printSuggestedCommands(hasConfig, false, false)
		return
	}

	canon, err := dictionary.ParseFile(canonPath)
	if err != nil {
		logError("Reading %s: %v", canonPath, err)
		os.Exit(1)
	}

	showStatusTable(cfg, canon)
	_, pending := canon.Stats()
	printSuggestedCommands(hasConfig, canon.Len() > 0, pending > 0 || missingTranslations(cfg, canon))
}

func showStatusTable(cfg *config.Config, canon *dictionary.Dictionary) {
	total, pending := canon.Stats()

	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Translation Status"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Source keys (%s): %d", cfg.SourceLanguage, total)
	if pending > 0 {
		fmt.Fprintf(os.Stderr, " (%d pending update)", pending)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr)

	if total == 0 || len(cfg.Languages) == 0 {
		return
	}

	w := langColumnWidth(cfg.Languages)
	keys := canon.Keys()
	var logged []string

	for _, lang := range cfg.Languages {
		path := cfg.LangPath(rootDir, lang)
		dict, err := dictionary.ParseFile(path)
		if err != nil {
			if fileExists(path) {
				fmt.Fprintf(os.Stderr, "  %s %serror reading%s\n", langCell(lang, w), colorRed, colorReset)
			} else {
				fmt.Fprintf(os.Stderr, "  %s missing (run 'intlbot sync')\n", langCell(lang, w))
			}
			continue
		}

		translated := 0
		for _, k := range keys {
			if dict.Has(k) {
				translated++
			}
		}
		percent := translated * 100 / total
		fmt.Fprintf(os.Stderr, "  %s %s  %d/%d\n", langCell(lang, w), progressBar(percent, 20), translated, total)

		if fileExists(syncer.ReviewLogPath(cfg.MessagesPath(rootDir), lang)) {
			logged = append(logged, lang)
		}
	}

	fmt.Fprintln(os.Stderr)

	if len(logged) > 0 {
		logWarning("Review log present for: %s", strings.Join(logged, ", "))
		fmt.Fprintln(os.Stderr)
	}
}

// missingTranslations reports whether any target language lacks keys.
func missingTranslations(cfg *config.Config, canon *dictionary.Dictionary) bool {
	keys := canon.Keys()
	for _, lang := range cfg.Languages {
		dict, err := dictionary.ParseFile(cfg.LangPath(rootDir, lang))
		if err != nil {
			return true
		}
		for _, k := range keys {
			if !dict.Has(k) {
				return true
			}
		}
	}
	return false
}

func printSuggestedCommands(hasConfig, hasKeys, needsSync bool) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Suggested Commands"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	switch {
	case !hasConfig:
		fmt.Fprintf(os.Stderr, "  # Create a configuration file\n")
		fmt.Fprintf(os.Stderr, "  intlbot init\n\n")
		fmt.Fprintf(os.Stderr, "  # Extract UI strings from sources\n")
		fmt.Fprintf(os.Stderr, "  intlbot extract\n\n")

	case !hasKeys:
		fmt.Fprintf(os.Stderr, "  # Extract UI strings from sources\n")
		fmt.Fprintf(os.Stderr, "  intlbot extract\n\n")

	case needsSync:
		fmt.Fprintf(os.Stderr, "  # Translate missing and updated entries\n")
		fmt.Fprintf(os.Stderr, "  intlbot sync\n\n")
		fmt.Fprintf(os.Stderr, "  # Translate a single language\n")
		fmt.Fprintf(os.Stderr, "  intlbot sync --only es\n\n")

	default:
		fmt.Fprintf(os.Stderr, "  # Review translation quality\n")
		fmt.Fprintf(os.Stderr, "  intlbot check\n\n")
	}
}

// ---------------------------------------------------------------------------
// init (scaffold configuration and dictionary directory)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter .intlbot.yaml configuration",
		Long: `Create a starter configuration file and the dictionary directory.

Detects source directories and existing language dictionaries, then writes
a commented .intlbot.yaml capturing them. Also creates the messages
directory and an empty canonical dictionary if none exists yet.`,
		Run: func(cmd *cobra.Command, args []string) {
			runInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func runInit(force bool) {
	cfgPath := filepath.Join(rootDir, config.FileName)
	if fileExists(cfgPath) && !force {
		logError(i18n.T("%s already exists (use --force to overwrite)"), config.FileName)
		os.Exit(1)
	}

	cfg := config.Detect(rootDir)

	if err := os.WriteFile(cfgPath, config.Template(cfg), 0644); err != nil {
		logError("Writing %s: %v", cfgPath, err)
		os.Exit(1)
	}
	logSuccess(i18n.T("Created %s"), config.FileName)

	msgDir := cfg.MessagesPath(rootDir)
	if err := os.MkdirAll(msgDir, 0755); err != nil {
		logError("Creating %s: %v", msgDir, err)
		os.Exit(1)
	}

	canonPath := cfg.CanonicalPath(rootDir)
	if !fileExists(canonPath) {
		if err := dictionary.New().WriteFile(canonPath); err != nil {
			logError("Creating %s: %v", canonPath, err)
			os.Exit(1)
		}
		logSuccess(i18n.T("Created %s"), canonPath)
	}

	if len(cfg.Languages) > 0 {
		logInfo("Detected languages: %s", strings.Join(cfg.Languages, ", "))
	} else {
		logInfo("Edit %s and list your target languages", config.FileName)
	}
	logInfo("Then run 'intlbot extract' to collect UI strings")
}

// ---------------------------------------------------------------------------
// extract (scan sources, wrap literals, update the canonical dictionary)
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var (
		force  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "extract [paths...]",
		Short: "Extract UI strings from sources into the dictionary",
		Long: `Extract user-facing text from JSX/TSX sources.

Each literal is replaced with a t('key') call and recorded in the
canonical dictionary. Literals already wrapped are left alone; text that
changed since the last run is marked for re-translation. Unchanged files
are skipped using the lock file cache.

Paths given on the command line (files or directories) are scanned
instead of the configured source directories.

Examples:
  # Extract from the configured source directories
  intlbot extract

  # Extract from one directory only
  intlbot extract src/components

  # Rescan everything, ignoring the cache
  intlbot extract --force

  # Show what would change without touching any file
  intlbot extract --dry-run`,
		Run: func(cmd *cobra.Command, args []string) {
			runExtract(args, force, dryRun)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rescan files the cache considers unchanged")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve keys and report, but write nothing")

	return cmd
}

func runExtract(paths []string, force, dryRun bool) {
	cfg := loadProject()

	srcPaths := paths
	if len(srcPaths) == 0 {
		srcPaths = cfg.SourcePaths(rootDir)
	}
	if len(srcPaths) == 0 {
		logError("No source directories found. List them under 'sources' in %s.", config.FileName)
		os.Exit(1)
	}

	canonPath := cfg.CanonicalPath(rootDir)
	canon, err := dictionary.LoadOrEmpty(canonPath)
	if err != nil {
		logError("Reading %s: %v", canonPath, err)
		os.Exit(1)
	}

	lock, err := lockfile.Load(rootDir)
	if err != nil {
		logWarning("Lock file unreadable, rescanning all files: %v", err)
		os.Remove(filepath.Join(rootDir, lockfile.LockFileName))
		lock, _ = lockfile.Load(rootDir)
	}

	logInfo("Scanning for source files in: %s", strings.Join(relPaths(srcPaths), ", "))

	result, err := extract.Run(srcPaths, canon, extract.Options{
		Root:       rootDir,
		Extensions: cfg.Extensions,
		Attributes: cfg.Attributes,
		ImportLine: cfg.ImportLine,
		Lock:       lock,
		Force:      force,
		DryRun:     dryRun,
		OnLog:      logInfo,
		OnError:    logError,
	})
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	logInfo(i18n.T("Scanned %d files, %d unchanged"), result.Scanned, result.Skipped)
	if result.Wrapped > 0 {
		logSuccess(i18n.T("Wrapped %d strings: %d new, %d updated, %d reused"),
			result.Wrapped, result.New, result.Updated, result.Reused)
	} else {
		logInfo(i18n.T("No new strings found"))
	}

	if dryRun {
		logInfo(i18n.T("Dry run, no files were modified"))
		return
	}

	if err := canon.WriteFile(canonPath); err != nil {
		logError("Writing %s: %v", canonPath, err)
		os.Exit(1)
	}
	if err := lock.Save(); err != nil {
		logWarning("Saving %s: %v", lockfile.LockFileName, err)
	}

	total, pending := canon.Stats()
	logInfo(i18n.T("Dictionary: %d keys (%d pending translation)"), total, pending)

	if failed := result.Failed(); len(failed) > 0 {
		logError(i18n.N("%d file failed to rewrite", "%d files failed to rewrite", len(failed)), len(failed))
		os.Exit(1)
	}

	logSuccess(i18n.T("Extraction complete!"))
	if pending > 0 {
		logInfo("Run 'intlbot sync' to translate pending entries")
	}
}

// ---------------------------------------------------------------------------
// sync (translate missing and updated entries)
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	var a oracleArgs

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate missing and updated entries using AI",
		Long: `Translate dictionary entries that are missing or marked for update.

For each target language, entries absent from the language dictionary and
entries whose source text changed are sent to the AI provider. Keys the
canonical dictionary no longer has are pruned, and every language file is
rewritten in canonical key order. An update entry is closed only once
every configured language holds a fresh translation.

Examples:
  # Translate all configured languages
  intlbot sync --provider openai --model gpt-4o-mini

  # Translate a single language
  intlbot sync --only es

  # Show what would be translated without calling the provider
  intlbot sync --dry-run`,
		Run: func(cmd *cobra.Command, args []string) {
			runSync(a)
		},
	}

	addOracleFlags(cmd, &a)

	return cmd
}

// oracleArgs carries the provider and behavior flags shared by sync and check.
type oracleArgs struct {
	only     string
	provider string
	apiKey   string
	model    string
	baseURL  string
	prompt   string

	chunkSize    int
	maxRetries   int
	requestDelay time.Duration
	timeout      time.Duration
	proxy        string

	verbose bool
	dryRun  bool
}

func addOracleFlags(cmd *cobra.Command, a *oracleArgs) {
	// Provider selection
	cmd.Flags().StringVar(&a.provider, "provider", "", "AI provider: openai, openrouter, groq, google, ollama, lmstudio, custom-openai")
	cmd.Flags().StringVar(&a.model, "model", "", "Model name")
	cmd.Flags().StringVar(&a.apiKey, "api-key", "", "API key (or INTLBOT_API_KEY env var)")
	cmd.Flags().StringVar(&a.baseURL, "base-url", "", "Custom API base URL")

	// Target selection
	cmd.Flags().StringVar(&a.only, "only", "", "Languages to process (comma-separated, default: all configured)")

	// Behavior
	cmd.Flags().IntVar(&a.chunkSize, "chunk-size", 0, "Entries per API request (0 = default)")
	cmd.Flags().StringVar(&a.prompt, "prompt", "", "Custom system prompt (use {{targetLang}} placeholder)")
	cmd.Flags().BoolVar(&a.verbose, "verbose", false, "Enable detailed logging")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be processed without calling AI")

	// Network
	cmd.Flags().DurationVar(&a.requestDelay, "request-delay", 0, "Delay between consecutive API calls")
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	cmd.Flags().StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 0, "Maximum retries on rate limit (0 = default)")

	// Provider completion
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"openai\tOpenAI (API key required)",
			"openrouter\tOpenRouter (API key required)",
			"groq\tGroq (API key required)",
			"google\tGoogle AI / Gemini (API key required)",
			"ollama\tOllama local server",
			"lmstudio\tLM Studio local server",
			"custom-openai\tCustom OpenAI-compatible endpoint",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	// Model completion (provider-aware)
	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, _ := cmd.Flags().GetString("provider")
		switch p {
		case "openai":
			return []string{"gpt-4o-mini", "gpt-4o", "gpt-5-mini"}, cobra.ShellCompDirectiveNoFileComp
		case "openrouter":
			return []string{"openai/gpt-4o-mini", "anthropic/claude-sonnet-4.5", "google/gemini-2.5-flash"}, cobra.ShellCompDirectiveNoFileComp
		case "groq":
			return []string{"llama-3.3-70b-versatile", "mixtral-8x7b-32768"}, cobra.ShellCompDirectiveNoFileComp
		case "google":
			return []string{"gemini-2.5-flash", "gemini-2.0-flash-exp", "gemini-1.5-pro"}, cobra.ShellCompDirectiveNoFileComp
		case "ollama":
			return []string{"llama3.2", "qwen2.5", "mistral", "phi3"}, cobra.ShellCompDirectiveNoFileComp
		default:
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	})
}

func runSync(a oracleArgs) {
	cfg, canon, targets := loadOracleProject(a.only)
	prov := buildProvider(cfg, a)
	loadPrompts(a.verbose)

	logInfo(i18n.T("Provider: %s (%s), Model: %s"), prov.Name, prov.ID, prov.Model)
	logInfo(i18n.T("Translating: %s"), strings.Join(targets, ", "))

	if a.dryRun {
		keys := canon.Keys()
		for _, lang := range targets {
			dict, err := dictionary.LoadOrEmpty(cfg.LangPath(rootDir, lang))
			if err != nil {
				logError("Reading %s: %v", cfg.LangPath(rootDir, lang), err)
				continue
			}
			count := 0
			for _, k := range keys {
				e, _ := canon.Get(k)
				if e.Pending || !dict.Has(k) {
					count++
				}
			}
			logInfo("%s (%s): %d strings to translate", lang, langmeta.PromptName(lang), count)
		}
		return
	}

	ctx, cancel, finishBar, onProgress := oracleRun(a.verbose, "Translating")
	defer cancel()

	topts := buildTranslateOptions(cfg, a, prov)
	if topts.SystemPrompt == "" {
		topts.SystemPrompt = cfg.Prompt
	}

	sum, err := syncer.Run(ctx, canon, syncer.Options{
		Dir:        cfg.MessagesPath(rootDir),
		SourceLang: cfg.SourceLanguage,
		Languages:  cfg.Languages,
		Only:       onlyList(a.only),
		Translate:  topts,
		OnProgress: onProgress,
		OnLog:      logInfo,
		OnError:    logError,
	})
	finishBar()

	if err != nil {
		if ctx.Err() != nil {
			logWarning(i18n.T("Sync interrupted, partial progress saved"))
			os.Exit(0)
		}
		logError("%v", err)
		os.Exit(1)
	}

	for _, ls := range sum.Languages {
		switch {
		case ls.Err != nil:
			logError("%s %s: %v", langFlag(ls.Lang), ls.Lang, ls.Err)
		case ls.Failed > 0:
			logWarning("%s %s: %d translated, %d failed", langFlag(ls.Lang), ls.Lang, ls.Translated, ls.Failed)
		case ls.Translated == 0 && ls.Pruned == 0:
			logInfo("%s %s: up to date", langFlag(ls.Lang), ls.Lang)
		default:
			logSuccess("%s %s: %d translated (%d keys total)", langFlag(ls.Lang), ls.Lang, ls.Translated, ls.Total)
		}
	}

	if sum.Pending > 0 {
		logInfo(i18n.T("Pending updates remaining: %d"), sum.Pending)
	}

	if err := sum.FailedErr(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	if sum.Translated == 0 && sum.Pending == 0 {
		logSuccess(i18n.T("All languages are up to date."))
		return
	}
	logSuccess(i18n.T("Sync complete!"))
}

// ---------------------------------------------------------------------------
// check (review existing translations)
// ---------------------------------------------------------------------------

func newCheckCmd() *cobra.Command {
	var a oracleArgs

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Review existing translations using AI",
		Long: `Review existing translations against their canonical source text.

Settled source/translation pairs are sent to the AI provider for review.
Confirmed translations are left alone, corrections are written back to the
language dictionary, and pairs the model could not assess are appended to
the per-language review log for manual inspection. The canonical
dictionary is never modified.

Examples:
  # Review all configured languages
  intlbot check --provider openai --model gpt-4o-mini

  # Review a single language
  intlbot check --only es`,
		Run: func(cmd *cobra.Command, args []string) {
			runCheck(a)
		},
	}

	addOracleFlags(cmd, &a)

	return cmd
}

func runCheck(a oracleArgs) {
	cfg, canon, targets := loadOracleProject(a.only)
	prov := buildProvider(cfg, a)
	loadPrompts(a.verbose)

	logInfo(i18n.T("Provider: %s (%s), Model: %s"), prov.Name, prov.ID, prov.Model)
	logInfo(i18n.T("Reviewing: %s"), strings.Join(targets, ", "))

	if a.dryRun {
		keys := canon.Keys()
		for _, lang := range targets {
			dict, err := dictionary.LoadOrEmpty(cfg.LangPath(rootDir, lang))
			if err != nil {
				logError("Reading %s: %v", cfg.LangPath(rootDir, lang), err)
				continue
			}
			count := 0
			for _, k := range keys {
				e, _ := canon.Get(k)
				if !e.Pending && dict.Has(k) {
					count++
				}
			}
			logInfo("%s (%s): %d translations to review", lang, langmeta.PromptName(lang), count)
		}
		return
	}

	ctx, cancel, finishBar, onProgress := oracleRun(a.verbose, "Reviewing")
	defer cancel()

	rep, err := check.Run(ctx, canon, check.Options{
		Dir:        cfg.MessagesPath(rootDir),
		SourceLang: cfg.SourceLanguage,
		Languages:  cfg.Languages,
		Only:       onlyList(a.only),
		Translate:  buildTranslateOptions(cfg, a, prov),
		OnProgress: onProgress,
		OnLog:      logInfo,
		OnError:    logError,
	})
	finishBar()

	if err != nil {
		if ctx.Err() != nil {
			logWarning(i18n.T("Review interrupted, partial progress saved"))
			os.Exit(0)
		}
		logError("%v", err)
		os.Exit(1)
	}

	logInfo(i18n.T("Reviewed %d pairs: %d corrected, %d flagged"), rep.Reviewed, rep.Corrected, rep.Flagged)
	if rep.Flagged > 0 {
		logWarning(i18n.N("%d translation flagged for manual review", "%d translations flagged for manual review", rep.Flagged), rep.Flagged)
		logInfo("See the *_review.log files in %s", cfg.MessagesPath(rootDir))
	}

	if err := rep.FailedErr(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	logSuccess(i18n.T("Review complete!"))
}

// ---------------------------------------------------------------------------
// Shared sync/check plumbing
// ---------------------------------------------------------------------------

// loadOracleProject loads the configuration and canonical dictionary and
// resolves the target language list, exiting with a hint when a
// prerequisite is missing.
func loadOracleProject(only string) (*config.Config, *dictionary.Dictionary, []string) {
	cfg := loadProject()

	if len(cfg.Languages) == 0 {
		logError("No target languages configured. List them under 'languages' in %s.", config.FileName)
		os.Exit(1)
	}

	canonPath := cfg.CanonicalPath(rootDir)
	if !fileExists(canonPath) {
		logError(i18n.T("No canonical dictionary found at %s"), canonPath)
		logInfo(i18n.T("Run 'intlbot extract' first to create it."))
		os.Exit(1)
	}
	canon, err := dictionary.ParseFile(canonPath)
	if err != nil {
		logError("Reading %s: %v", canonPath, err)
		os.Exit(1)
	}

	targets := cfg.Languages
	if only != "" {
		targets = intersectLanguages(cfg.Languages, strings.Split(only, ","))
		if len(targets) == 0 {
			logError("--only %s matches none of the configured languages (%s)", only, strings.Join(cfg.Languages, ", "))
			os.Exit(1)
		}
	}

	return cfg, canon, targets
}

// loadPrompts loads user-customized system prompts from the data
// directory, creating the editable defaults file on first use.
func loadPrompts(verbose bool) {
	path, err := translate.LoadPromptsFromDefaultLocations()
	if err != nil {
		logWarning("Custom prompts not loaded: %v", err)
		return
	}
	if verbose && path != "" {
		logInfo("Prompts: %s", path)
	}
}

// onlyList splits the --only flag for the engine's language filter.
func onlyList(only string) []string {
	if only == "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(only, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// buildProvider resolves and validates the AI provider from flags, the
// configuration file, and stored credentials.
func buildProvider(cfg *config.Config, a oracleArgs) translate.Provider {
	name := a.provider
	if name == "" {
		name = cfg.Provider
	}

	model := a.model
	if model == "" {
		model = cfg.Model
	}
	baseURL := a.baseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	timeout := a.timeout
	if timeout == 0 && cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	key := settings.ResolveAPIKey(strings.ToLower(name), a.apiKey)

	prov := resolveProvider(name, baseURL, key, model, a.proxy, timeout)
	if err := validateProvider(prov, key); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	return prov
}

// buildTranslateOptions merges flag and configuration values into the
// engine's oracle options. Callbacks are wired by the engine. The system
// prompt comes from the --prompt flag alone: the config-file prompt
// overrides the translation prompt only, and runSync applies it at its
// call site so check keeps the review-format instructions.
func buildTranslateOptions(cfg *config.Config, a oracleArgs, prov translate.Provider) translate.Options {
	chunk := a.chunkSize
	if chunk == 0 {
		chunk = cfg.ChunkSize
	}
	delay := a.requestDelay
	if delay == 0 && cfg.RequestDelay > 0 {
		delay = time.Duration(cfg.RequestDelay) * time.Second
	}
	retries := a.maxRetries
	if retries == 0 {
		retries = cfg.MaxRetries
	}

	return translate.Options{
		Provider:     prov,
		ChunkSize:    chunk,
		RequestDelay: delay,
		MaxRetries:   retries,
		SystemPrompt: a.prompt,
		Verbose:      a.verbose,
	}
}

// oracleRun sets up cancellation on interrupt plus a per-language progress
// bar. In verbose mode chunk progress is logged as plain lines instead so
// the bar does not fight the log output.
func oracleRun(verbose bool, verb string) (context.Context, context.CancelFunc, func(), func(string, int, int)) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, saving progress...")
		cancel()
	}()

	var bar *progressbar.ProgressBar
	var barLang string

	onProgress := func(lang string, done, total int) {
		if verbose {
			logInfo("  %s: %d/%d", lang, done, total)
			return
		}
		if bar == nil || lang != barLang {
			if bar != nil {
				fmt.Fprintln(os.Stderr)
			}
			bar = newChunkBar(verb, lang, total)
			barLang = lang
		}
		_ = bar.Set(done)
		if done >= total {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
			bar = nil
			barLang = ""
		}
	}

	finishBar := func() {
		if bar != nil {
			fmt.Fprintln(os.Stderr)
			bar = nil
		}
	}

	return ctx, cancel, finishBar, onProgress
}

func newChunkBar(verb, lang string, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s %s %s...[reset]", verb, langFlag(lang), lang)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// ---------------------------------------------------------------------------
// auth (credential management)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
		Long: `Manage API keys for AI providers.

API key providers (paste your key):
  openai        OpenAI platform key
  openrouter    OpenRouter key
  groq          Groq Cloud (free tier available)
  google        Google AI Studio (Gemini API key)
  custom-openai Custom OpenAI-compatible endpoint

No auth required:
  ollama        Local Ollama server
  lmstudio      Local LM Studio server

Examples:
  intlbot auth login                       Interactive provider selection
  intlbot auth login --provider openai     Store an OpenAI API key
  intlbot auth logout --provider openai    Remove the OpenAI key
  intlbot auth logout                      Remove all credentials
  intlbot auth list                        Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// allProviders is the ordered list of providers for the interactive menu.
var allProviders = []struct {
	id   string
	name string
	desc string
	auth string // "api-key" or "none"
}{
	{"openai", "OpenAI", "GPT models", "api-key"},
	{"openrouter", "OpenRouter", "many models behind one key", "api-key"},
	{"groq", "Groq Cloud", "fast inference, free tier available", "api-key"},
	{"google", "Google AI Studio", "Gemini API key, free tier available", "api-key"},
	{"custom-openai", "Custom OpenAI", "any OpenAI-compatible endpoint", "api-key"},
	{"ollama", "Ollama", "local server, no auth needed", "none"},
	{"lmstudio", "LM Studio", "local server, no auth needed", "none"},
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for an AI provider",
		Long: `Store an API key for an AI provider.

If --provider is not specified, you will be prompted to choose.

API key providers:
  openai        Paste your OpenAI platform key
  openrouter    Paste your OpenRouter key
  groq          Paste your Groq key
  google        Paste your Google AI Studio key
  custom-openai Paste your API key + endpoint URL`,
		Run: func(cmd *cobra.Command, args []string) {
			// If no provider specified, prompt user
			if provider == "" {
				fmt.Fprintln(os.Stderr, "")
				fmt.Fprintf(os.Stderr, "%sSelect provider to authenticate:%s\n\n", colorBlue, colorReset)
				menuIdx := 0
				for _, p := range allProviders {
					if p.auth == "none" {
						continue
					}
					menuIdx++
					fmt.Fprintf(os.Stderr, "  %d. %s%-13s%s %s\n",
						menuIdx, colorYellow, p.id, colorReset, p.desc)
				}
				fmt.Fprintln(os.Stderr)
				fmt.Fprintf(os.Stderr, "Enter choice (number or name): ")

				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() {
					logError(i18n.T("No input received"))
					os.Exit(1)
				}
				choice := strings.TrimSpace(scanner.Text())

				found := false
				displayIdx := 0
				for _, p := range allProviders {
					if p.auth == "none" {
						continue
					}
					displayIdx++
					if choice == fmt.Sprintf("%d", displayIdx) || choice == p.id {
						provider = p.id
						found = true
						break
					}
				}
				if !found {
					logError("Invalid choice. Use: intlbot auth login --provider PROVIDER")
					os.Exit(1)
				}
			}

			switch provider {
			case "openai", "openrouter", "groq", "google":
				authLoginAPIKey(provider)
			case "custom-openai":
				authLoginCustomOpenAI()
			case "ollama", "lmstudio":
				logInfo("Provider '%s' is a local server and needs no credentials", provider)
			default:
				logError("Unknown provider '%s'. Run 'intlbot auth login' for options.", provider)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to authenticate")
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		completions := make([]string, 0, len(allProviders))
		for _, p := range allProviders {
			if p.auth == "none" {
				continue
			}
			completions = append(completions, fmt.Sprintf("%s\t%s", p.id, p.name))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func authLoginAPIKey(providerID string) {
	// Provider display info
	providerInfo := map[string]struct {
		name    string
		helpURL string
		example string
	}{
		"openai": {
			name:    "OpenAI",
			helpURL: "https://platform.openai.com/api-keys",
			example: "intlbot sync --provider openai --model gpt-4o-mini",
		},
		"openrouter": {
			name:    "OpenRouter",
			helpURL: "https://openrouter.ai/keys",
			example: "intlbot sync --provider openrouter --model openai/gpt-4o-mini",
		},
		"groq": {
			name:    "Groq Cloud",
			helpURL: "https://console.groq.com/keys",
			example: "intlbot sync --provider groq --model llama-3.3-70b-versatile",
		},
		"google": {
			name:    "Google AI Studio",
			helpURL: "https://aistudio.google.com/apikey",
			example: "intlbot sync --provider google --model gemini-2.5-flash",
		},
	}

	info := providerInfo[providerID]

	fmt.Fprintf(os.Stderr, "\n%s%s API Key Setup%s\n", colorBlue, info.name, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	if info.helpURL != "" {
		fmt.Fprintf(os.Stderr, "  Get your API key from: %s%s%s\n\n", colorGreen, info.helpURL, colorReset)
	}

	// Check if already configured
	existing := settings.GetAPIKey(providerID)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key: ")
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		if existing != "" {
			logInfo(i18n.T("Keeping existing key"))
			return
		}
		logError(i18n.T("No API key provided"))
		os.Exit(1)
	}

	if err := settings.SetAPIKey(providerID, key); err != nil {
		logError("Failed to save API key: %v", err)
		os.Exit(1)
	}

	logSuccess("%s API key saved!", info.name)
	fmt.Fprintf(os.Stderr, "\n  You can now use: %s\n\n", info.example)
}

func authLoginCustomOpenAI() {
	fmt.Fprintf(os.Stderr, "\n%sCustom OpenAI-Compatible Endpoint%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	scanner := bufio.NewScanner(os.Stdin)

	// Base URL
	existing := settings.Get("custom-openai")
	if existing != nil && existing.BaseURL != "" {
		fmt.Fprintf(os.Stderr, "  Current endpoint: %s%s%s\n", colorYellow, existing.BaseURL, colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new endpoint URL, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter endpoint URL (e.g., https://api.example.com/v1): ")
	}

	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}
	baseURL := strings.TrimSpace(scanner.Text())

	if baseURL == "" && existing != nil && existing.BaseURL != "" {
		baseURL = existing.BaseURL
	}
	if baseURL == "" {
		logError("Endpoint URL is required")
		os.Exit(1)
	}

	// API key (optional for some endpoints)
	if existing != nil && existing.Key != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing.Key), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new API key, or press Enter to keep (leave empty for none): ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key (or press Enter if not required): ")
	}

	if !scanner.Scan() {
		logError(i18n.T("No input received"))
		os.Exit(1)
	}
	apiKey := strings.TrimSpace(scanner.Text())

	if apiKey == "" && existing != nil {
		apiKey = existing.Key
	}

	if err := settings.SetAPIKeyWithBaseURL("custom-openai", apiKey, baseURL); err != nil {
		logError("Failed to save credentials: %v", err)
		os.Exit(1)
	}

	logSuccess("Custom OpenAI endpoint saved!")
	fmt.Fprintf(os.Stderr, "\n  You can now use: intlbot sync --provider custom-openai --model MODEL_NAME\n\n")
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.

Examples:
  intlbot auth logout                      Remove all credentials
  intlbot auth logout --provider openai    Remove only the OpenAI key
  intlbot auth logout --provider google    Remove only the Google key`,
		Run: func(cmd *cobra.Command, args []string) {
			if provider != "" {
				switch provider {
				case "openai", "openrouter", "groq", "google", "custom-openai":
					if err := settings.Remove(provider); err != nil {
						logError("Failed to remove %s credentials: %v", provider, err)
						os.Exit(1)
					}
					logSuccess("%s credentials removed", provider)
				default:
					logError("Unknown provider '%s'. Run 'intlbot auth list' to see providers.", provider)
					os.Exit(1)
				}
				return
			}

			if err := settings.RemoveAll(); err != nil {
				logError("Failed to remove credentials: %v", err)
				os.Exit(1)
			}
			logSuccess("All stored credentials removed")
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		completions := make([]string, 0, len(allProviders))
		for _, p := range allProviders {
			if p.auth == "none" {
				continue
			}
			completions = append(completions, fmt.Sprintf("%s\t%s", p.id, p.name))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Stored Credentials"), colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			fmt.Fprintf(os.Stderr, "\n  %sAPI Key Providers%s\n", colorYellow, colorReset)
			for _, p := range allProviders {
				if p.auth != "api-key" {
					continue
				}
				entry := settings.Get(p.id)
				if entry != nil && entry.Key != "" {
					status := fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
					if entry.BaseURL != "" {
						status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
					}
					fmt.Fprintf(os.Stderr, "  %-14s %s\n", p.id, status)
				} else if p.id == "custom-openai" && entry != nil && entry.BaseURL != "" {
					// custom-openai may have just a URL, no key
					status := fmt.Sprintf("%sconfigured%s (no key)", colorGreen, colorReset)
					status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
					fmt.Fprintf(os.Stderr, "  %-14s %s\n", p.id, status)
				} else {
					fmt.Fprintf(os.Stderr, "  %-14s %snot configured%s\n", p.id, colorRed, colorReset)
				}
			}

			// Environment variables
			fmt.Fprintf(os.Stderr, "\n  %sEnvironment Variables%s\n", colorYellow, colorReset)
			envKey := os.Getenv("INTLBOT_API_KEY")
			if envKey != "" {
				fmt.Fprintf(os.Stderr, "  INTLBOT_API_KEY: %s%s%s (overrides stored keys)\n", colorGreen, settings.MaskKey(envKey), colorReset)
			} else {
				fmt.Fprintf(os.Stderr, "  INTLBOT_API_KEY: %snot set%s\n", colorRed, colorReset)
			}
			for _, p := range allProviders {
				envVar := settings.EnvVarForProvider(p.id)
				if envVar == "" {
					continue
				}
				if v := os.Getenv(envVar); v != "" {
					fmt.Fprintf(os.Stderr, "  %s: %s%s%s\n", envVar, colorGreen, settings.MaskKey(v), colorReset)
				}
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// loadProject loads .intlbot.yaml, falling back to detection when the
// project has no configuration file yet.
func loadProject() *config.Config {
	cfg, err := config.Load(rootDir)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = config.Detect(rootDir)
	}
	return cfg
}

// relPaths converts absolute paths to root-relative ones for display.
func relPaths(paths []string) []string {
	rels := make([]string, len(paths))
	for i, p := range paths {
		if r, err := filepath.Rel(rootDir, p); err == nil {
			rels[i] = r
		} else {
			rels[i] = p
		}
	}
	return rels
}

// fileExists returns true if the file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// progressBar renders a fixed-width colored bar with a trailing percent.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent * width / 100
	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}

	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset +
		fmt.Sprintf(" %3d%%", percent)
}

// flagFromRegion converts a two-letter region code to its emoji flag.
// Returns "" for anything that is not two ASCII letters.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	r := strings.ToUpper(region)
	a, b := r[0], r[1]
	if a < 'A' || a > 'Z' || b < 'A' || b > 'Z' {
		return ""
	}
	return string(rune(0x1F1E6+rune(a-'A'))) + string(rune(0x1F1E6+rune(b-'A')))
}

// langFlag returns an emoji flag for a language code, falling back to the
// region subtag for codes the registry does not know.
func langFlag(lang string) string {
	if m := langmeta.Resolve(lang); m.Flag != "" {
		return m.Flag
	}
	if i := strings.LastIndexAny(lang, "-_"); i >= 0 {
		return flagFromRegion(lang[i+1:])
	}
	return ""
}

// langColumnWidth returns the widest language code, for table alignment.
func langColumnWidth(langs []string) int {
	w := 0
	for _, l := range langs {
		if len(l) > w {
			w = len(l)
		}
	}
	return w
}

// langCell formats a flag plus left-aligned language code table cell.
func langCell(lang string, width int) string {
	flag := langFlag(lang)
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s", flag, width, lang)
}

// intersectLanguages keeps the filter entries (trimmed) that appear in
// available, preserving the filter's order.
func intersectLanguages(available, filter []string) []string {
	avail := make(map[string]bool, len(available))
	for _, l := range available {
		avail[l] = true
	}

	var out []string
	for _, l := range filter {
		l = strings.TrimSpace(l)
		if avail[l] {
			out = append(out, l)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Provider resolution
// ---------------------------------------------------------------------------

func resolveProvider(name, baseURL, apiKey, model, proxy string, timeout time.Duration) translate.Provider {
	defaults := translate.DefaultProviders()

	var prov translate.Provider

	if p, ok := defaults[strings.ToLower(name)]; ok {
		prov = p
	} else {
		// Unknown names are treated as a custom endpoint URL
		prov = translate.Provider{
			ID:      translate.ProviderCustomOpenAI,
			Name:    name,
			BaseURL: name,
			Timeout: 60 * time.Second,
		}
	}

	if baseURL != "" {
		prov.BaseURL = baseURL
	} else if prov.ID == translate.ProviderCustomOpenAI && prov.BaseURL == "" {
		// Check the credentials store for a saved endpoint
		if storedURL := settings.GetBaseURL(prov.ID); storedURL != "" {
			prov.BaseURL = storedURL
		}
	}
	if apiKey != "" {
		prov.APIKey = apiKey
	}
	if model != "" {
		prov.Model = model
	}
	if proxy != "" {
		prov.Proxy = proxy
	}
	if timeout > 0 {
		prov.Timeout = timeout
	}

	return prov
}

func validateProvider(prov translate.Provider, apiKey string) error {
	// Check if model is specified
	if prov.Model == "" {
		modelExamples := map[string]string{
			translate.ProviderOpenAI:       "gpt-4o-mini, gpt-4o, gpt-5-mini",
			translate.ProviderOpenRouter:   "openai/gpt-4o-mini, anthropic/claude-sonnet-4.5, google/gemini-2.5-flash",
			translate.ProviderGroq:         "llama-3.3-70b-versatile, mixtral-8x7b-32768",
			translate.ProviderGoogle:       "gemini-2.5-flash, gemini-2.0-flash-exp, gemini-1.5-pro",
			translate.ProviderOllama:       "llama3.2, qwen2.5, mistral",
			translate.ProviderLMStudio:     "the model loaded in the LM Studio UI",
			translate.ProviderCustomOpenAI: "gpt-4o, gpt-4o-mini (depends on your endpoint)",
		}

		examples := modelExamples[prov.ID]
		if examples == "" {
			examples = "check provider documentation"
		}

		return fmt.Errorf("--model is required for provider '%s'\n\n"+
			"Example models for %s:\n  %s\n\n"+
			"Usage: --provider %s --model MODEL_NAME",
			prov.ID, prov.Name, examples, prov.ID)
	}

	switch prov.ID {
	case translate.ProviderOpenAI:
		if apiKey == "" {
			return fmt.Errorf("provider 'openai' requires an API key\n\n" +
				"Option 1: Store your API key:\n" +
				"  intlbot auth login --provider openai\n\n" +
				"Option 2: Pass key directly:\n" +
				"  --api-key YOUR_KEY or export INTLBOT_API_KEY=YOUR_KEY\n\n" +
				"Get an API key from: https://platform.openai.com/api-keys")
		}

	case translate.ProviderOpenRouter:
		if apiKey == "" {
			return fmt.Errorf("provider 'openrouter' requires an API key\n\n" +
				"Option 1: Store your API key:\n" +
				"  intlbot auth login --provider openrouter\n\n" +
				"Option 2: Pass key directly:\n" +
				"  --api-key YOUR_KEY or export INTLBOT_API_KEY=YOUR_KEY\n\n" +
				"Get an API key from: https://openrouter.ai/keys")
		}

	case translate.ProviderGroq:
		if apiKey == "" {
			return fmt.Errorf("provider 'groq' requires an API key\n\n" +
				"Option 1: Store your API key:\n" +
				"  intlbot auth login --provider groq\n\n" +
				"Option 2: Pass key directly:\n" +
				"  --api-key YOUR_KEY or export INTLBOT_API_KEY=YOUR_KEY\n\n" +
				"Get a free API key from: https://console.groq.com/keys")
		}

	case translate.ProviderGoogle:
		if apiKey == "" {
			return fmt.Errorf("provider 'google' requires an API key\n\n" +
				"Option 1: Store your API key:\n" +
				"  intlbot auth login --provider google\n\n" +
				"Option 2: Pass key directly:\n" +
				"  --api-key YOUR_KEY or export INTLBOT_API_KEY=YOUR_KEY\n\n" +
				"Get an API key from: https://aistudio.google.com/apikey")
		}

	case translate.ProviderOllama, translate.ProviderLMStudio:
		// Local servers, no credentials needed

	case translate.ProviderCustomOpenAI:
		if prov.BaseURL == "" {
			return fmt.Errorf("provider 'custom-openai' requires an endpoint URL\n\n" +
				"Option 1: Store the endpoint:\n" +
				"  intlbot auth login --provider custom-openai\n\n" +
				"Option 2: Pass it directly:\n" +
				"  --base-url https://api.example.com/v1")
		}
	}

	return nil
}
