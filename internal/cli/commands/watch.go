package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the QA/QC scan when source files change",
		Long: `Run the full pipeline once, then keep watching the sources directory
and re-run whenever a matching TSV file or the vocabulary changes.
Changes are debounced so a batch of file writes triggers one run.

Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Delay between a change and the re-run")
	cmd.Flags().Bool("fail-fast", false, "Stop each scan at the first source that fails")
	return cmd
}

func runWatch(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	debounce, _ := cmd.Flags().GetDuration("debounce")
	failFast, _ := cmd.Flags().GetBool("fail-fast")
	opts := runOptions{
		save:       true,
		writeFiles: true,
		failFast:   failFast || cmdCtx.Cfg.FailFast,
	}

	runOnce := func() {
		if err := executeRun(cmd, cmdCtx, opts); err != nil {
			cmdCtx.Renderer.Error("run failed: %v", err)
		}
	}
	runOnce()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchSourceDirs(watcher, cmdCtx); err != nil {
		return err
	}
	cmdCtx.Renderer.Dim("Watching %s for changes...", cmdCtx.Cfg.SourcesDir)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-fire:
			runOnce()
			// New remapped directories may have appeared.
			if err := watchSourceDirs(watcher, cmdCtx); err != nil {
				cmdCtx.Logger.Warn("failed to refresh watches", slog.String("error", err.Error()))
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if relevantChange(cmdCtx, event) {
				cmdCtx.Logger.Debug("source change",
					slog.String("path", event.Name),
					slog.String("op", event.Op.String()))
				schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Renderer.Warning("watch error: %v", err)
		}
	}
}

// watchSourceDirs (re)watches the sources base directory and every
// matching remapped directory under it. Adding an already-watched path is
// a no-op for fsnotify.
func watchSourceDirs(watcher *fsnotify.Watcher, cmdCtx *CommandContext) error {
	cfg := cmdCtx.Cfg
	if err := watcher.Add(cfg.SourcesDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.SourcesDir, err)
	}

	dirs, err := filepath.Glob(filepath.Join(cfg.SourcesDir, cfg.DirPattern))
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return nil
}

// relevantChange filters watcher events down to the files a run reads.
func relevantChange(cmdCtx *CommandContext, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Name == cmdCtx.Cfg.Vocabulary {
		return true
	}
	if strings.HasSuffix(event.Name, ".tsv") {
		return true
	}
	// A new remapped directory appearing under the base dir.
	if event.Op&fsnotify.Create != 0 {
		if ok, _ := filepath.Match(cmdCtx.Cfg.DirPattern, filepath.Base(event.Name)); ok {
			return true
		}
	}
	return false
}
