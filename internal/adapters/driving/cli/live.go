package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/logger"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Manage the live document cache",
	Long:  `Update, delete, list or watch the documents being edited in a workspace.`,
}

var liveUpdateCmd = &cobra.Command{
	Use:   "update [workspace-id] [filename]",
	Short: "Replace a live document's contents",
	Long: `Chunk and embed the full text of a document and replace whatever was
cached for it. The text is read from --from, or from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runLiveUpdate,
}

var liveDeleteCmd = &cobra.Command{
	Use:   "delete [workspace-id] [filename]",
	Short: "Remove a live document",
	Args:  cobra.ExactArgs(2),
	RunE:  runLiveDelete,
}

var liveListCmd = &cobra.Command{
	Use:   "list [workspace-id]",
	Short: "List live documents of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runLiveList,
}

var liveWatchCmd = &cobra.Command{
	Use:   "watch [workspace-id] [path]",
	Short: "Keep live documents in sync with files on disk",
	Long: `Watch a file or directory and update the live cache whenever a file
is written. Removed or renamed files are deleted from the cache.
Runs until interrupted.`,
	Args: cobra.ExactArgs(2),
	RunE: runLiveWatch,
}

var liveFrom string

// liveDebounce is how long a file must be quiet before it is re-indexed.
const liveDebounce = 500 * time.Millisecond

func init() {
	liveUpdateCmd.Flags().StringVar(&liveFrom, "from", "", "Read the document from this file instead of stdin")

	liveCmd.AddCommand(liveUpdateCmd)
	liveCmd.AddCommand(liveDeleteCmd)
	liveCmd.AddCommand(liveListCmd)
	liveCmd.AddCommand(liveWatchCmd)
	rootCmd.AddCommand(liveCmd)
}

func runLiveUpdate(cmd *cobra.Command, args []string) error {
	if liveService == nil {
		return errNotConfigured("live document")
	}

	var (
		data []byte
		err  error
	)
	if liveFrom != "" {
		data, err = os.ReadFile(liveFrom)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	workspaceID, filename := args[0], args[1]
	n, err := liveService.UpdateDocument(commandContext(cmd), workspaceID, filename, string(data))
	if err != nil {
		return fmt.Errorf("failed to update live document: %w", err)
	}

	cmd.Printf("Updated %s/%s: %d chunks\n", workspaceID, filename, n)
	return nil
}

func runLiveDelete(cmd *cobra.Command, args []string) error {
	if liveService == nil {
		return errNotConfigured("live document")
	}

	workspaceID, filename := args[0], args[1]
	if err := liveService.Delete(commandContext(cmd), domain.LiveDocKey(workspaceID, filename)); err != nil {
		return fmt.Errorf("failed to delete live document: %w", err)
	}

	cmd.Printf("Deleted %s/%s\n", workspaceID, filename)
	return nil
}

func runLiveList(cmd *cobra.Command, args []string) error {
	if liveService == nil {
		return errNotConfigured("live document")
	}

	files, err := liveService.ListFiles(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to list live documents: %w", err)
	}

	if len(files) == 0 {
		cmd.Printf("No live documents in workspace: %s\n", args[0])
		return nil
	}

	for _, f := range files {
		cmd.Printf("  %s\n", f)
	}
	cmd.Printf("\nTotal: %d documents\n", len(files))
	return nil
}

func runLiveWatch(cmd *cobra.Command, args []string) error {
	if liveService == nil {
		return errNotConfigured("live document")
	}

	workspaceID, path := args[0], args[1]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	w, err := newLiveWatcher(liveService, workspaceID)
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck // best effort on shutdown

	if err := w.Add(path); err != nil {
		return err
	}

	// Index what is already there before waiting for changes.
	ctx := commandContext(cmd)
	for _, f := range initialFiles(path, info) {
		w.sync(ctx, f)
	}

	cmd.Printf("Watching %s for workspace %s (Ctrl+C to stop)\n", path, workspaceID)
	return w.Run(ctx)
}

// initialFiles lists the regular files directly under path, or path itself.
func initialFiles(path string, info os.FileInfo) []string {
	if !info.IsDir() {
		return []string{path}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	return files
}

// liveWatcher re-indexes files into the live cache as they change.
// Rapid successive writes to the same file are collapsed into one update.
type liveWatcher struct {
	service     driving.LiveDocService
	workspaceID string
	watcher     *fsnotify.Watcher
	debounce    time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
}

func newLiveWatcher(service driving.LiveDocService, workspaceID string) (*liveWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &liveWatcher{
		service:     service,
		workspaceID: workspaceID,
		watcher:     watcher,
		debounce:    liveDebounce,
		pending:     make(map[string]time.Time),
	}, nil
}

// Add starts watching path.
func (w *liveWatcher) Add(path string) error {
	if err := w.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return nil
}

// Close stops the underlying watcher.
func (w *liveWatcher) Close() error {
	return w.watcher.Close()
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *liveWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.debounce / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *liveWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()
		w.remove(ctx, event.Name)
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.mu.Lock()
		w.pending[event.Name] = time.Now()
		w.mu.Unlock()
	}
}

// flush syncs every pending file that has been quiet for the debounce period.
func (w *liveWatcher) flush(ctx context.Context, now time.Time) {
	w.mu.Lock()
	var ready []string
	for name, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, name)
			delete(w.pending, name)
		}
	}
	w.mu.Unlock()

	for _, name := range ready {
		w.sync(ctx, name)
	}
}

func (w *liveWatcher) sync(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("read %s: %v", path, err)
		return
	}

	filename := filepath.Base(path)
	n, err := w.service.UpdateDocument(ctx, w.workspaceID, filename, string(data))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("update %s: %v", filename, err)
		}
		return
	}
	logger.Info("updated %s (%d chunks)", filename, n)
}

func (w *liveWatcher) remove(ctx context.Context, path string) {
	filename := filepath.Base(path)
	if err := w.service.Delete(ctx, domain.LiveDocKey(w.workspaceID, filename)); err != nil {
		logger.Error("delete %s: %v", filename, err)
		return
	}
	logger.Info("deleted %s", filename)
}
