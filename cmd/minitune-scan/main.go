// Dev tool: scan the configured music folders and print the resulting
// playlists and derived view.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/minitune/minitune/internal/config"
	"github.com/minitune/minitune/internal/cover"
	"github.com/minitune/minitune/internal/coverart"
	"github.com/minitune/minitune/internal/engine"
	"github.com/minitune/minitune/internal/metacache"
	"github.com/minitune/minitune/internal/settings"
)

func main() {
	verbose := flag.Bool("v", false, "debug logging")
	fresh := flag.Bool("fresh", false, "clear the cache before scanning")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	store, err := settings.NewFileStore()
	if err != nil {
		log.Fatal().Err(err).Msg("settings store init failed")
	}
	log.Info().Str("settings", store.Path()).Msg("using settings file")

	var lookup metacache.LookupFunc
	if cfg.Cover.LookupEnabled {
		norm := cover.NewNormalizer(log, cover.ResizeCompressor{})
		lookup = coverart.NewClient(log, norm).Lookup
	}

	e := engine.New(engine.Config{
		Log:          log,
		Store:        store,
		Lookup:       lookup,
		SaveDebounce: cfg.SaveDebounce(),
		ScanDelay:    cfg.ScanDelay(),
	})
	defer e.Close()

	if *fresh {
		e.ClearCache()
	}
	if len(cfg.MusicFolderPaths) > 0 {
		e.Configure(cfg.MusicFolderPaths)
	}

	sub := e.Subscribe()
	start := time.Now()
	if err := e.RefreshMetadata(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("refresh failed")
	}

	select {
	case done := <-sub.ScanDone:
		log.Info().
			Int("added", done.Stats.Added).
			Int("updated", done.Stats.Updated).
			Int("reused", done.Stats.Reused).
			Int("removed", done.Stats.Removed).
			Dur("elapsed", time.Since(start)).
			Msg("scan done")
	default:
	}

	groups := e.Groups()
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("playlist %q (%d tracks)\n", name, len(groups[name]))
		for _, tr := range groups[name] {
			fmt.Printf("  %s — %s\n", tr.Metadata.Artist, tr.Metadata.Title)
		}
	}

	view := e.View()
	fmt.Printf("\nview (%d tracks):\n", len(view))
	for _, tr := range view {
		coverInfo := "no cover"
		if tr.Metadata.Cover != nil {
			if data, err := tr.Metadata.Cover.Bytes(); err == nil {
				coverInfo = fmt.Sprintf("%s %s", tr.Metadata.Cover.MIMEType, humanize.Bytes(uint64(len(data))))
			}
		}
		fmt.Printf("  %-40s %s\n", tr.Metadata.Title, coverInfo)
	}
}
