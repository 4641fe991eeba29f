package pricing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Overrides is the on-disk shape of a pricing override file. Entries
// replace or extend the builtin tables; absent models keep builtin rates.
type Overrides struct {
	Text  map[string]TokenPricing `json:"text" mapstructure:"text"`
	Audio map[string]AudioPricing `json:"audio" mapstructure:"audio"`
}

// LoadOverrides reads an override file (JSON or YAML by extension) and
// applies it to the table.
func (t *Table) LoadOverrides(path string) error {
	if path == "" {
		return fmt.Errorf("override path cannot be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to stat override file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read override file: %w", err)
	}

	var o Overrides
	if err := v.Unmarshal(&o); err != nil {
		return fmt.Errorf("failed to unmarshal overrides: %w", err)
	}

	t.apply(o)

	log.Info().
		Str("path", path).
		Int("text_models", len(o.Text)).
		Int("audio_models", len(o.Audio)).
		Msg("Pricing overrides applied")

	return nil
}

func (t *Table) apply(o Overrides) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for model, p := range o.Text {
		if p.Input < 0 || p.Output < 0 {
			log.Warn().Str("model", model).Msg("Ignoring negative text pricing override")
			continue
		}
		t.text[model] = p
	}
	for model, p := range o.Audio {
		if p.PerMinute < 0 || p.InputToken < 0 || p.OutputToken < 0 {
			log.Warn().Str("model", model).Msg("Ignoring negative audio pricing override")
			continue
		}
		t.audio[model] = p
	}
}

// Watch re-applies the override file whenever it changes on disk. The
// returned stop function closes the watcher; it is safe to call once.
func (t *Table) Watch(path string) (func(), error) {
	if err := t.LoadOverrides(path); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create pricing watcher: %w", err)
	}

	// Watch the directory: editors replace files, which drops the watch
	// on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch pricing directory: %w", err)
	}

	go func() {
		target := filepath.Clean(path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := t.LoadOverrides(path); err != nil {
					log.Error().Err(err).Str("path", path).Msg("Failed to reload pricing overrides")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("Pricing watcher error")
			}
		}
	}()

	return func() {
		if err := watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close pricing watcher")
		}
	}, nil
}
