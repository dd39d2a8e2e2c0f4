package fabrikconfig

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoaderOptions controls Load's behavior.
type LoaderOptions struct {
	// Path to the YAML config file.
	Path string
	// EnvFile is an optional .env file loaded before the config file, so
	// its values are visible to ${env.NAME} expansion. Defaults to ".env".
	EnvFile string
	// Watch, when true, starts a background fsnotify watch on Path and
	// invokes OnChange with the freshly reloaded Config on every write.
	Watch    bool
	OnChange func(*Config)
}

// Loader owns the koanf instance and, when watching, the fsnotify watcher
// goroutine's lifetime.
type Loader struct {
	k       *koanf.Koanf
	opts    LoaderOptions
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// Load reads, parses, and validates the config file at opts.Path,
// returning a fully defaulted Config.
func Load(opts LoaderOptions) (*Config, error) {
	cfg, _, err := LoadWithLoader(opts)
	return cfg, err
}

// LoadWithLoader is Load plus the Loader, needed when opts.Watch is set so
// the caller can Stop() the watch goroutine on shutdown.
func LoadWithLoader(opts LoaderOptions) (*Config, *Loader, error) {
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("fabrikconfig: path is required")
	}
	if opts.EnvFile == "" {
		opts.EnvFile = ".env"
	}

	if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("fabrikconfig: load %s: %w", opts.EnvFile, err)
	}

	l := &Loader{k: koanf.New("."), opts: opts, stop: make(chan struct{})}

	cfg, err := l.load()
	if err != nil {
		return nil, nil, err
	}

	if opts.Watch {
		if err := l.startWatch(); err != nil {
			return nil, nil, fmt.Errorf("fabrikconfig: start watch: %w", err)
		}
	}

	return cfg, l, nil
}

func (l *Loader) load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(l.opts.Path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("fabrikconfig: load %s: %w", l.opts.Path, err)
	}

	expanded := expandEnvVarsInData(k.Raw())
	expandedMap, ok := expanded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("fabrikconfig: unexpected type after env expansion")
	}

	k = koanf.New(".")
	if err := k.Load(confmap.Provider(expandedMap, "."), nil); err != nil {
		return nil, fmt.Errorf("fabrikconfig: load expanded config: %w", err)
	}
	l.k = k

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("fabrikconfig: unmarshal: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) startWatch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(l.opts.Path); err != nil {
		watcher.Close()
		return err
	}
	l.watcher = watcher

	go func() {
		for {
			select {
			case <-l.stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := l.load()
				if err != nil {
					continue
				}
				if l.opts.OnChange != nil {
					l.opts.OnChange(cfg)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Stop ends the background watch, if one was started.
func (l *Loader) Stop() {
	close(l.stop)
	if l.watcher != nil {
		l.watcher.Close()
	}
}
