package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	defaultCurrency     = "USD"
	defaultCartTimeout  = 10 * time.Second
	defaultCartQuantity = 1
	defaultSessionTTL   = 30 * time.Minute
	defaultSessionSweep = 5 * time.Minute
	envPrefix           = "API_"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Catalog   CatalogConfig
	Cart      CartConfig
	Selection SelectionConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// CatalogConfig carries storefront display settings.
type CatalogConfig struct {
	Currency string
}

// CartConfig points at the external cart platform used for handoff.
type CartConfig struct {
	Endpoint string
	Timeout  time.Duration
	Quantity int
}

// SelectionConfig controls shopper session lifecycle.
type SelectionConfig struct {
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file consulted during loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = strings.TrimSpace(path)
	}
}

// WithEnvMap supplies environment values directly, bypassing the process
// environment. Intended for tests.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
		o.useSystemEnv = false
	}
}

// Load resolves configuration from the environment (and optional .env
// file), applies defaults, and validates required fields.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	values := map[string]string{}
	if options.envFile != "" {
		fileValues, err := readEnvFile(options.envFile)
		if err != nil {
			return Config{}, err
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 || !strings.HasPrefix(parts[0], envPrefix) {
				continue
			}
			values[parts[0]] = parts[1]
		}
	}
	for k, v := range options.envMap {
		values[k] = v
	}

	lookup := func(key string) string {
		return strings.TrimSpace(values[envPrefix+key])
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         withDefault(lookup("SERVER_PORT"), defaultPort),
			ReadTimeout:  parseDuration(lookup("SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: parseDuration(lookup("SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  parseDuration(lookup("SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    lookup("FIRESTORE_PROJECT_ID"),
			EmulatorHost: lookup("FIRESTORE_EMULATOR_HOST"),
		},
		Catalog: CatalogConfig{
			Currency: strings.ToUpper(withDefault(lookup("CATALOG_CURRENCY"), defaultCurrency)),
		},
		Cart: CartConfig{
			Endpoint: lookup("CART_ENDPOINT"),
			Timeout:  parseDuration(lookup("CART_TIMEOUT"), defaultCartTimeout),
			Quantity: parseInt(lookup("CART_QUANTITY"), defaultCartQuantity),
		},
		Selection: SelectionConfig{
			SessionTTL:    parseDuration(lookup("SELECTION_SESSION_TTL"), defaultSessionTTL),
			SweepInterval: parseDuration(lookup("SELECTION_SWEEP_INTERVAL"), defaultSessionSweep),
		},
	}

	var missing []string
	if cfg.Firestore.ProjectID == "" && cfg.Firestore.EmulatorHost == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if _, err := currency.ParseISO(cfg.Catalog.Currency); err != nil {
		missing = append(missing, "Catalog.Currency")
	}
	if cfg.Cart.Quantity <= 0 {
		missing = append(missing, "Cart.Quantity")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, &ValidationError{fields: missing}
	}

	return cfg, nil
}

// readEnvFile parses KEY=VALUE lines; missing files are not an error.
func readEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	values := map[string]string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
