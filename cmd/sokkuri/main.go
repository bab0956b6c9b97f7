// Package main is the Sokkuri CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/config"
	"github.com/sokkuri/sokkuri/internal/embedding"
	"github.com/sokkuri/sokkuri/internal/feature"
	"github.com/sokkuri/sokkuri/internal/fileid"
	"github.com/sokkuri/sokkuri/internal/imaging"
	"github.com/sokkuri/sokkuri/internal/indexer"
	"github.com/sokkuri/sokkuri/internal/keyword"
	"github.com/sokkuri/sokkuri/internal/search"
	"github.com/sokkuri/sokkuri/internal/server"
	"github.com/sokkuri/sokkuri/internal/similarity"
	"github.com/sokkuri/sokkuri/internal/watcher"
	"github.com/sokkuri/sokkuri/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/sokkuri/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "sokkuri server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "delete":
		runDelete()
	case "clear":
		runClear()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("sokkuri version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (watch events, per-file indexing, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	idx := components.Indexer
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if err := idx.IndexFile(context.Background(), path); err != nil {
				logger.Warn("watch index file failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := idx.Remove(context.Background(), path); err != nil {
				logger.Warn("watch remove by path failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Service,
		components.Indexer,
		components.Store,
		cfg,
		logger,
	)
	srv.EnableWatch(watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: sokkuri search [flags] <image-file>\n\n")
	fmt.Fprintf(fs.Output(), "Ranks the catalog by visual similarity to the query image. Use --id to\n")
	fmt.Fprintf(fs.Output(), "query by an already-indexed record instead of a file.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  sokkuri search photo.jpg
  sokkuri search --top-k 5 photo.jpg
  sokkuri search --breakdown photo.jpg           # per-segment sub-scores
  sokkuri search --id img:3f2a...                # query by catalog record
  sokkuri search --name "sunset"                 # filename keyword search
`)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of results (0 = configured default)")
	queryID := fs.String("id", "", "query by indexed record ID instead of an image file")
	nameQuery := fs.String("name", "", "filename keyword search instead of visual similarity")
	breakdown := fs.Bool("breakdown", false, "include per-segment sub-scores")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(os.Args[2:])

	if *nameQuery != "" {
		runNameSearch(*configPath, *serverURL, *nameQuery, *topK, *outputFormat)
		return
	}

	imagePath := ""
	if *queryID == "" {
		if fs.NArg() < 1 {
			printSearchUsage(fs)
			os.Exit(1)
		}
		imagePath = fs.Arg(0)
	}

	var response *search.Response
	var err error
	if *serverURL != "" {
		// Use HTTP API when server is running (avoids SQLite/Bleve lock conflict).
		response, err = searchViaHTTP(*serverURL, imagePath, *queryID, *topK, *breakdown)
	} else {
		response, err = searchDirect(*configPath, imagePath, *queryID, *topK, *breakdown)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	writeSearchResults(response, *outputFormat)
}

func searchDirect(configPath, imagePath, queryID string, topK int, breakdown bool) (*search.Response, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	ctx := context.Background()
	opts := search.Options{TopK: topK, IncludeBreakdown: breakdown}
	if queryID != "" {
		return components.Service.SearchByID(ctx, queryID, opts)
	}
	img, err := imaging.DecodeFile(imagePath)
	if err != nil {
		return nil, err
	}
	return components.Service.Search(ctx, img, opts)
}

func searchViaHTTP(serverURL, imagePath, queryID string, topK int, breakdown bool) (*search.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return nil, err
		}
		part, err := mw.CreateFormFile("image", filepath.Base(imagePath))
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	} else {
		_ = mw.WriteField("id", queryID)
	}
	if topK > 0 {
		_ = mw.WriteField("top_k", strconv.Itoa(topK))
	}
	if breakdown {
		_ = mw.WriteField("breakdown", "true")
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := http.Post(serverURL+"/api/v1/search", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response search.Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func writeSearchResults(response *search.Response, format string) {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		if len(response.Results) == 0 {
			fmt.Println("No results.")
			return
		}
		for _, res := range response.Results {
			name := res.Record.SourceName
			if name == "" {
				name = res.Record.ID
			}
			fmt.Printf("%3d. %.4f  %s\n", res.Rank, res.Score, name)
			if res.Record.ImageRef != "" && res.Record.ImageRef != name {
				fmt.Printf("     %s\n", res.Record.ImageRef)
			}
			if res.Breakdown != nil {
				fmt.Printf("     embedding=%.4f color=%.4f pattern=%.4f adjust=%+.4f\n",
					res.Breakdown.Embedding, res.Breakdown.Color, res.Breakdown.Pattern, res.Breakdown.Adjustment)
			}
		}
		fmt.Printf("\n%d result(s), scanned %d, skipped %d, %dms\n",
			response.Total, response.Scanned, response.Skipped, response.QueryTimeMs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", format)
		os.Exit(1)
	}
}

func runNameSearch(configPath, serverURL, query string, limit int, format string) {
	type nameResponse struct {
		Results []*search.Result `json:"results"`
		Total   int              `json:"total"`
	}
	var out nameResponse
	if serverURL != "" {
		u := serverURL + "/api/v1/search/name?q=" + url.QueryEscape(query)
		if limit > 0 {
			u += "&limit=" + strconv.Itoa(limit)
		}
		resp, err := http.Get(u)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Search failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		results, err := components.Service.SearchByName(context.Background(), query, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		out = nameResponse{Results: results, Total: len(results)}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	case "text":
		if len(out.Results) == 0 {
			fmt.Println("No results.")
			return
		}
		for _, res := range out.Results {
			fmt.Printf("%3d. %.4f  %s\n", res.Rank, res.Score, res.Record.SourceName)
			if res.Record.ImageRef != "" {
				fmt.Printf("     %s\n", res.Record.ImageRef)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", format)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Images int64                  `json:"images"`
	Config map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		count, err := components.Service.Count(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count images failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Images: count,
			Config: map[string]interface{}{
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"layout_version":       cfg.Search.LayoutVersion,
				"top_k":                cfg.Search.TopK,
				"model_path":           cfg.Embedding.ModelPath,
				"database_path":        cfg.Storage.DatabasePath,
				"name_index_path":      cfg.Storage.NameIndexPath,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("images:  %d   # count of indexed images\n", status.Images)
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"embedding_dimensions", "layout_version", "top_k", "model_path", "database_path", "name_index_path"} {
				if v, ok := status.Config[key]; ok && v != "" {
					fmt.Printf("%-21s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: sokkuri index [flags] <image-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		summary, err := components.Indexer.IndexDirectory(ctx, path)
		if err != nil {
			fmt.Printf("Indexing directory failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d image(s) from %s (%d unchanged, %d failed)\n",
			summary.Indexed, path, summary.Skipped, summary.Failed)
		return
	}
	if err := components.Indexer.IndexFile(ctx, path); err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	absPath, _ := filepath.Abs(path)
	fmt.Printf("Image indexed successfully: %s\n", fileid.ImageID(absPath))
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: sokkuri delete [flags] <image-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Service.Delete(context.Background(), id); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Image deleted: %s\n", id)
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("Remove all indexed images? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Service.Clear(context.Background()); err != nil {
		fmt.Printf("Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Catalog cleared.")
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: sokkuri watch <add|remove|list> [path]")
		fmt.Println("  sokkuri watch add <path>     Add directory to watch")
		fmt.Println("  sokkuri watch remove <path>  Remove directory from watch")
		fmt.Println("  sokkuri watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: sokkuri watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: sokkuri watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store     catalog.Store
	Provider  embedding.Provider
	NameIndex keyword.Index
	Service   *search.Service
	Indexer   *indexer.Indexer
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
	if c.NameIndex != nil {
		_ = c.NameIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := catalog.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	provider := buildProvider(cfg, logger)

	nameIndex, err := keyword.NewBleveIndex(cfg.Storage.NameIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize name index: %w", err)
	}

	composer := feature.NewComposer(
		feature.LayoutVersion(cfg.Search.LayoutVersion),
		provider.Dimensions(),
		cfg.Extractors,
	)
	engine := similarity.NewEngine(&cfg.Similarity)

	rankerOpts := []search.RankerOption{}
	if debug && logger != nil {
		rankerOpts = append(rankerOpts, search.WithLogger(logger))
	}
	ranker := search.NewRanker(engine, rankerOpts...)

	svcOpts := []search.ServiceOption{search.WithNameIndex(nameIndex)}
	if debug && logger != nil {
		svcOpts = append(svcOpts, search.WithServiceLogger(logger))
	}
	service := search.NewService(provider, composer, store, ranker, &cfg.Search, svcOpts...)

	idxOpts := []indexer.Option{indexer.WithGroupSize(cfg.Search.IndexGroupSize)}
	if debug && logger != nil {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.New(service, store, cfg.Watch.Extensions, idxOpts...)

	return &Components{
		Store:     store,
		Provider:  provider,
		NameIndex: nameIndex,
		Service:   service,
		Indexer:   idx,
	}, nil
}

// buildProvider selects the embedding provider. An empty model path selects
// the deterministic mock (development mode); an alternate model path is tried
// with a bounded wait and the primary is kept on timeout or failure.
func buildProvider(cfg *config.Config, logger *zap.Logger) embedding.Provider {
	var primary embedding.Provider
	if cfg.Embedding.ModelPath != "" {
		onnx, err := embedding.NewONNXProvider(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.InputSize,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			if logger != nil {
				logger.Warn("model load failed, using mock provider", zap.String("path", cfg.Embedding.ModelPath), zap.Error(err))
			}
			primary = embedding.NewMockProvider(cfg.Embedding.Dimensions)
		} else {
			primary = onnx
		}
	} else {
		primary = embedding.NewMockProvider(cfg.Embedding.Dimensions)
	}

	if cfg.Embedding.AlternateModelPath == "" {
		return primary
	}
	wait := time.Duration(cfg.Embedding.LoadTimeoutSeconds) * time.Second
	return embedding.LoadWithFallback(func() (embedding.Provider, error) {
		return embedding.NewONNXProvider(
			cfg.Embedding.AlternateModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.InputSize,
			cfg.Embedding.CacheSize,
		)
	}, primary, wait, logger)
}

func printUsage() {
	fmt.Println(`sokkuri - Local image similarity search

Usage:
  sokkuri server [flags]            Start the HTTP server
  sokkuri search [flags] <image>    Find visually similar images
  sokkuri index [flags] <path>      Index an image or directory
  sokkuri delete [flags] <id>       Delete an indexed image
  sokkuri clear [flags]             Remove all indexed images
  sokkuri status [flags]            Show catalog status
  sokkuri watch <add|remove|list>   Manage watched directories
  sokkuri version                   Show version
  sokkuri help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/sokkuri/config.yaml)
  --debug            Enable debug logging (watch events, per-file indexing, etc.)

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to use direct storage when server is not running.
  --top-k int        Number of results (default from config)
  --id string        Query by indexed record ID instead of an image file
  --name string      Filename keyword search instead of visual similarity
  --breakdown        Include per-segment sub-scores
  --output string    Output format: text or json (default: text)

Examples:
  sokkuri server
  sokkuri index ~/Pictures
  sokkuri search photo.jpg
  sokkuri search --breakdown --top-k 5 photo.jpg
  sokkuri search --name "sunset"
  sokkuri delete img:3f2a...
  sokkuri status --output json
  sokkuri watch add ~/Pictures`)
}
