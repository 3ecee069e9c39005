package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"callqa/internal/adapter"
	"callqa/internal/graphiti"
	"callqa/internal/health"
	"callqa/internal/metrics"
	"callqa/internal/qa"
	"callqa/pkg/config"
	"callqa/pkg/logger"
)

const graphBrowserURL = "http://localhost:7474"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		fmt.Fprintln(os.Stderr, "💡 Please check your .env file and ensure all required variables are set.")
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Environment: cfg.Env,
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting call Q&A console...")
	cfg.LogSummary(log)

	ctx := context.Background()

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		fmt.Println("❌ Cannot reach Neo4j. Ensure it is running and credentials are correct.")
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	llm := adapter.NewLLMAdapter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelID)
	graph := graphiti.NewClient(driver, graphiti.NewLLMExtractor(llm))

	fmt.Println("🔄 Building graph indices and constraints...")
	if err := graph.BuildIndicesAndConstraints(ctx); err != nil {
		log.Fatal("Failed to build graph indices", zap.Error(err))
	}

	store, err := metrics.Open(cfg.MetricsDBPath)
	if err != nil {
		log.Fatal("Failed to open metrics store", zap.Error(err))
	}

	app := &consoleApp{
		cfg:       cfg,
		service:   qa.NewService(graph, llm, metrics.NewMonitor(store)),
		analytics: metrics.NewAnalytics(store),
		checker:   health.NewChecker(graph, store),
		in:        bufio.NewScanner(os.Stdin),
		log:       log,
	}

	fmt.Println("✅ Knowledge graph client ready!")
	app.run(ctx)

	// Graceful close: graph connection, metrics store, log sink.
	if err := graph.Close(ctx); err != nil {
		log.Error("Failed to close graph connection", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		log.Error("Failed to close metrics store", zap.Error(err))
	}
	log.Info("Console exited")
}

type consoleApp struct {
	cfg       *config.Config
	service   *qa.Service
	analytics *metrics.Analytics
	checker   *health.Checker
	in        *bufio.Scanner
	log       *zap.Logger
}

func (a *consoleApp) run(ctx context.Context) {
	for {
		fmt.Println("\n══════════════════════════════════════════════════════════")
		fmt.Println("🧠 CALL Q&A — TEMPORAL KNOWLEDGE GRAPH")
		fmt.Println("══════════════════════════════════════════════════════════")
		fmt.Println("1. 📤 Upload Call Data")
		fmt.Println("2. 🤖 Ask Questions about Call Data")
		fmt.Println("3. 📊 Performance Report")
		fmt.Println("4. 💡 Usage Insights")
		fmt.Println("5. 🏥 System Health")
		fmt.Println("6. 🌐 Open Graph Browser")
		fmt.Println("7. 🚪 Exit")

		choice, ok := a.prompt("🎯 Enter your choice (1-7): ")
		if !ok {
			fmt.Println("\n👋 Goodbye!")
			return
		}
		if err := qa.ValidateChoice(choice, []string{"1", "2", "3", "4", "5", "6", "7"}); err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}

		switch choice {
		case "1":
			a.uploadMenu(ctx)
		case "2":
			a.askQuestion(ctx)
		case "3":
			fmt.Println(qa.FormatPerformanceReport(a.analytics.PerformanceReport(ctx)))
		case "4":
			fmt.Println(qa.FormatUsageInsights(a.analytics.UsageInsights(ctx)))
		case "5":
			fmt.Println(qa.FormatHealthReport(a.checker.Check(ctx)))
		case "6":
			a.openGraphBrowser()
		case "7":
			fmt.Println("\n👋 Thank you for using Call Q&A!")
			fmt.Println("📊 Your knowledge graph data is preserved in Neo4j.")
			return
		}
	}
}

func (a *consoleApp) uploadMenu(ctx context.Context) {
	fmt.Println("\n══════════════════════════════════════════════════")
	fmt.Println("📤 UPLOAD CALL DATA")
	fmt.Println("══════════════════════════════════════════════════")
	fmt.Println("1. Enter text directly")
	fmt.Println("2. Upload single file")
	fmt.Println("3. Batch upload multiple files")
	fmt.Println("4. Return to main menu")

	choice, ok := a.prompt("Enter your choice (1-4): ")
	if !ok {
		return
	}
	if err := qa.ValidateChoice(choice, []string{"1", "2", "3", "4"}); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	switch choice {
	case "1":
		a.uploadDirectText(ctx)
	case "2":
		a.uploadSingleFile(ctx)
	case "3":
		a.uploadBatch(ctx)
	}
}

func (a *consoleApp) uploadDirectText(ctx context.Context) {
	fmt.Println("\n📝 Enter call transcript/summary below.")
	fmt.Println("💡 Type 'END' on a new line to finish.")
	fmt.Println("💡 Type 'CANCEL' to cancel and return.")
	fmt.Println("────────────────────────────────────────")

	var lines []string
	for a.in.Scan() {
		line := a.in.Text()
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "END":
			a.submitText(ctx, strings.Join(lines, "\n"))
			return
		case "CANCEL":
			fmt.Println("❌ Upload cancelled.")
			return
		}
		lines = append(lines, line)
	}
	fmt.Println("❌ Upload cancelled.")
}

func (a *consoleApp) submitText(ctx context.Context, content string) {
	receipt, err := a.service.UploadText(ctx, content)
	if err != nil {
		fmt.Printf("❌ Upload failed: %v\n", err)
		return
	}
	fmt.Println(qa.FormatUploadReceipt(receipt))
}

func (a *consoleApp) uploadSingleFile(ctx context.Context) {
	path, ok := a.prompt("📁 Enter the path to the call data file: ")
	if !ok {
		return
	}
	receipt, err := a.service.UploadFile(ctx, path, "")
	if err != nil {
		fmt.Printf("❌ Upload failed: %v\n", err)
		return
	}
	fmt.Println(qa.FormatUploadReceipt(receipt))
}

func (a *consoleApp) uploadBatch(ctx context.Context) {
	fmt.Println("\n📁 Batch File Upload")
	fmt.Println("💡 Examples:")
	fmt.Println("  - *.txt (all .txt files in current directory)")
	fmt.Println("  - call*.txt (files starting with 'call', ending '.txt')")
	fmt.Println("  - /path/to/files/*.html (all .html exports in a directory)")

	pattern, ok := a.prompt("🔍 Enter file pattern: ")
	if !ok {
		return
	}
	receipt, err := a.service.UploadGlob(ctx, pattern)
	if err != nil {
		fmt.Printf("❌ Batch upload failed: %v\n", err)
		return
	}
	fmt.Println(qa.FormatBatchReceipt(receipt))
}

func (a *consoleApp) askQuestion(ctx context.Context) {
	fmt.Println("\n══════════════════════════════════════════════════")
	fmt.Println("🤖 ASK QUESTIONS ABOUT YOUR CALL DATA")
	fmt.Println("══════════════════════════════════════════════════")
	fmt.Println("💡 Filters: prefix with 'source:<name>' or 'days:<n>'")
	fmt.Println("   Example: source:call1 what did the customer order?")

	raw, ok := a.prompt("❓ Enter your question (or 'back'): ")
	if !ok {
		return
	}
	if q := strings.ToLower(raw); q == "" || q == "back" || q == "exit" || q == "menu" {
		fmt.Println("📋 Returning to main menu...")
		return
	}

	query, opts := parseAskInput(raw, a.cfg)
	fmt.Printf("🔍 Searching for: %q...\n", query)

	result, err := a.service.Ask(ctx, query, opts)
	if err != nil {
		fmt.Printf("❌ Search failed: %v\n", err)
		return
	}
	fmt.Println(qa.FormatSearchResults(result))
}

// parseAskInput splits filter prefixes off a question. "source:call1" and
// "days:7" may appear anywhere; whatever remains is the query.
func parseAskInput(raw string, cfg *config.Config) (string, qa.AskOptions) {
	opts := qa.AskOptions{
		NumResults: cfg.SearchLimit,
		Synthesize: cfg.SynthesizeAnswers,
	}

	var queryWords []string
	for _, word := range strings.Fields(raw) {
		lower := strings.ToLower(word)
		switch {
		case strings.HasPrefix(lower, "source:"):
			opts.SourceFilter = word[len("source:"):]
		case strings.HasPrefix(lower, "days:"):
			if n, err := strconv.Atoi(word[len("days:"):]); err == nil && n > 0 {
				opts.DaysBack = n
			}
		default:
			queryWords = append(queryWords, word)
		}
	}
	return strings.Join(queryWords, " "), opts
}

func (a *consoleApp) openGraphBrowser() {
	fmt.Println("🌐 Opening Neo4j Browser...")
	fmt.Printf("📍 URL: %s\n", graphBrowserURL)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", graphBrowserURL)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", graphBrowserURL)
	default:
		cmd = exec.Command("xdg-open", graphBrowserURL)
	}
	if err := cmd.Start(); err != nil {
		a.log.Debug("could not launch browser", zap.Error(err))
		fmt.Println("💡 Could not launch a browser; open the URL manually.")
	}
}

// prompt prints the label and reads one trimmed line. ok is false on EOF.
func (a *consoleApp) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}
