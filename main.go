package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lookbusy1344/dex-analyzer/api"
	"github.com/lookbusy1344/dex-analyzer/browser"
	"github.com/lookbusy1344/dex-analyzer/config"
	"github.com/lookbusy1344/dex-analyzer/disasm"
	"github.com/lookbusy1344/dex-analyzer/loader"
	"github.com/lookbusy1344/dex-analyzer/tools"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	// Command-line flags
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort     = flag.Int("port", 8080, "API server port (used with -api-server)")
		tuiMode     = flag.Bool("tui", false, "Browse the analysis in a TUI")
		algorithm   = flag.String("algorithm", "", "Disassembly algorithm: linear, recursive (default from config)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")

		// Dump modes
		dumpStrings = flag.Bool("dump-strings", false, "Dump the string pool and exit")
		dumpTypes   = flag.Bool("dump-types", false, "Dump the type pool and exit")
		dumpFields  = flag.Bool("dump-fields", false, "Dump the field pool and exit")
		dumpMethods = flag.Bool("dump-methods", false, "Dump the method pool and exit")
		dumpClasses = flag.Bool("dump-classes", false, "Dump the class definitions and exit")

		// Analysis modes
		showDisasm = flag.Bool("disasm", false, "Print per-method disassembly")
		showIR     = flag.Bool("ir", false, "Print per-method lifted IR")
		showXref   = flag.Bool("xref", false, "Print the constant cross-reference index")
	)

	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("DEX Analyzer %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	// Show help
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// Load configuration, then apply flag overrides
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *algorithm != "" {
		cfg.Disassembly.Algorithm = *algorithm
	}

	// Start API server mode if requested
	if *apiServer {
		// The -port flag, when given, overrides the configured port
		port := cfg.API.Port
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "port" {
				port = *apiPort
			}
		})
		server := api.NewServer(port, cfg)

		// Setup graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		var shutdownOnce sync.Once
		performShutdown := func() {
			shutdownOnce.Do(func() {
				fmt.Println("\nShutting down API server...")

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
					os.Exit(1)
				}

				fmt.Println("API server stopped")
				os.Exit(0)
			})
		}

		// Start server in goroutine
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
				os.Exit(1)
			}
		}()

		// Wait for shutdown signal (Ctrl+C or SIGTERM)
		<-sigChan
		performShutdown()
	}

	// Require a DEX file for analysis mode
	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	dexFile := flag.Arg(0)
	if _, err := os.Stat(dexFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", dexFile)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Loading and parsing DEX file: %s\n", dexFile)
	}

	result, err := loader.LoadFile(dexFile, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis error:\n%v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		d := result.Dex
		fmt.Printf("DEX version %s: %d strings, %d types, %d protos, %d fields, %d methods, %d classes\n",
			d.Header.Version(),
			d.Strings.NumberOfStrings(), d.Types.NumberOfTypes(), d.Protos.NumberOfProtos(),
			d.Fields.NumberOfFields(), d.Methods.NumberOfMethods(), d.Classes.NumberOfClasses())
		fmt.Printf("Analyzed %d method bodies (%s)\n", len(result.Methods), cfg.Disassembly.Algorithm)
	}

	// Handle pool dumps
	dumped := false
	if *dumpStrings {
		fmt.Print(result.Dex.Strings)
		dumped = true
	}
	if *dumpTypes {
		fmt.Print(result.Dex.Types)
		dumped = true
	}
	if *dumpFields {
		fmt.Print(result.Dex.Fields)
		dumped = true
	}
	if *dumpMethods {
		fmt.Print(result.Dex.Methods)
		dumped = true
	}
	if *dumpClasses {
		fmt.Print(result.Dex.Classes)
		dumped = true
	}
	if dumped {
		os.Exit(0)
	}

	// TUI browser mode
	if *tuiMode {
		if err := browser.RunTUI(result); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Text report modes
	if *showXref {
		x := tools.BuildXRef(result.Dex, collectDisassemblies(result))
		fmt.Print(x)
	}

	if *showDisasm || *showIR {
		for _, m := range result.Methods {
			fmt.Printf("method %s\n", m.Name())
			if m.Disassembly.Err != nil {
				fmt.Printf("  decode error: %v\n", m.Disassembly.Err)
				continue
			}
			if *showDisasm {
				for _, inst := range m.Disassembly.Instructions {
					fmt.Printf("  %s\n", inst)
				}
			}
			if *showIR {
				if m.LiftErr != nil {
					fmt.Printf("  lift error: %v\n", m.LiftErr)
				} else if m.IR != nil {
					fmt.Print(m.IR)
				}
			}
			fmt.Println()
		}
	}

	// Default: a one-line summary per method
	if !*showDisasm && !*showIR && !*showXref {
		for _, m := range result.Methods {
			status := "ok"
			switch {
			case m.Disassembly.Err != nil:
				status = fmt.Sprintf("decode error: %v", m.Disassembly.Err)
			case m.LiftErr != nil:
				status = fmt.Sprintf("lift error: %v", m.LiftErr)
			}
			blocks := 0
			if m.Disassembly.Blocks != nil {
				blocks = len(m.Disassembly.Blocks.All())
			}
			fmt.Printf("%-60s %3d instructions %2d blocks  %s\n",
				m.Name(), len(m.Disassembly.Instructions), blocks, status)
		}
	}
}

// collectDisassemblies extracts the per-method disassemblies for tooling that
// works below the IR layer
func collectDisassemblies(result *loader.Result) []*disasm.MethodDisassembly {
	out := make([]*disasm.MethodDisassembly, 0, len(result.Methods))
	for _, m := range result.Methods {
		out = append(out, m.Disassembly)
	}
	return out
}

func printHelp() {
	fmt.Printf(`DEX Analyzer %s

Usage: dex-analyzer [options] <dex-file>
       dex-analyzer -api-server [-port N]

Options:
  -help              Show this help message
  -version           Show version information
  -api-server        Start HTTP API server mode (no DEX file required)
  -port N            API server port (default: api.port from config, used with -api-server)
  -tui               Browse the analysis in a TUI
  -algorithm A       Disassembly algorithm: linear, recursive
  -verbose           Enable verbose output

Pool Dumps:
  -dump-strings      Dump the string pool and exit
  -dump-types        Dump the type pool and exit
  -dump-fields       Dump the field pool and exit
  -dump-methods      Dump the method pool and exit
  -dump-classes      Dump the class definitions and exit

Reports:
  -disasm            Print per-method disassembly
  -ir                Print per-method lifted IR
  -xref              Print the constant cross-reference index

Examples:
  # Start API server for GUI frontends
  dex-analyzer -api-server
  dex-analyzer -api-server -port 3000

  # Summarize every method body
  dex-analyzer classes.dex

  # Disassemble with recursive traversal
  dex-analyzer -algorithm recursive -disasm classes.dex

  # Print the lifted IR
  dex-analyzer -ir classes.dex

  # Browse interactively
  dex-analyzer -tui classes.dex

  # Cross-reference strings, fields and methods
  dex-analyzer -xref classes.dex

For more information, see the README.md file.
`, Version)
}
