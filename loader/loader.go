// Package loader glues the analysis pipeline together: raw bytes are parsed
// into the symbol pool, method bodies are disassembled with the configured
// algorithm, and each method is lifted to IR. Pool errors abort the load;
// decode and lift errors are recorded per method.
package loader

import (
	"fmt"
	"os"

	"github.com/lookbusy1344/dex-analyzer/config"
	"github.com/lookbusy1344/dex-analyzer/dex"
	"github.com/lookbusy1344/dex-analyzer/disasm"
	"github.com/lookbusy1344/dex-analyzer/ir"
	"github.com/lookbusy1344/dex-analyzer/lifter"
)

// MethodAnalysis is the complete analysis of one method: its disassembly and,
// when lifting succeeded, its IR graph. LiftErr carries the per-method status.
type MethodAnalysis struct {
	Disassembly *disasm.MethodDisassembly
	IR          *ir.Graph
	LiftErr     error
}

// Name returns the fully qualified method name
func (m *MethodAnalysis) Name() string {
	return m.Disassembly.Method.String()
}

// Result is the analysis of one DEX image
type Result struct {
	Dex     *dex.DEX
	Methods []*MethodAnalysis
}

// Analyze runs the full pipeline over a DEX image in memory
func Analyze(data []byte, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	d, err := dex.New(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DEX: %w", err)
	}

	alg, err := disasm.ParseAlgorithm(cfg.Disassembly.Algorithm)
	if err != nil {
		return nil, err
	}

	dis := disasm.NewDisassembler(d)
	dis.SetAlgorithm(alg)

	lift := lifter.NewLifter(d)

	result := &Result{Dex: d}
	for _, md := range dis.DisassembleDex() {
		ma := &MethodAnalysis{Disassembly: md}
		if md.Err == nil {
			ma.IR, ma.LiftErr = lift.LiftMethod(md)
		}
		result.Methods = append(result.Methods, ma)
	}

	return result, nil
}

// LoadFile runs the full pipeline over a DEX file on disk
func LoadFile(path string, cfg *config.Config) (*Result, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified input file
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Analyze(data, cfg)
}
